package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/helpdeskhq/support-desk/internal/auth"
	"github.com/helpdeskhq/support-desk/internal/config"
	"github.com/helpdeskhq/support-desk/internal/domain"
	"github.com/helpdeskhq/support-desk/internal/repository"
	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

const minPasswordLength = 6

// AuthService coordinates signup, signin and account listing.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// SignUpInput carries registration fields. Role defaults to user.
type SignUpInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// AuthResult is a user paired with a freshly signed identity token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL()),
		bcryptCost: cfg.BcryptCost,
	}
}

// SignUp creates a new account and signs a token for it.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)
	if input.Role == "" {
		input.Role = domain.RoleUser
	}
	if err := validateSignUp(input); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}
	if existing != nil {
		return nil, apperrors.NewDuplicate("username or email already exists")
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewDuplicate("username or email already exists")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return s.issue(user)
}

// SignIn verifies credentials and signs a fresh token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.NewInternalError(err)
	}
	return s.issue(user)
}

// ListUsers returns every account. Callers must not serialize PasswordHash.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(domain.IdentityOf(user))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func validateSignUp(input SignUpInput) error {
	details := map[string]any{}
	if input.Username == "" {
		details["username"] = "required"
	}
	if !validEmail(input.Email) {
		details["email"] = "must be a valid email address"
	}
	switch {
	case len(input.Password) < minPasswordLength:
		details["password"] = "must be at least 6 characters"
	case len(input.Password) > auth.MaxPasswordBytes:
		details["password"] = "must be at most 72 bytes"
	}
	if !input.Role.Valid() {
		details["role"] = "must be user or admin"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid signup payload", details)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
