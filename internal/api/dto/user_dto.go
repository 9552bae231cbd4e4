package dto

import (
	"time"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

// SignUpRequest payload for new accounts. Role is optional.
type SignUpRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// SignInRequest payload for login.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public account shape. It never carries the password hash.
type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// NewUserResponse projects a user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// UserSummary is the compact user reference embedded in tickets.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserRef projects an optional user; nil stays nil.
func UserRef(user *domain.User) *UserResponse {
	if user == nil {
		return nil
	}
	resp := NewUserResponse(user)
	return &resp
}

// SummaryRef projects an optional user to its summary; nil stays nil.
func SummaryRef(user *domain.User) *UserSummary {
	if user == nil {
		return nil
	}
	return &UserSummary{ID: user.ID, Username: user.Username, Email: user.Email}
}
