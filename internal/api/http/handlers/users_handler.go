package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/support-desk/internal/api/dto"
	"github.com/helpdeskhq/support-desk/internal/domain"
	"github.com/helpdeskhq/support-desk/internal/service"
	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// SignUp handles POST /users/signup.
func (h *UsersHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.SignUp(c.UserContext(), service.SignUpInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(authResponse(result))
}

// SignIn handles POST /users/signin.
func (h *UsersHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(authResponse(result))
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(userResponses(users))
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	resp := dto.AuthResponse{
		User:  dto.NewUserResponse(result.User),
		Token: result.Token,
	}
	if !result.ExpiresAt.IsZero() {
		exp := result.ExpiresAt
		resp.ExpiresAt = &exp
	}
	return resp
}

func userResponses(users []domain.User) []dto.UserResponse {
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return items
}
