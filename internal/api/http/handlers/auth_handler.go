package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticket-system/internal/api/dto"
	"github.com/supportdesk/ticket-system/internal/service"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

// AuthHandler manages login and admin lookup endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password are required", nil)
	}

	user, token, expiresAt, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"data": dto.LoginResponse{
			User:      dto.FromUser(user),
			Token:     token,
			ExpiresAt: expiresAt,
		},
	})
}

// Admins GET /api/auth/admins.
func (h *AuthHandler) Admins(c *fiber.Ctx) error {
	admins, err := h.auth.ListAdmins(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Admins retrieved successfully",
		"data":    dto.FromUsers(admins),
	})
}
