package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/collections-sequencer/internal/api/dto"
	"github.com/spec-kit/collections-sequencer/internal/service"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

// AuthHandler exposes operator login.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/operators/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if strings.TrimSpace(req.OperatorID) == "" || req.Secret == "" {
		return apperrors.NewInvalidArgument("operator_id and secret required", nil)
	}

	token, expiresAt, role, err := h.service.Login(req.OperatorID, req.Secret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Role:      role,
	}})
}
