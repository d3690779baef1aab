package api

import (
	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"github.com/api-sentinel/sentinel-gateway/internal/services/users"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles account signup and token issuance.
type AuthHandler struct {
	usersService *users.Service
}

func NewAuthHandler(usersService *users.Service) *AuthHandler {
	return &AuthHandler{
		usersService: usersService,
	}
}

// Signup creates a new dashboard account.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.usersService.Signup(c.Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
	})
}

// Token exchanges credentials for a bearer token. Accepts both JSON
// bodies and form posts so standard OAuth2 password clients work.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	email := req.Email
	if email == "" {
		email = req.Username
	}

	token, err := h.usersService.Login(c.Context(), email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
