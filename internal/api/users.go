package api

import (
	"github.com/api-sentinel/sentinel-gateway/internal/services/middleware"
	"github.com/api-sentinel/sentinel-gateway/internal/services/users"

	"github.com/gofiber/fiber/v2"
)

// UsersHandler handles operations on the authenticated account itself.
type UsersHandler struct {
	usersService *users.Service
}

func NewUsersHandler(usersService *users.Service) *UsersHandler {
	return &UsersHandler{
		usersService: usersService,
	}
}

func (h *UsersHandler) GetMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	return c.JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
	})
}

// DeleteMe removes the account together with all of its projects, keys
// and usage history.
func (h *UsersHandler) DeleteMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	if err := h.usersService.Delete(c.Context(), user.ID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Account and all associated data deleted successfully",
	})
}
