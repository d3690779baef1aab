package api

import (
	"errors"

	"github.com/api-sentinel/sentinel-gateway/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto HTTP responses. Typed errors
// carry their own status code, anything else is a sanitized 500.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{
			"error": appErr.Message,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": models.SanitizeError(err).Message,
	})
}
