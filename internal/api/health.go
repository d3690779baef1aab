package api

import (
	"context"
	"time"

	"github.com/api-sentinel/sentinel-gateway/internal/services/exchangerate"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db      *gorm.DB
	fxCache *exchangerate.Cache
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(db *gorm.DB, fxCache *exchangerate.Cache) *HealthHandler {
	return &HealthHandler{
		db:      db,
		fxCache: fxCache,
	}
}

// HealthCheck returns the health status of the service and its dependencies.
// A stale exchange rate degrades the report but never fails it, since reads
// always fall back to the last known rate.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	dbStatus := h.checkDatabase()
	fxStatus := h.checkExchangeRate()

	overallStatus := "healthy"
	statusCode := fiber.StatusOK

	if dbStatus != "healthy" {
		overallStatus = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	response := fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"database":      dbStatus,
			"exchange_rate": fxStatus,
		},
	}

	return c.Status(statusCode).JSON(response)
}

// checkDatabase verifies database connectivity
func (h *HealthHandler) checkDatabase() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err != nil {
		return "unhealthy"
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return "unhealthy"
	}

	return "healthy"
}

// checkExchangeRate reports whether the cached rate has ever been
// refreshed from the upstream provider.
func (h *HealthHandler) checkExchangeRate() string {
	if _, ok := h.fxCache.LastFetched(); !ok {
		return "fallback"
	}

	return "healthy"
}
