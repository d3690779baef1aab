package api

import (
	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"github.com/api-sentinel/sentinel-gateway/internal/services/accounting"
	"github.com/api-sentinel/sentinel-gateway/internal/services/keys"
	"github.com/api-sentinel/sentinel-gateway/internal/services/ledger"

	"github.com/gofiber/fiber/v2"
)

const sentinelKeyHeader = "X-Sentinel-Key"

// UsageHandler handles the metering write path and key verification.
type UsageHandler struct {
	keysService       *keys.Service
	ledgerService     *ledger.Service
	accountingService *accounting.Service
}

func NewUsageHandler(keysService *keys.Service, ledgerService *ledger.Service, accountingService *accounting.Service) *UsageHandler {
	return &UsageHandler{
		keysService:       keysService,
		ledgerService:     ledgerService,
		accountingService: accountingService,
	}
}

// ReportUsage records one spend event against the presented sentinel
// key. The write path never checks budgets, only key liveness.
func (h *UsageHandler) ReportUsage(c *fiber.Ctx) error {
	key, err := h.keysService.VerifyActive(c.Context(), c.Get(sentinelKeyHeader))
	if err != nil {
		return respondError(c, err)
	}

	var req models.UsageReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	event, err := h.ledgerService.Append(c.Context(), models.AppendUsageParams{
		SentinelKeyID: key.ID,
		Cost:          req.Cost,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "accepted",
		"event_id": event.ID,
	})
}

// VerifyKey returns the key's budget standing for the current billing
// month, with the spend converted at the cached exchange rate.
func (h *UsageHandler) VerifyKey(c *fiber.Ctx) error {
	details, err := h.accountingService.GetKeyStats(c.Context(), c.Get(sentinelKeyHeader))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(details)
}
