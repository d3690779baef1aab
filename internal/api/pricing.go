package api

import (
	"github.com/api-sentinel/sentinel-gateway/internal/services/pricing"

	"github.com/gofiber/fiber/v2"
)

// PricingHandler serves the public price catalog.
type PricingHandler struct {
	pricingService *pricing.Service
}

func NewPricingHandler(pricingService *pricing.Service) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
	}
}

// GetPricing lists every model price for one provider.
func (h *PricingHandler) GetPricing(c *fiber.Ctx) error {
	entries, err := h.pricingService.ListByAPI(c.Context(), c.Params("api_name"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(entries)
}
