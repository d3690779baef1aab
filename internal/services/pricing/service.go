package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sentinel/sentinel-gateway/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// defaultCatalog is the built-in price list, per 1 million tokens in USD.
var defaultCatalog = []models.PricingEntry{
	{APIName: "openai", ModelName: "gpt-4o", InputCostPerMillionUSD: 5.00, OutputCostPerMillionUSD: 15.00},
	{APIName: "openai", ModelName: "gpt-4-turbo", InputCostPerMillionUSD: 10.00, OutputCostPerMillionUSD: 30.00},
	{APIName: "openai", ModelName: "gpt-3.5-turbo", InputCostPerMillionUSD: 0.50, OutputCostPerMillionUSD: 1.50},
	{APIName: "openai", ModelName: "gpt-oss-20b", InputCostPerMillionUSD: 0.20, OutputCostPerMillionUSD: 0.30},
	{APIName: "openai", ModelName: "gemma-7b-it", InputCostPerMillionUSD: 0.80, OutputCostPerMillionUSD: 1.20},
	{APIName: "openai", ModelName: "eleutherai/llemma_7b", InputCostPerMillionUSD: 0.80, OutputCostPerMillionUSD: 1.20},
	{APIName: "openai", ModelName: "google/gemma-7b-it", InputCostPerMillionUSD: 0.80, OutputCostPerMillionUSD: 1.20},
	{APIName: "openai", ModelName: "google/gemma-3n-e2b-it:free", InputCostPerMillionUSD: 0.80, OutputCostPerMillionUSD: 1.20},
	{APIName: "openai", ModelName: "llama3-8b-8192", InputCostPerMillionUSD: 0.50, OutputCostPerMillionUSD: 1.30},
	{APIName: "openai", ModelName: "llama3-70b-8192", InputCostPerMillionUSD: 0.60, OutputCostPerMillionUSD: 1.20},
	{APIName: "openai", ModelName: "openai/gpt-oss-20b", InputCostPerMillionUSD: 1.20, OutputCostPerMillionUSD: 0.30},
}

// Service serves the public per-model price catalog.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.PricingEntry{})
}

// SeedDefaults inserts the built-in catalog, skipping any model that is
// already present. Safe to run on every startup.
func (s *Service) SeedDefaults(ctx context.Context) error {
	seeded := 0

	for _, entry := range defaultCatalog {
		var existing models.PricingEntry
		err := s.db.WithContext(ctx).Where("model_name = ?", entry.ModelName).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check pricing for %s: %w", entry.ModelName, err)
		}

		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to seed pricing for %s: %w", entry.ModelName, err)
		}
		seeded++
	}

	if seeded > 0 {
		fiberlog.Infof("Seeded %d pricing entries", seeded)
	}

	return nil
}

// ListByAPI returns every catalog entry for a provider. An unknown
// provider reads as not found rather than an empty list.
func (s *Service) ListByAPI(ctx context.Context, apiName string) ([]models.PricingEntry, error) {
	var entries []models.PricingEntry

	err := s.db.WithContext(ctx).
		Where("api_name = ?", apiName).
		Order("model_name").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing: %w", err)
	}

	if len(entries) == 0 {
		return nil, models.NewNotFoundError(fmt.Sprintf("no pricing found for API '%s'", apiName))
	}

	return entries, nil
}
