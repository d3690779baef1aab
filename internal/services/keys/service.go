package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"gorm.io/gorm"
)

// invalidKeyMessage is shared across every verification failure so the
// response never reveals whether a key exists.
const invalidKeyMessage = "invalid or missing sentinel key"

// Service is the key registry: it maps opaque key strings to projects,
// budgets and the active flag, and is the sole authorization gate for
// usage reporting and key-scoped stats.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.SentinelKey{})
}

// Lookup finds a key record by its exact key string.
func (s *Service) Lookup(ctx context.Context, keyString string) (*models.SentinelKey, error) {
	var key models.SentinelKey

	if err := s.db.WithContext(ctx).Where("key_string = ?", keyString).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up sentinel key: %w", err)
	}

	return &key, nil
}

// VerifyActive authorizes a caller-supplied key string. A missing key and
// an inactive key fail with the identical authentication error.
func (s *Service) VerifyActive(ctx context.Context, keyString string) (*models.SentinelKey, error) {
	if keyString == "" {
		return nil, models.NewAuthenticationError(invalidKeyMessage)
	}

	key, err := s.Lookup(ctx, keyString)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewAuthenticationError(invalidKeyMessage)
		}
		return nil, err
	}

	if !key.IsActive {
		return nil, models.NewAuthenticationError(invalidKeyMessage)
	}

	return key, nil
}

// Create generates and inserts a new key for a project. It runs on the
// caller's transaction handle so project and key commit as one unit.
func (s *Service) Create(tx *gorm.DB, projectID uint) (*models.SentinelKey, error) {
	keyString, err := models.GenerateKeyString()
	if err != nil {
		return nil, fmt.Errorf("failed to generate sentinel key: %w", err)
	}

	key := &models.SentinelKey{
		KeyString:     keyString,
		ProjectID:     projectID,
		MonthlyBudget: models.DefaultMonthlyBudget,
		IsActive:      true,
	}

	if err := tx.Create(key).Error; err != nil {
		return nil, fmt.Errorf("failed to create sentinel key: %w", err)
	}

	return key, nil
}

// GetByProjectID returns the key bound to a project.
func (s *Service) GetByProjectID(ctx context.Context, projectID uint) (*models.SentinelKey, error) {
	var key models.SentinelKey

	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get sentinel key for project %d: %w", projectID, err)
	}

	return &key, nil
}
