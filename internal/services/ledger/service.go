package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"gorm.io/gorm"
)

// Service is the usage ledger: an append-only log of usage events keyed by
// sentinel key identity. Events are never updated or individually deleted.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.UsageEvent{})
}

// Append durably records one usage event with the current timestamp.
// Storage failures surface as retryable unavailable errors, never
// silently dropped.
func (s *Service) Append(ctx context.Context, params models.AppendUsageParams) (*models.UsageEvent, error) {
	if params.Cost < 0 {
		return nil, models.NewValidationError("cost must be a non-negative number", nil)
	}

	event := models.UsageEvent{
		SentinelKeyID: params.SentinelKeyID,
		Cost:          params.Cost,
		Metadata:      params.Metadata,
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, models.NewUnavailableError("failed to record usage event", err)
	}

	return &event, nil
}

// SumForPeriod returns the total cost of events for a key with
// start <= timestamp < end. An empty window sums to zero, not an error.
func (s *Service) SumForPeriod(ctx context.Context, keyID uint, start, end time.Time) (float64, error) {
	var total float64

	err := s.db.WithContext(ctx).
		Model(&models.UsageEvent{}).
		Where("sentinel_key_id = ? AND timestamp >= ? AND timestamp < ?", keyID, start, end).
		Select("COALESCE(SUM(cost), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage events: %w", err)
	}

	return total, nil
}

// EventsForKey returns recent events for a key, newest first.
func (s *Service) EventsForKey(ctx context.Context, keyID uint, limit, offset int) ([]models.UsageEvent, error) {
	var events []models.UsageEvent

	query := s.db.WithContext(ctx).
		Where("sentinel_key_id = ?", keyID).
		Order("timestamp DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}

	return events, nil
}
