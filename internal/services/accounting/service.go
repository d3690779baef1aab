package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"github.com/api-sentinel/sentinel-gateway/internal/services/exchangerate"
	"github.com/api-sentinel/sentinel-gateway/internal/services/keys"
	"github.com/api-sentinel/sentinel-gateway/internal/services/ledger"
	"gorm.io/gorm"
)

// Service is the budget accounting engine: it composes the key registry,
// the usage ledger and the exchange-rate cache into spend-against-budget
// snapshots. It is stateless; every window is re-derived from "now".
type Service struct {
	db       *gorm.DB
	keys     *keys.Service
	ledger   *ledger.Service
	fxCache  *exchangerate.Cache
	timeFunc func() time.Time
}

func NewService(db *gorm.DB, keySvc *keys.Service, ledgerSvc *ledger.Service, fxCache *exchangerate.Cache) *Service {
	return &Service{
		db:       db,
		keys:     keySvc,
		ledger:   ledgerSvc,
		fxCache:  fxCache,
		timeFunc: time.Now,
	}
}

// SetTimeFunc overrides the wall clock, for tests.
func (s *Service) SetTimeFunc(f func() time.Time) {
	s.timeFunc = f
}

// GetKeyStats verifies the key and returns its current-month spend
// snapshot. The fx rate is a cache read; this path never performs
// network I/O.
func (s *Service) GetKeyStats(ctx context.Context, keyString string) (*models.SentinelKeyDetails, error) {
	key, err := s.keys.VerifyActive(ctx, keyString)
	if err != nil {
		return nil, err
	}

	start, next := MonthWindow(s.timeFunc())

	usage, err := s.ledger.SumForPeriod(ctx, key.ID, start, next)
	if err != nil {
		return nil, err
	}

	return &models.SentinelKeyDetails{
		ProjectID:     key.ProjectID,
		MonthlyBudget: key.MonthlyBudget,
		CurrentUsage:  usage,
		USDToINRRate:  s.fxCache.Read(),
	}, nil
}

// GetProjectStats returns the spend snapshot for a project owned by
// ownerID. Existence and ownership failures collapse into one not-found
// so project ids cannot be probed across accounts.
func (s *Service) GetProjectStats(ctx context.Context, projectID, ownerID uint) (*models.ProjectStats, error) {
	var project models.Project

	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", projectID, ownerID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("project not found")
		}
		return nil, fmt.Errorf("failed to get project %d: %w", projectID, err)
	}

	key, err := s.keys.GetByProjectID(ctx, project.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("project not found")
		}
		return nil, err
	}

	start, next := MonthWindow(s.timeFunc())

	usage, err := s.ledger.SumForPeriod(ctx, key.ID, start, next)
	if err != nil {
		return nil, err
	}

	return &models.ProjectStats{
		ProjectID:      project.ID,
		ProjectName:    project.Name,
		MonthlyBudget:  key.MonthlyBudget,
		CurrentUsage:   usage,
		UsageStartDate: start,
		UsageEndDate:   next.Add(-time.Second),
	}, nil
}
