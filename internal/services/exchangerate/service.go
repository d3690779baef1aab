package exchangerate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/api-sentinel/sentinel-gateway/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
)

// Service owns the rate cache and its periodic refresh. Refresh failures
// are contained here: they log a warning and never reach request handlers
// or crash the scheduler.
type Service struct {
	cache    *Cache
	client   *Client
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewService(cfg *models.ExchangeRateConfig) *Service {
	resolved := cfg.WithDefaults()

	return &Service{
		cache:    NewCache(resolved.FallbackRate),
		client:   NewClient(resolved.APIKey, resolved.BaseURL, resolved.FetchTimeout()),
		schedule: resolved.RefreshSchedule,
		timeout:  resolved.FetchTimeout(),
		cron:     cron.New(),
	}
}

// Cache exposes the read side for the accounting engine.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Refresh fetches the current rate and atomically replaces the cached
// value on success. On any failure the cache is left untouched.
func (s *Service) Refresh(ctx context.Context) {
	fiberlog.Info("Fetching latest USD->INR exchange rate...")

	ctx, cancel := context.WithTimeout(ctx, s.timeout+time.Second)
	defer cancel()

	rate, err := s.client.FetchUSDToINR(ctx)
	if err != nil {
		fiberlog.Warnf("Could not fetch exchange rate, keeping cached value: %v", err)
		return
	}

	s.cache.store(rate, time.Now().UTC())
	fiberlog.Infof("Exchange rate cache updated to %.4f", rate)
}

// Start performs one synchronous refresh, then schedules periodic
// refreshes. A failed run never stops the schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.Refresh(ctx)

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Refresh(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid exchange rate refresh schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	fiberlog.Infof("Exchange rate refresh scheduled: %s", s.schedule)

	return nil
}

// Stop stops the refresh schedule and waits for a running job to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.running = false
	fiberlog.Info("Exchange rate refresh scheduler stopped")
}
