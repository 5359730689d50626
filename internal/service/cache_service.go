package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/elevate-booking-api/internal/models"
	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
)

const (
	cacheKeyWorkingHours       = "booking:working_hours"
	cacheKeyAvailabilityPrefix = "booking:availability:"
)

func availabilityCacheKey(date models.Date) string {
	return cacheKeyAvailabilityPrefix + date.String()
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService holds the read-through copies of working hours and per-date
// slot grids. A nil or disabled service misses every read and ignores writes.
// Backend failures are logged and reported as misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Availability returns the cached slot grid of date.
func (s *CacheService) Availability(ctx context.Context, date models.Date) ([]models.Slot, bool) {
	var slots []models.Slot
	if !s.get(ctx, availabilityCacheKey(date), &slots) {
		return nil, false
	}
	return slots, true
}

// StoreAvailability caches the slot grid of date. A zero ttl uses the default.
func (s *CacheService) StoreAvailability(ctx context.Context, date models.Date, slots []models.Slot, ttl time.Duration) {
	s.set(ctx, availabilityCacheKey(date), slots, ttl)
}

// ForgetAvailability drops the cached grids of dates.
func (s *CacheService) ForgetAvailability(ctx context.Context, dates ...models.Date) {
	for _, date := range dates {
		s.delete(ctx, availabilityCacheKey(date))
	}
}

// ForgetAllAvailability drops every cached grid. Used when a change can touch
// any date, such as new working hours.
func (s *CacheService) ForgetAllAvailability(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, cacheKeyAvailabilityPrefix+"*"); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", cacheKeyAvailabilityPrefix+"*"), zap.Error(err))
	}
}

// WorkingHours returns the cached weekly rules.
func (s *CacheService) WorkingHours(ctx context.Context) ([]models.WorkingHoursRule, bool) {
	var rules []models.WorkingHoursRule
	if !s.get(ctx, cacheKeyWorkingHours, &rules) {
		return nil, false
	}
	return rules, true
}

// StoreWorkingHours caches the weekly rules.
func (s *CacheService) StoreWorkingHours(ctx context.Context, rules []models.WorkingHoursRule, ttl time.Duration) {
	s.set(ctx, cacheKeyWorkingHours, rules, ttl)
}

// ForgetWorkingHours drops the cached weekly rules.
func (s *CacheService) ForgetWorkingHours(ctx context.Context) {
	s.delete(ctx, cacheKeyWorkingHours)
}

func (s *CacheService) get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

func (s *CacheService) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *CacheService) delete(ctx context.Context, key string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
