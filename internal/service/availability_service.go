package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/elevate-booking-api/internal/models"
	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
)

type occupancyReader interface {
	OccupiedTimes(ctx context.Context, date models.Date) ([]string, error)
}

type scheduleReader interface {
	HoursFor(ctx context.Context, weekday time.Weekday) (models.Hours, bool, error)
	IsBlocked(ctx context.Context, date models.Date) (bool, error)
	BlockedSlotTimes(ctx context.Context, date models.Date) ([]string, error)
}

// AvailabilityService resolves the bookable slot grid of a date.
type AvailabilityService struct {
	bookings occupancyReader
	schedule scheduleReader
	policy   *BookingPolicy
	cache    *CacheService
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAvailabilityService wires the resolver. cache and metrics may be nil.
func NewAvailabilityService(bookings occupancyReader, schedule scheduleReader, policy *BookingPolicy, cache *CacheService, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		bookings: bookings,
		schedule: schedule,
		policy:   policy,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// ParseRequestedDate validates a YYYY-MM-DD query value.
func ParseRequestedDate(raw string) (models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Date{}, appErrors.WithField(appErrors.ErrMissingField, "date", "date is required")
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, appErrors.WithField(appErrors.ErrValidation, "date", "date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

// Grid returns the slot grid of date after checking the booking window, the
// working-day rule and whole-day blocks. It is the write-side gate used by
// booking creation.
func (s *AvailabilityService) Grid(ctx context.Context, date models.Date) ([]string, error) {
	if err := s.policy.CheckWindow(date); err != nil {
		return nil, err
	}
	return s.DayGrid(ctx, date)
}

// DayGrid is Grid without the booking window. Admin reschedules use it.
func (s *AvailabilityService) DayGrid(ctx context.Context, date models.Date) ([]string, error) {
	hours, ok, err := s.schedule.HoursFor(ctx, date.Weekday())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.WithField(appErrors.ErrNonWorkingDay, "date",
			fmt.Sprintf("we are closed on %s; please pick another date", date.Weekday()))
	}
	blocked, err := s.schedule.IsBlocked(ctx, date)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, appErrors.WithField(appErrors.ErrDateBlocked, "date",
			fmt.Sprintf("%s is unavailable; please pick another date", date))
	}
	return GenerateSlots(hours.Start, hours.End, s.policy.SlotMinutes()), nil
}

// Resolve returns each slot of date with its availability. Dates outside the
// window fail; closed or blocked days yield an empty list. When occupancy or
// slot blocks cannot be read the missing input is skipped, and the result is
// flagged degraded and left uncached. Booking creation stays the
// authoritative check.
func (s *AvailabilityService) Resolve(ctx context.Context, date models.Date) (*models.Availability, error) {
	if err := s.policy.CheckWindow(date); err != nil {
		return nil, err
	}

	if cached, hit := s.cache.Availability(ctx, date); hit {
		return &models.Availability{Date: date, Slots: cached, Cached: true}, nil
	}

	grid, err := s.DayGrid(ctx, date)
	if err != nil {
		if errors.Is(err, appErrors.ErrNonWorkingDay) || errors.Is(err, appErrors.ErrDateBlocked) {
			result := &models.Availability{Date: date, Slots: []models.Slot{}}
			s.cache.StoreAvailability(ctx, date, result.Slots, s.cacheTTL)
			return result, nil
		}
		return nil, err
	}

	degraded := false
	start := time.Now()
	occupied, err := s.bookings.OccupiedTimes(ctx, date)
	s.metrics.ObserveDBQuery("occupied_times", time.Since(start))
	if err != nil {
		degraded = true
		occupied = nil
		s.logger.Warn("occupied slot lookup failed; serving unfiltered availability", zap.String("date", date.String()), zap.Error(err))
	}

	blockedSlots, err := s.schedule.BlockedSlotTimes(ctx, date)
	if err != nil {
		degraded = true
		blockedSlots = nil
		s.logger.Warn("blocked slot lookup failed; ignoring slot blocks", zap.String("date", date.String()), zap.Error(err))
	}

	taken := make(map[string]struct{}, len(occupied)+len(blockedSlots))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}
	for _, t := range blockedSlots {
		taken[t] = struct{}{}
	}

	slots := make([]models.Slot, 0, len(grid))
	for _, label := range grid {
		_, unavailable := taken[label]
		slots = append(slots, models.Slot{Time: label, Available: !unavailable})
	}

	if degraded {
		s.metrics.AvailabilityDegraded()
		return &models.Availability{Date: date, Slots: slots, Degraded: true}, nil
	}
	s.cache.StoreAvailability(ctx, date, slots, s.cacheTTL)
	return &models.Availability{Date: date, Slots: slots}, nil
}

// Invalidate drops the cached grid of date.
func (s *AvailabilityService) Invalidate(ctx context.Context, date models.Date) {
	s.cache.ForgetAvailability(ctx, date)
}
