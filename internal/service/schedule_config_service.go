package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/elevate-booking-api/internal/dto"
	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/pkg/database"
	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
)

type workingHoursRepository interface {
	ListActive(ctx context.Context) ([]models.WorkingHoursRule, error)
	ReplaceAll(ctx context.Context, rules []models.WorkingHoursRule) error
}

type blockedDateRepository interface {
	List(ctx context.Context, from, to *models.Date) ([]models.BlockedDate, error)
	Exists(ctx context.Context, date models.Date) (bool, error)
	Create(ctx context.Context, blocked *models.BlockedDate) error
	Delete(ctx context.Context, id string) error
}

type blockedSlotRepository interface {
	List(ctx context.Context, from, to *models.Date) ([]models.BlockedSlot, error)
	TimesOn(ctx context.Context, date models.Date) ([]string, error)
	Create(ctx context.Context, slot *models.BlockedSlot) error
	Delete(ctx context.Context, id string) error
}

// ScheduleConfigService owns working hours, blocked dates and blocked slots.
type ScheduleConfigService struct {
	hours     workingHoursRepository
	dates     blockedDateRepository
	slots     blockedSlotRepository
	policy    *BookingPolicy
	cache     *CacheService
	hoursTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleConfigService wires the configuration store. cache may be nil.
func NewScheduleConfigService(hours workingHoursRepository, dates blockedDateRepository, slots blockedSlotRepository, policy *BookingPolicy, cache *CacheService, hoursTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleConfigService{
		hours:     hours,
		dates:     dates,
		slots:     slots,
		policy:    policy,
		cache:     cache,
		hoursTTL:  hoursTTL,
		validator: validate,
		logger:    logger,
	}
}

// Rules returns the active working-hours rules ordered by weekday.
func (s *ScheduleConfigService) Rules(ctx context.Context) ([]models.WorkingHoursRule, error) {
	if cached, hit := s.cache.WorkingHours(ctx); hit {
		return cached, nil
	}
	rules, err := s.hours.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load working hours")
	}
	if rules == nil {
		rules = []models.WorkingHoursRule{}
	}
	s.cache.StoreWorkingHours(ctx, rules, s.hoursTTL)
	return rules, nil
}

// WorkingDays returns the open hours keyed by weekday.
func (s *ScheduleConfigService) WorkingDays(ctx context.Context) (map[time.Weekday]models.Hours, error) {
	rules, err := s.Rules(ctx)
	if err != nil {
		return nil, err
	}
	days := make(map[time.Weekday]models.Hours, len(rules))
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		start, errStart := ParseHour(rule.StartTime)
		end, errEnd := ParseHour(rule.EndTime)
		if errStart != nil || errEnd != nil || start >= end {
			s.logger.Warn("skipping malformed working hours rule", zap.Int("day_of_week", rule.DayOfWeek), zap.String("start", rule.StartTime), zap.String("end", rule.EndTime))
			continue
		}
		days[time.Weekday(rule.DayOfWeek)] = models.Hours{Start: start, End: end}
	}
	return days, nil
}

// HoursFor returns the open hours of weekday; ok is false on a non-working day.
func (s *ScheduleConfigService) HoursFor(ctx context.Context, weekday time.Weekday) (models.Hours, bool, error) {
	days, err := s.WorkingDays(ctx)
	if err != nil {
		return models.Hours{}, false, err
	}
	hours, ok := days[weekday]
	return hours, ok, nil
}

// ReplaceWorkingHours atomically swaps the weekly schedule. Only enabled days are persisted.
func (s *ScheduleConfigService) ReplaceWorkingHours(ctx context.Context, req dto.ReplaceWorkingHoursRequest) ([]models.WorkingHoursRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid working hours payload")
	}

	seen := make(map[int]bool, len(req.Days))
	rules := make([]models.WorkingHoursRule, 0, len(req.Days))
	for _, d := range req.Days {
		if seen[d.Day] {
			return nil, appErrors.WithField(appErrors.ErrValidation, "days", fmt.Sprintf("day %d listed more than once", d.Day))
		}
		seen[d.Day] = true
		if !d.Enabled {
			continue
		}
		if d.StartHour >= d.EndHour {
			return nil, appErrors.WithField(appErrors.ErrValidation, "days", fmt.Sprintf("day %d must start before it ends", d.Day))
		}
		rules = append(rules, models.WorkingHoursRule{
			DayOfWeek: d.Day,
			StartTime: HourLabel(d.StartHour),
			EndTime:   HourLabel(d.EndHour),
			IsActive:  true,
		})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].DayOfWeek < rules[j].DayOfWeek })

	if err := s.hours.ReplaceAll(ctx, rules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save working hours")
	}
	s.cache.ForgetWorkingHours(ctx)
	s.cache.ForgetAllAvailability(ctx)

	s.logger.Info("working hours replaced", zap.Int("working_days", len(rules)))
	return rules, nil
}

// IsBlocked reports whether date is closed by an admin.
func (s *ScheduleConfigService) IsBlocked(ctx context.Context, date models.Date) (bool, error) {
	blocked, err := s.dates.Exists(ctx, date)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check blocked date")
	}
	return blocked, nil
}

// ListBlockedDates returns blocked dates ordered by date.
func (s *ScheduleConfigService) ListBlockedDates(ctx context.Context, query dto.BlockedListQuery) ([]models.BlockedDate, error) {
	from, to, err := parseRange(query.From, query.To)
	if err != nil {
		return nil, err
	}
	dates, err := s.dates.List(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocked dates")
	}
	if dates == nil {
		dates = []models.BlockedDate{}
	}
	return dates, nil
}

// BlockedDatesInWindow lists blocked dates between today and the end of the
// booking window. Lookup failures degrade to an empty list.
func (s *ScheduleConfigService) BlockedDatesInWindow(ctx context.Context) []string {
	today := s.policy.Today()
	_, maxDate := s.policy.Window()
	dates, err := s.dates.List(ctx, &today, &maxDate)
	if err != nil {
		s.logger.Warn("blocked dates lookup failed", zap.Error(err))
		return []string{}
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Date.String())
	}
	return out
}

// AddBlockedDate blocks a day. A second block for the same date is a CONFLICT.
func (s *ScheduleConfigService) AddBlockedDate(ctx context.Context, req dto.CreateBlockedDateRequest) (*models.BlockedDate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blocked date payload")
	}
	date, err := models.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, appErrors.WithField(appErrors.ErrValidation, "date", "date must be formatted as YYYY-MM-DD")
	}
	blocked := &models.BlockedDate{Date: date, Reason: trimOptional(req.Reason)}
	if err := s.dates.Create(ctx, blocked); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s is already blocked", date))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to block date")
	}
	s.cache.ForgetAvailability(ctx, date)
	s.logger.Info("date blocked", zap.String("date", date.String()))
	return blocked, nil
}

// RemoveBlockedDate unblocks a day. Unknown or malformed ids are ignored.
func (s *ScheduleConfigService) RemoveBlockedDate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if err := s.dates.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove blocked date")
	}
	s.cache.ForgetAllAvailability(ctx)
	return nil
}

// BlockedSlotTimes returns the slot labels closed on date.
func (s *ScheduleConfigService) BlockedSlotTimes(ctx context.Context, date models.Date) ([]string, error) {
	return s.slots.TimesOn(ctx, date)
}

// ListBlockedSlots returns blocked slots ordered by date and time.
func (s *ScheduleConfigService) ListBlockedSlots(ctx context.Context, query dto.BlockedListQuery) ([]models.BlockedSlot, error) {
	from, to, err := parseRange(query.From, query.To)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.List(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocked slots")
	}
	if slots == nil {
		slots = []models.BlockedSlot{}
	}
	return slots, nil
}

// AddBlockedSlot closes one slot. Duplicates are a CONFLICT.
func (s *ScheduleConfigService) AddBlockedSlot(ctx context.Context, req dto.CreateBlockedSlotRequest) (*models.BlockedSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blocked slot payload")
	}
	date, err := models.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, appErrors.WithField(appErrors.ErrValidation, "date", "date must be formatted as YYYY-MM-DD")
	}
	label := strings.TrimSpace(req.TimeSlot)
	if !IsSlotLabel(label) {
		return nil, appErrors.WithField(appErrors.ErrInvalidTimeFormat, "time_slot", "time slot must be HH:MM in 24-hour format")
	}
	slot := &models.BlockedSlot{Date: date, TimeSlot: label, Reason: trimOptional(req.Reason)}
	if err := s.slots.Create(ctx, slot); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %s is already blocked", date, label))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to block slot")
	}
	s.cache.ForgetAvailability(ctx, date)
	return slot, nil
}

// RemoveBlockedSlot reopens a slot. Unknown or malformed ids are ignored.
func (s *ScheduleConfigService) RemoveBlockedSlot(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if err := s.slots.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove blocked slot")
	}
	s.cache.ForgetAllAvailability(ctx)
	return nil
}

func parseRange(fromRaw, toRaw string) (*models.Date, *models.Date, error) {
	var from, to *models.Date
	if fromRaw != "" {
		d, err := models.ParseDate(fromRaw)
		if err != nil {
			return nil, nil, appErrors.WithField(appErrors.ErrValidation, "from", "from must be formatted as YYYY-MM-DD")
		}
		from = &d
	}
	if toRaw != "" {
		d, err := models.ParseDate(toRaw)
		if err != nil {
			return nil, nil, appErrors.WithField(appErrors.ErrValidation, "to", "to must be formatted as YYYY-MM-DD")
		}
		to = &d
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, appErrors.WithField(appErrors.ErrValidation, "to", "to must not be before from")
	}
	return from, to, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
