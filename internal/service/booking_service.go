package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/elevate-booking-api/internal/dto"
	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/pkg/database"
	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
	"github.com/noah-isme/elevate-booking-api/pkg/export"
)

const (
	defaultBookingTimezone = "UTC"
	maxNameLength          = 200
	occupiedSlotConstraint = "bookings_occupied_slot_key"
	// Admin writes re-read and retry this many times when the row changed
	// underneath them.
	maxWriteAttempts = 3
)

// allowedTransitions lists the status moves permitted by updateStatus.
// cancelled and completed are terminal.
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:     {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed:   {models.BookingCompleted, models.BookingCancelled},
	models.BookingRescheduled: {models.BookingCompleted, models.BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to models.BookingStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type bookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	ListAll(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindOccupying(ctx context.Context, date models.Date, slot, excludeID string) (*models.Booking, error)
	Create(ctx context.Context, booking *models.Booking) error
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus, updatedAt time.Time) error
	Reschedule(ctx context.Context, id string, from models.BookingStatus, date models.Date, slot string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type slotGate interface {
	Grid(ctx context.Context, date models.Date) ([]string, error)
	DayGrid(ctx context.Context, date models.Date) ([]string, error)
	Invalidate(ctx context.Context, date models.Date)
}

type blockedSlotReader interface {
	BlockedSlotTimes(ctx context.Context, date models.Date) ([]string, error)
}

type bookingNotifier interface {
	BookingCreated(booking models.Booking)
	StatusChanged(booking models.Booking)
	Rescheduled(booking models.Booking, oldDate models.Date, oldTime string)
	Deleted(booking models.Booking)
}

// TableRenderer turns a bookings table into a downloadable file.
type TableRenderer interface {
	ContentType() string
	Extension() string
	Render(table export.Table, title string) ([]byte, error)
}

// BookingServiceConfig carries the collaborators of BookingService.
type BookingServiceConfig struct {
	Repository     bookingRepository
	Gate           slotGate
	BlockedSlots   blockedSlotReader
	Notifier       bookingNotifier
	Locks          *SlotLocks
	Exporters      map[string]TableRenderer
	Metrics        *MetricsService
	Validator      *validator.Validate
	Logger         *zap.Logger
	Clock          Clock
	DefaultService string
}

// BookingService owns the booking lifecycle.
type BookingService struct {
	repo           bookingRepository
	gate           slotGate
	blocked        blockedSlotReader
	notifier       bookingNotifier
	locks          *SlotLocks
	exporters      map[string]TableRenderer
	metrics        *MetricsService
	validator      *validator.Validate
	logger         *zap.Logger
	clock          Clock
	defaultService string
}

// NewBookingService constructs the booking ledger.
func NewBookingService(cfg BookingServiceConfig) *BookingService {
	s := &BookingService{
		repo:           cfg.Repository,
		gate:           cfg.Gate,
		blocked:        cfg.BlockedSlots,
		notifier:       cfg.Notifier,
		locks:          cfg.Locks,
		exporters:      cfg.Exporters,
		metrics:        cfg.Metrics,
		validator:      cfg.Validator,
		logger:         cfg.Logger,
		clock:          cfg.Clock,
		defaultService: cfg.DefaultService,
	}
	if s.locks == nil {
		s.locks = NewSlotLocks()
	}
	if s.validator == nil {
		s.validator = validator.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.defaultService == "" {
		s.defaultService = "Strategy Session"
	}
	if s.notifier == nil {
		s.notifier = (*NotificationService)(nil)
	}
	return s
}

// Create validates a public booking request and reserves its slot.
func (s *BookingService) Create(ctx context.Context, req dto.CreateBookingRequest) (*models.Booking, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	rawDate := strings.TrimSpace(req.Date)
	slot := strings.TrimSpace(req.Time)

	var missing []string
	for _, f := range []struct{ name, value string }{{"name", name}, {"email", email}, {"date", rawDate}, {"time", slot}} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.WithField(appErrors.ErrMissingField, missing[0], "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(name) > maxNameLength {
		return nil, appErrors.WithField(appErrors.ErrValidation, "name", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if err := s.validator.Var(email, "email"); err != nil {
		return nil, appErrors.WithField(appErrors.ErrInvalidEmail, "email", "please enter a valid email address")
	}
	date, err := models.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.WithField(appErrors.ErrValidation, "date", "date must be formatted as YYYY-MM-DD")
	}
	if !IsSlotLabel(slot) {
		return nil, appErrors.WithField(appErrors.ErrInvalidTimeFormat, "time", "time must be HH:MM in 24-hour format")
	}

	grid, err := s.gate.Grid(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, grid, date, slot, "create"); err != nil {
		return nil, err
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = defaultBookingTimezone
	}
	service := strings.TrimSpace(req.Service)
	if service == "" {
		service = s.defaultService
	}
	booking := &models.Booking{
		Name:      name,
		Email:     email,
		Service:   service,
		Date:      date,
		Time:      slot,
		Status:    models.BookingConfirmed,
		Timezone:  timezone,
		Notes:     trimOptional(req.Notes),
		CreatedAt: s.clock.Now().UTC(),
	}

	release := s.locks.Lock(slotKey(date.String(), slot))
	err = s.reserve(ctx, booking)
	release()
	if err != nil {
		return nil, err
	}

	s.gate.Invalidate(ctx, date)
	s.metrics.BookingCreated()
	s.logger.Info("booking created", zap.String("booking_id", booking.ID), zap.String("date", date.String()), zap.String("time", slot))
	s.notifier.BookingCreated(*booking)
	return booking, nil
}

func (s *BookingService) reserve(ctx context.Context, booking *models.Booking) error {
	if err := s.ensureFree(ctx, booking.Date, booking.Time, "", "create"); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		if database.IsUniqueViolation(err, occupiedSlotConstraint) {
			s.metrics.BookingConflict("create")
			return appErrors.WithField(appErrors.ErrSlotTaken, "time", appErrors.ErrSlotTaken.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
	return nil
}

// checkSlot requires slot to be on grid and not closed by an admin block.
func (s *BookingService) checkSlot(ctx context.Context, grid []string, date models.Date, slot, operation string) error {
	if !contains(grid, slot) {
		return appErrors.WithField(appErrors.ErrValidation, "time", fmt.Sprintf("%s is not a bookable time on %s", slot, date))
	}
	blockedSlots, err := s.blocked.BlockedSlotTimes(ctx, date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check blocked slots")
	}
	if contains(blockedSlots, slot) {
		s.metrics.BookingConflict(operation)
		return appErrors.WithField(appErrors.ErrSlotTaken, "time", "this time slot is not available, please pick another time")
	}
	return nil
}

func (s *BookingService) ensureFree(ctx context.Context, date models.Date, slot, excludeID, operation string) error {
	_, err := s.repo.FindOccupying(ctx, date, slot, excludeID)
	switch {
	case err == nil:
		s.metrics.BookingConflict(operation)
		return appErrors.WithField(appErrors.ErrSlotTaken, "time", appErrors.ErrSlotTaken.Message)
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot")
	}
}

// Get returns a booking by id.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// List returns a filtered page of bookings.
func (s *BookingService) List(ctx context.Context, query dto.BookingListQuery) ([]models.Booking, *models.Pagination, error) {
	filter, err := s.filterFrom(query)
	if err != nil {
		return nil, nil, err
	}
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return bookings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ExportResult is a rendered bookings document.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export renders every booking matching query as CSV or PDF.
func (s *BookingService) Export(ctx context.Context, query dto.BookingListQuery) (*ExportResult, error) {
	format := query.Format
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.WithField(appErrors.ErrValidation, "format", fmt.Sprintf("unsupported export format %q", format))
	}
	filter, err := s.filterFrom(query)
	if err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for export")
	}

	table := export.Table{Columns: []string{"Date", "Time", "Name", "Email", "Service", "Status", "Timezone", "Notes", "Created"}}
	for _, b := range bookings {
		notes := ""
		if b.Notes != nil {
			notes = *b.Notes
		}
		table.Append(b.Date.String(), b.Time, b.Name, b.Email, b.Service, string(b.Status), b.Timezone, notes, b.CreatedAt.UTC().Format(time.RFC3339))
	}
	body, err := renderer.Render(table, "Bookings")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	stamp := s.clock.Now().UTC().Format("20060102-150405")
	return &ExportResult{
		Filename:    fmt.Sprintf("bookings-%s.%s", stamp, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *BookingService) filterFrom(query dto.BookingListQuery) (models.BookingFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.BookingFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking filter")
	}
	from, to, err := parseRange(query.From, query.To)
	if err != nil {
		return models.BookingFilter{}, err
	}
	filter := models.BookingFilter{
		From:     from,
		To:       to,
		Email:    strings.ToLower(strings.TrimSpace(query.Email)),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Status != "" {
		status := models.BookingStatus(query.Status)
		filter.Status = &status
	}
	return filter, nil
}

// Update applies an admin PATCH: a date and time pair reschedules, a status alone
// transitions. A reschedule takes precedence over a status in the same request.
func (s *BookingService) Update(ctx context.Context, id string, req dto.UpdateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking update")
	}
	hasDate := strings.TrimSpace(req.Date) != ""
	hasTime := strings.TrimSpace(req.Time) != ""
	switch {
	case hasDate && hasTime:
		return s.Reschedule(ctx, id, req.Date, req.Time)
	case hasDate != hasTime:
		return nil, appErrors.WithField(appErrors.ErrValidation, "date", "date and time must be provided together to reschedule")
	case req.Status != "":
		return s.UpdateStatus(ctx, id, models.BookingStatus(req.Status))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "provide a status or a new date and time")
	}
}

// UpdateStatus moves a booking along the status machine. The write only lands
// on the status that was checked; a concurrent change is re-read and re-checked.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	if !status.Valid() {
		return nil, appErrors.WithField(appErrors.ErrValidation, "status", fmt.Sprintf("unknown status %q", status))
	}
	for attempt := 1; ; attempt++ {
		booking, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !CanTransition(booking.Status, status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot change booking from %s to %s", booking.Status, status))
		}

		now := s.clock.Now().UTC()
		err = s.repo.UpdateStatus(ctx, id, booking.Status, status, now)
		switch {
		case err == nil:
			previous := booking.Status
			booking.Status = status
			booking.UpdatedAt = now
			s.gate.Invalidate(ctx, booking.Date)
			s.logger.Info("booking status updated", zap.String("booking_id", id), zap.String("from", string(previous)), zap.String("to", string(status)))
			s.notifier.StatusChanged(*booking)
			return booking, nil
		case errors.Is(err, sql.ErrNoRows):
			if attempt == maxWriteAttempts {
				return nil, appErrors.Clone(appErrors.ErrConflict, "booking changed while updating, please retry")
			}
		case database.IsUniqueViolation(err, occupiedSlotConstraint):
			s.metrics.BookingConflict("status")
			return nil, appErrors.Clone(appErrors.ErrSlotTaken, appErrors.ErrSlotTaken.Message)
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
		}
	}
}

// Reschedule moves a booking to a new slot. Admin reschedules bypass the
// booking window but must land on a working day's grid, off any blocked
// date or slot and never on an occupied slot.
func (s *BookingService) Reschedule(ctx context.Context, id, rawDate, rawTime string) (*models.Booking, error) {
	date, err := models.ParseDate(strings.TrimSpace(rawDate))
	if err != nil {
		return nil, appErrors.WithField(appErrors.ErrValidation, "date", "date must be formatted as YYYY-MM-DD")
	}
	slot := strings.TrimSpace(rawTime)
	if !IsSlotLabel(slot) {
		return nil, appErrors.WithField(appErrors.ErrInvalidTimeFormat, "time", "time must be HH:MM in 24-hour format")
	}
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	grid, err := s.gate.DayGrid(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, grid, date, slot, "reschedule"); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			if booking, err = s.Get(ctx, id); err != nil {
				return nil, err
			}
		}
		if booking.Status.Terminal() {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot reschedule a %s booking", booking.Status))
		}

		moved, err := s.moveBooking(ctx, booking, date, slot)
		if err == nil {
			return moved, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if attempt == maxWriteAttempts {
			return nil, appErrors.Clone(appErrors.ErrConflict, "booking changed while rescheduling, please retry")
		}
	}
}

// moveBooking writes the reschedule under both slot locks. It returns
// sql.ErrNoRows untouched when the booking left its observed status.
func (s *BookingService) moveBooking(ctx context.Context, booking *models.Booking, date models.Date, slot string) (*models.Booking, error) {
	release := s.locks.LockPair(slotKey(booking.Date.String(), booking.Time), slotKey(date.String(), slot))
	defer release()

	if err := s.ensureFree(ctx, date, slot, booking.ID, "reschedule"); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if err := s.repo.Reschedule(ctx, booking.ID, booking.Status, date, slot, now); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, err
		case database.IsUniqueViolation(err, occupiedSlotConstraint):
			s.metrics.BookingConflict("reschedule")
			return nil, appErrors.WithField(appErrors.ErrSlotTaken, "time", appErrors.ErrSlotTaken.Message)
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule booking")
		}
	}

	oldDate, oldTime := booking.Date, booking.Time
	booking.Date = date
	booking.Time = slot
	booking.Status = models.BookingRescheduled
	booking.UpdatedAt = now

	s.gate.Invalidate(ctx, oldDate)
	s.gate.Invalidate(ctx, date)
	s.logger.Info("booking rescheduled", zap.String("booking_id", booking.ID),
		zap.String("old_date", oldDate.String()), zap.String("old_time", oldTime),
		zap.String("date", date.String()), zap.String("time", slot))
	s.notifier.Rescheduled(*booking, oldDate, oldTime)
	return booking, nil
}

// Delete removes a booking permanently and notifies the guest.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking")
	}
	s.gate.Invalidate(ctx, booking.Date)
	s.logger.Info("booking deleted", zap.String("booking_id", id), zap.String("date", booking.Date.String()), zap.String("time", booking.Time))
	s.notifier.Deleted(*booking)
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
