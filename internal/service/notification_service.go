package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/pkg/config"
	"github.com/noah-isme/elevate-booking-api/pkg/jobs"
)

// NotificationSink delivers booking events to one destination.
type NotificationSink interface {
	Name() string
	Deliver(ctx context.Context, event models.BookingEvent) error
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a sink backed by logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, event models.BookingEvent) error {
	fields := []zap.Field{
		zap.String("event", string(event.Type)),
		zap.String("booking_id", event.BookingID),
		zap.String("recipient", event.Recipient),
		zap.String("date", event.Date),
		zap.String("time", event.Time),
		zap.String("status", string(event.Status)),
	}
	if event.OldDate != "" {
		fields = append(fields, zap.String("old_date", event.OldDate), zap.String("old_time", event.OldTime))
	}
	s.logger.Info("booking notification", fields...)
	return nil
}

type eventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// BrokerSink publishes events to the message broker, routed by event type.
type BrokerSink struct {
	publisher eventPublisher
}

// NewBrokerSink wraps a publisher.
func NewBrokerSink(publisher eventPublisher) *BrokerSink {
	return &BrokerSink{publisher: publisher}
}

func (s *BrokerSink) Name() string { return "broker" }

func (s *BrokerSink) Deliver(ctx context.Context, event models.BookingEvent) error {
	if err := s.publisher.PublishJSON(ctx, string(event.Type), event); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

type delivery struct {
	sink  NotificationSink
	event models.BookingEvent
}

type jobQueue interface {
	Start(ctx context.Context)
	Stop()
	TryEnqueue(job jobs.Job) error
}

// NotificationService hands booking lifecycle events to the sinks in the
// background. Dispatch never blocks and never reports failure to the caller.
type NotificationService struct {
	queue      jobQueue
	sinks      []NotificationSink
	adminEmail string
	enabled    bool
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService builds the dispatcher and its worker queue.
func NewNotificationService(cfg config.NotificationConfig, sinks []NotificationSink, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		sinks:      sinks,
		adminEmail: cfg.AdminEmail,
		enabled:    cfg.Enabled && len(sinks) > 0,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.Buffer,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains buffered events and stops the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// BookingCreated sends the guest confirmation and the admin notice.
func (s *NotificationService) BookingCreated(booking models.Booking) {
	if !s.active() {
		return
	}
	s.dispatch(s.event(models.EventBookingConfirmation, booking, booking.Email))
	if s.adminEmail != "" {
		s.dispatch(s.event(models.EventBookingAdminNotice, booking, s.adminEmail))
	}
}

// StatusChanged sends a cancellation notice or a generic status update.
func (s *NotificationService) StatusChanged(booking models.Booking) {
	if !s.active() {
		return
	}
	eventType := models.EventBookingStatus
	if booking.Status == models.BookingCancelled {
		eventType = models.EventBookingCancelled
	}
	s.dispatch(s.event(eventType, booking, booking.Email))
}

// Rescheduled sends the reschedule notice carrying the previous slot.
func (s *NotificationService) Rescheduled(booking models.Booking, oldDate models.Date, oldTime string) {
	if !s.active() {
		return
	}
	event := s.event(models.EventBookingRescheduled, booking, booking.Email)
	event.OldDate = oldDate.String()
	event.OldTime = oldTime
	s.dispatch(event)
}

// Deleted sends a cancellation notice for a removed booking's former slot.
func (s *NotificationService) Deleted(booking models.Booking) {
	if !s.active() {
		return
	}
	booking.Status = models.BookingCancelled
	s.dispatch(s.event(models.EventBookingCancelled, booking, booking.Email))
}

func (s *NotificationService) event(eventType models.BookingEventType, booking models.Booking, recipient string) models.BookingEvent {
	return models.BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		Name:       booking.Name,
		Email:      booking.Email,
		Recipient:  recipient,
		Service:    booking.Service,
		Date:       booking.Date.String(),
		Time:       booking.Time,
		Timezone:   booking.Timezone,
		Status:     booking.Status,
		OccurredAt: s.now().UTC(),
	}
}

func (s *NotificationService) active() bool {
	return s != nil && s.enabled
}

func (s *NotificationService) dispatch(event models.BookingEvent) {
	for _, sink := range s.sinks {
		err := s.queue.TryEnqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    string(event.Type),
			Payload: delivery{sink: sink, event: event},
		})
		if err != nil {
			s.metrics.NotificationResult(string(event.Type), "dropped")
			level := s.logger.Warn
			if errors.Is(err, jobs.ErrQueueStopped) {
				level = s.logger.Error
			}
			level("notification dropped", zap.String("event", string(event.Type)), zap.String("sink", sink.Name()), zap.String("booking_id", event.BookingID), zap.Error(err))
			continue
		}
		s.metrics.NotificationResult(string(event.Type), "queued")
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	d, ok := job.Payload.(delivery)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	if err := d.sink.Deliver(ctx, d.event); err != nil {
		s.metrics.NotificationResult(job.Type, "failed")
		return err
	}
	s.metrics.NotificationResult(job.Type, "delivered")
	return nil
}
