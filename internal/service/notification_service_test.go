package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/pkg/config"
)

type recordingSink struct {
	mu       sync.Mutex
	events   []models.BookingEvent
	failures int
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, event models.BookingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp relay unavailable")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) received() []models.BookingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.BookingEvent(nil), s.events...)
}

type stubPublisher struct {
	keys []string
	err  error
}

func (p *stubPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return p.err
}

func notificationConfig() config.NotificationConfig {
	return config.NotificationConfig{
		Enabled:    true,
		Workers:    1,
		Buffer:     8,
		Retries:    2,
		RetryDelay: 5 * time.Millisecond,
		AdminEmail: "team@elevate.test",
	}
}

func sampleBooking() models.Booking {
	return models.Booking{
		ID:       "b1",
		Name:     "Ada",
		Email:    "ada@example.com",
		Service:  "Strategy Session",
		Date:     models.MustParseDate("2025-06-02"),
		Time:     "09:00",
		Status:   models.BookingConfirmed,
		Timezone: "UTC",
	}
}

func TestNotificationServiceBookingCreatedNotifiesGuestAndAdmin(t *testing.T) {
	sink := &recordingSink{}
	svc := NewNotificationService(notificationConfig(), []NotificationSink{sink}, nil, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.BookingCreated(sampleBooking())

	require.Eventually(t, func() bool { return len(sink.received()) == 2 }, time.Second, 5*time.Millisecond)
	recipients := map[models.BookingEventType]string{}
	for _, e := range sink.received() {
		recipients[e.Type] = e.Recipient
	}
	assert.Equal(t, "ada@example.com", recipients[models.EventBookingConfirmation])
	assert.Equal(t, "team@elevate.test", recipients[models.EventBookingAdminNotice])
}

func TestNotificationServiceRetriesFailedDelivery(t *testing.T) {
	sink := &recordingSink{failures: 1}
	metrics := NewMetricsService()
	svc := NewNotificationService(notificationConfig(), []NotificationSink{sink}, metrics, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	booking := sampleBooking()
	svc.Rescheduled(booking, models.MustParseDate("2025-06-01"), "15:00")

	require.Eventually(t, func() bool { return len(sink.received()) == 1 }, time.Second, 5*time.Millisecond)
	event := sink.received()[0]
	assert.Equal(t, models.EventBookingRescheduled, event.Type)
	assert.Equal(t, "2025-06-01", event.OldDate)
	assert.Equal(t, "15:00", event.OldTime)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.notifications.WithLabelValues("booking.rescheduled", "failed")))
}

func TestNotificationServiceStatusEvents(t *testing.T) {
	sink := &recordingSink{}
	svc := NewNotificationService(notificationConfig(), []NotificationSink{sink}, nil, zap.NewNop())
	svc.Start(context.Background())

	cancelled := sampleBooking()
	cancelled.Status = models.BookingCancelled
	svc.StatusChanged(cancelled)

	completed := sampleBooking()
	completed.Status = models.BookingCompleted
	svc.StatusChanged(completed)

	svc.Deleted(sampleBooking())
	svc.Stop()

	types := []models.BookingEventType{}
	for _, e := range sink.received() {
		types = append(types, e.Type)
	}
	assert.ElementsMatch(t, []models.BookingEventType{models.EventBookingCancelled, models.EventBookingStatus, models.EventBookingCancelled}, types)
}

func TestNotificationServiceDropsWhenNotRunning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	metrics := NewMetricsService()
	sink := &recordingSink{}
	svc := NewNotificationService(notificationConfig(), []NotificationSink{sink}, metrics, zap.New(core))

	assert.NotPanics(t, func() { svc.StatusChanged(sampleBooking()) })
	assert.Empty(t, sink.received())
	assert.Equal(t, 1, logs.FilterMessage("notification dropped").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.notifications.WithLabelValues("booking.status_updated", "dropped")))
}

func TestNotificationServiceDisabledIsSilent(t *testing.T) {
	cfg := notificationConfig()
	cfg.Enabled = false
	sink := &recordingSink{}
	svc := NewNotificationService(cfg, []NotificationSink{sink}, nil, nil)

	svc.BookingCreated(sampleBooking())
	assert.Empty(t, sink.received())

	var nilSvc *NotificationService
	assert.NotPanics(t, func() { nilSvc.BookingCreated(sampleBooking()) })
}

func TestBrokerSinkRoutesByEventType(t *testing.T) {
	publisher := &stubPublisher{}
	sink := NewBrokerSink(publisher)

	require.NoError(t, sink.Deliver(context.Background(), models.BookingEvent{Type: models.EventBookingCancelled}))
	assert.Equal(t, []string{"booking.cancelled"}, publisher.keys)

	publisher.err = errors.New("channel closed")
	assert.Error(t, sink.Deliver(context.Background(), models.BookingEvent{Type: models.EventBookingStatus}))
}
