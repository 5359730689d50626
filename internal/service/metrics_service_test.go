package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceDomainCounters(t *testing.T) {
	m := NewMetricsService()

	m.BookingCreated()
	m.BookingConflict("create")
	m.BookingConflict("create")
	m.RateLimited()
	m.AvailabilityDegraded()
	m.NotificationResult("booking.confirmation", "delivered")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.bookingsCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.bookingConflicts.WithLabelValues("create")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.availabilityDegraded))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("booking.confirmation", "delivered")))
}

func TestMetricsServiceCacheHitRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.InDelta(t, 0.75, testutil.ToFloat64(m.cacheHitRatio), 0.0001)
}

func TestMetricsServiceHandlerExposesCounters(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/bookings", http.StatusCreated, 10*time.Millisecond)
	m.BookingCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "bookings_created_total 1"))
	assert.True(t, strings.Contains(body, `http_requests_total{method="POST",path="/api/v1/bookings",status="201"} 1`))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.BookingCreated()
	m.NotificationResult("e", "r")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
