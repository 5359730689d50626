package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/elevate-booking-api/internal/service"
)

type pingerMock struct {
	err error
}

func (p pingerMock) PingContext(context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	c, w := newJSONContext(http.MethodGet, "/readyz", nil)
	NewMetricsHandler(nil, pingerMock{}).Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newJSONContext(http.MethodGet, "/readyz", nil)
	NewMetricsHandler(nil, pingerMock{err: errors.New("connection refused")}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.BookingCreated()
	c, w := newJSONContext(http.MethodGet, "/metrics", nil)

	NewMetricsHandler(metrics, nil).Prometheus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bookings_created_total 1")
}
