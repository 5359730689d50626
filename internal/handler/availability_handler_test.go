package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elevate-booking-api/internal/dto"
	"github.com/noah-isme/elevate-booking-api/internal/models"
	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
)

type availabilityResolverMock struct {
	result    *models.Availability
	err       error
	requested models.Date
}

func (m *availabilityResolverMock) Resolve(_ context.Context, date models.Date) (*models.Availability, error) {
	m.requested = date
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type publicScheduleMock struct {
	days    map[time.Weekday]models.Hours
	daysErr error
	blocked []string
}

func (m *publicScheduleMock) WorkingDays(context.Context) (map[time.Weekday]models.Hours, error) {
	return m.days, m.daysErr
}

func (m *publicScheduleMock) BlockedDatesInWindow(context.Context) []string {
	return m.blocked
}

func newJSONContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	payload := decodeEnvelope(t, w)
	errBody, ok := payload["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	return errBody["code"].(string)
}

func TestAvailabilityHandlerGet(t *testing.T) {
	resolver := &availabilityResolverMock{result: &models.Availability{
		Date:   models.MustParseDate("2025-06-02"),
		Slots:  []models.Slot{{Time: "09:00", Available: false}, {Time: "09:30", Available: true}},
		Cached: true,
	}}
	h := NewAvailabilityHandler(resolver, &publicScheduleMock{})
	c, w := newJSONContext(http.MethodGet, "/availability?date=2025-06-02", nil)

	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "2025-06-02", resolver.requested.String())

	var payload struct {
		Data dto.AvailabilityResponse `json:"data"`
		Meta map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "2025-06-02", payload.Data.Date)
	require.Len(t, payload.Data.Slots, 2)
	assert.True(t, payload.Data.Slots[1].Available)
	assert.Equal(t, true, payload.Meta["cache_hit"])
	assert.NotContains(t, payload.Meta, "degraded")
}

func TestAvailabilityHandlerGetDegraded(t *testing.T) {
	resolver := &availabilityResolverMock{result: &models.Availability{
		Date:     models.MustParseDate("2025-06-02"),
		Slots:    []models.Slot{{Time: "09:00", Available: true}},
		Degraded: true,
	}}
	h := NewAvailabilityHandler(resolver, &publicScheduleMock{})
	c, w := newJSONContext(http.MethodGet, "/availability?date=2025-06-02", nil)

	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["degraded"])
}

func TestAvailabilityHandlerGetErrors(t *testing.T) {
	cases := map[string]struct {
		target string
		err    error
		status int
		code   string
	}{
		"missing date":  {target: "/availability", status: http.StatusBadRequest, code: appErrors.ErrMissingField.Code},
		"malformed":     {target: "/availability?date=06/02/2025", status: http.StatusBadRequest, code: appErrors.ErrValidation.Code},
		"out of window": {target: "/availability?date=2030-01-01", err: appErrors.ErrOutsideWindow, status: http.StatusBadRequest, code: appErrors.ErrOutsideWindow.Code},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewAvailabilityHandler(&availabilityResolverMock{err: tc.err}, &publicScheduleMock{})
			c, w := newJSONContext(http.MethodGet, tc.target, nil)

			h.Get(c)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCodeOf(t, w))
		})
	}
}

func TestAvailabilityHandlerBlockedDates(t *testing.T) {
	h := NewAvailabilityHandler(&availabilityResolverMock{}, &publicScheduleMock{blocked: []string{"2025-06-10"}})
	c, w := newJSONContext(http.MethodGet, "/availability/blocked-dates", nil)

	h.BlockedDates(c)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Data dto.BlockedDatesResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, []string{"2025-06-10"}, payload.Data.Dates)
}

func TestAvailabilityHandlerWorkingDays(t *testing.T) {
	schedule := &publicScheduleMock{days: map[time.Weekday]models.Hours{
		time.Wednesday: {Start: 10, End: 16},
		time.Monday:    {Start: 9, End: 17},
	}}
	h := NewAvailabilityHandler(&availabilityResolverMock{}, schedule)
	c, w := newJSONContext(http.MethodGet, "/availability/working-days", nil)

	h.WorkingDays(c)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Data dto.WorkingDaysResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, []dto.WorkingDay{
		{Day: 1, StartTime: "09:00", EndTime: "17:00"},
		{Day: 3, StartTime: "10:00", EndTime: "16:00"},
	}, payload.Data.Days)

	failing := NewAvailabilityHandler(&availabilityResolverMock{}, &publicScheduleMock{daysErr: appErrors.Wrap(errors.New("db"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed")})
	c, w = newJSONContext(http.MethodGet, "/availability/working-days", nil)
	failing.WorkingDays(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
