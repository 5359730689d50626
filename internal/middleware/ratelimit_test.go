package middleware

import (
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
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/elevate-booking-api/pkg/ratelimit"
)

type countingRecorder struct{ n int }

func (r *countingRecorder) RateLimited() { r.n++ }

type failingLimiter struct{}

func (failingLimiter) Admit(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis unavailable")
}

func newLimitedRouter(limiter admitter, recorder rateLimitRecorder, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/bookings", RateLimit(limiter, recorder, logger), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func post(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.RemoteAddr = ip + ":40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitRejectsAfterPolicyMax(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Policy{Max: 2, Window: time.Hour}, nil)
	recorder := &countingRecorder{}
	r := newLimitedRouter(limiter, recorder, nil)

	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1").Code)

	w := post(r, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
	assert.Equal(t, 1, recorder.n)

	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.2").Code, "other clients keep their own window")
}

func TestRateLimitAdmitsWhenLimiterFails(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := newLimitedRouter(failingLimiter{}, nil, zap.New(core))

	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1").Code)
	assert.Equal(t, 1, logs.Len())
}
