package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/internal/repository"
	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
)

type stubOccupancy struct {
	times []string
	err   error
	calls int
}

func (s *stubOccupancy) OccupiedTimes(context.Context, models.Date) ([]string, error) {
	s.calls++
	return s.times, s.err
}

type stubSchedule struct {
	days         map[time.Weekday]models.Hours
	blockedDates map[string]bool
	blockedSlots []string
	slotErr      error
}

func weekdaySchedule() *stubSchedule {
	days := map[time.Weekday]models.Hours{}
	for d := time.Monday; d <= time.Friday; d++ {
		days[d] = models.Hours{Start: 9, End: 17}
	}
	return &stubSchedule{days: days, blockedDates: map[string]bool{}}
}

func (s *stubSchedule) HoursFor(_ context.Context, weekday time.Weekday) (models.Hours, bool, error) {
	h, ok := s.days[weekday]
	return h, ok, nil
}

func (s *stubSchedule) IsBlocked(_ context.Context, date models.Date) (bool, error) {
	return s.blockedDates[date.String()], nil
}

func (s *stubSchedule) BlockedSlotTimes(context.Context, models.Date) ([]string, error) {
	return s.blockedSlots, s.slotErr
}

// 2025-06-01 is a Sunday, so the window opens on Monday 2025-06-02.
var availabilityNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newAvailabilityFixture(t *testing.T, occupancy *stubOccupancy, schedule *stubSchedule, cache *CacheService, metrics *MetricsService) *AvailabilityService {
	t.Helper()
	return NewAvailabilityService(occupancy, schedule, newTestPolicy(t, availabilityNow), cache, time.Minute, metrics, nil)
}

func slotTimes(slots []models.Slot, available bool) []string {
	out := []string{}
	for _, s := range slots {
		if s.Available == available {
			out = append(out, s.Time)
		}
	}
	return out
}

func TestAvailabilityServiceMarksOccupiedAndBlockedSlots(t *testing.T) {
	occupancy := &stubOccupancy{times: []string{"09:00", "13:30"}}
	schedule := weekdaySchedule()
	schedule.blockedSlots = []string{"10:00"}
	svc := newAvailabilityFixture(t, occupancy, schedule, nil, nil)

	result, err := svc.Resolve(context.Background(), models.MustParseDate("2025-06-02"))

	require.NoError(t, err)
	require.Len(t, result.Slots, 16)
	assert.Equal(t, "09:00", result.Slots[0].Time)
	assert.Equal(t, "16:30", result.Slots[15].Time)
	assert.Equal(t, []string{"09:00", "10:00", "13:30"}, slotTimes(result.Slots, false))
	assert.False(t, result.Degraded)
}

func TestAvailabilityServiceClosedDaysAreEmpty(t *testing.T) {
	schedule := weekdaySchedule()
	schedule.blockedDates["2025-06-03"] = true
	occupancy := &stubOccupancy{}
	svc := newAvailabilityFixture(t, occupancy, schedule, nil, nil)

	saturday, err := svc.Resolve(context.Background(), models.MustParseDate("2025-06-07"))
	require.NoError(t, err)
	assert.Empty(t, saturday.Slots)

	blocked, err := svc.Resolve(context.Background(), models.MustParseDate("2025-06-03"))
	require.NoError(t, err)
	assert.Empty(t, blocked.Slots)
	assert.Zero(t, occupancy.calls)
}

func TestAvailabilityServiceRejectsDatesOutsideWindow(t *testing.T) {
	svc := newAvailabilityFixture(t, &stubOccupancy{}, weekdaySchedule(), nil, nil)

	for _, raw := range []string{"2025-06-01", "2025-05-30", "2025-07-02"} {
		_, err := svc.Resolve(context.Background(), models.MustParseDate(raw))
		assert.True(t, errors.Is(err, appErrors.ErrOutsideWindow), raw)
	}
}

func TestAvailabilityServiceDegradesWhenOccupancyFails(t *testing.T) {
	metrics := NewMetricsService()
	occupancy := &stubOccupancy{err: errors.New("db down")}
	schedule := weekdaySchedule()
	schedule.slotErr = errors.New("db down")
	svc := newAvailabilityFixture(t, occupancy, schedule, nil, metrics)

	result, err := svc.Resolve(context.Background(), models.MustParseDate("2025-06-02"))

	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Len(t, slotTimes(result.Slots, true), 16)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.availabilityDegraded))
}

func TestAvailabilityServiceBlockedSlotFailureIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCacheService(repository.NewCacheRepository(client, nil), nil, time.Minute, nil, true)
	metrics := NewMetricsService()

	schedule := weekdaySchedule()
	schedule.slotErr = errors.New("db down")
	svc := newAvailabilityFixture(t, &stubOccupancy{times: []string{"09:00"}}, schedule, cache, metrics)

	result, err := svc.Resolve(context.Background(), models.MustParseDate("2025-06-02"))

	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, []string{"09:00"}, slotTimes(result.Slots, false))
	assert.False(t, mr.Exists("booking:availability:2025-06-02"))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.availabilityDegraded))
}

func TestAvailabilityServiceDayGridSkipsWindow(t *testing.T) {
	svc := newAvailabilityFixture(t, &stubOccupancy{}, weekdaySchedule(), nil, nil)

	grid, err := svc.DayGrid(context.Background(), models.MustParseDate("2025-09-01"))
	require.NoError(t, err)
	assert.Len(t, grid, 16)

	_, err = svc.DayGrid(context.Background(), models.MustParseDate("2025-09-06"))
	assert.True(t, errors.Is(err, appErrors.ErrNonWorkingDay))
}

func TestAvailabilityServiceGridGate(t *testing.T) {
	schedule := weekdaySchedule()
	schedule.blockedDates["2025-06-03"] = true
	svc := newAvailabilityFixture(t, &stubOccupancy{}, schedule, nil, nil)
	ctx := context.Background()

	grid, err := svc.Grid(ctx, models.MustParseDate("2025-06-02"))
	require.NoError(t, err)
	assert.Len(t, grid, 16)

	_, err = svc.Grid(ctx, models.MustParseDate("2025-06-07"))
	assert.True(t, errors.Is(err, appErrors.ErrNonWorkingDay))

	_, err = svc.Grid(ctx, models.MustParseDate("2025-06-03"))
	assert.True(t, errors.Is(err, appErrors.ErrDateBlocked))

	_, err = svc.Grid(ctx, models.MustParseDate("2025-06-01"))
	assert.True(t, errors.Is(err, appErrors.ErrOutsideWindow))
}

func TestAvailabilityServiceCachesAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCacheService(repository.NewCacheRepository(client, nil), nil, time.Minute, nil, true)

	occupancy := &stubOccupancy{times: []string{"09:00"}}
	svc := newAvailabilityFixture(t, occupancy, weekdaySchedule(), cache, nil)
	ctx := context.Background()
	date := models.MustParseDate("2025-06-02")

	_, err := svc.Resolve(ctx, date)
	require.NoError(t, err)
	assert.True(t, mr.Exists("booking:availability:2025-06-02"))

	occupancy.times = []string{"09:00", "09:30"}
	cached, err := svc.Resolve(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, slotTimes(cached.Slots, false))
	assert.True(t, cached.Cached)
	assert.Equal(t, 1, occupancy.calls)

	svc.Invalidate(ctx, date)
	fresh, err := svc.Resolve(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, slotTimes(fresh.Slots, false))
	assert.Equal(t, 2, occupancy.calls)
}

func TestParseRequestedDate(t *testing.T) {
	_, err := ParseRequestedDate(" ")
	assert.True(t, errors.Is(err, appErrors.ErrMissingField))

	_, err = ParseRequestedDate("2025-13-01")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	date, err := ParseRequestedDate("2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", date.String())
}
