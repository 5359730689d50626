package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/elevate-booking-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, zap.NewNop()), srv
}

func TestCacheRepositoryRoundTripAndExpiry(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "booking:availability:2025-06-02", []string{"09:00"}, time.Minute))

	var got []string
	require.NoError(t, repo.Get(ctx, "booking:availability:2025-06-02", &got))
	assert.Equal(t, []string{"09:00"}, got)

	srv.FastForward(2 * time.Minute)
	err := repo.Get(ctx, "booking:availability:2025-06-02", &got)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "booking:availability:2025-06-02", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "booking:availability:2025-06-03", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "booking:working_hours", 1, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "booking:availability:*"))

	assert.False(t, srv.Exists("booking:availability:2025-06-02"))
	assert.False(t, srv.Exists("booking:availability:2025-06-03"))
	assert.True(t, srv.Exists("booking:working_hours"))
}

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest string
	assert.True(t, errors.Is(repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Second))
}

func TestCacheRepositoryDropsUndecodablePayload(t *testing.T) {
	repo, srv := newCacheRepo(t)
	require.NoError(t, srv.Set("booking:working_hours", "not-json"))

	var rules []map[string]interface{}
	err := repo.Get(context.Background(), "booking:working_hours", &rules)

	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.False(t, srv.Exists("booking:working_hours"))
}
