package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

func newTestStatsCache(t *testing.T) (*miniredis.Miniredis, StatsCache) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, NewRedisStatsCache(client, time.Minute)
}

func TestRedisStatsCache(t *testing.T) {
	ctx := context.Background()
	monthly := &domain.TicketStats{Labels: []string{"2024-02", "2024-03"}, Data: []int{1, 3}}

	t.Run("MissOnEmpty", func(t *testing.T) {
		_, cache := newTestStatsCache(t)

		stats, ok, err := cache.Get(ctx, domain.StatsPeriodMonth)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, stats)

		gen, err := cache.Generation(ctx)
		require.NoError(t, err)
		assert.Zero(t, gen)
	})

	t.Run("RoundTripWithTTL", func(t *testing.T) {
		srv, cache := newTestStatsCache(t)

		require.NoError(t, cache.Set(ctx, domain.StatsPeriodMonth, 0, monthly))
		assert.True(t, srv.Exists("support-desk:stats:month"))
		assert.Equal(t, time.Minute, srv.TTL("support-desk:stats:month"))

		stats, ok, err := cache.Get(ctx, domain.StatsPeriodMonth)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, monthly, stats)

		srv.FastForward(2 * time.Minute)
		_, ok, err = cache.Get(ctx, domain.StatsPeriodMonth)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("InvalidateDropsEveryPeriod", func(t *testing.T) {
		srv, cache := newTestStatsCache(t)
		for _, period := range []domain.StatsPeriod{domain.StatsPeriodDay, domain.StatsPeriodWeek, domain.StatsPeriodMonth} {
			require.NoError(t, cache.Set(ctx, period, 0, monthly))
		}

		require.NoError(t, cache.Invalidate(ctx))

		assert.False(t, srv.Exists("support-desk:stats:day"))
		assert.False(t, srv.Exists("support-desk:stats:week"))
		assert.False(t, srv.Exists("support-desk:stats:month"))
		gen, err := cache.Generation(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, gen)
	})

	t.Run("SetAfterInvalidateIsRejected", func(t *testing.T) {
		srv, cache := newTestStatsCache(t)
		gen, err := cache.Generation(ctx)
		require.NoError(t, err)

		require.NoError(t, cache.Invalidate(ctx))

		err = cache.Set(ctx, domain.StatsPeriodDay, gen, monthly)
		assert.ErrorIs(t, err, ErrStaleStats)
		assert.False(t, srv.Exists("support-desk:stats:day"))

		fresh, err := cache.Generation(ctx)
		require.NoError(t, err)
		require.NoError(t, cache.Set(ctx, domain.StatsPeriodDay, fresh, monthly))
		assert.True(t, srv.Exists("support-desk:stats:day"))
	})

	t.Run("CorruptEntryIsAnError", func(t *testing.T) {
		srv, cache := newTestStatsCache(t)
		require.NoError(t, srv.Set("support-desk:stats:week", "{not json"))

		_, ok, err := cache.Get(ctx, domain.StatsPeriodWeek)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
