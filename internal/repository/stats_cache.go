package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

// ErrStaleStats is returned by StatsCache.Set when the cache was invalidated after the
// caller read its generation. The stats were computed from an outdated snapshot.
var ErrStaleStats = errors.New("stats computed before last invalidation")

// StatsCache stores computed ticket statistics per period. Writes are fenced by a
// generation counter that every Invalidate advances.
type StatsCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, period domain.StatsPeriod) (*domain.TicketStats, bool, error)
	Set(ctx context.Context, period domain.StatsPeriod, generation int64, stats *domain.TicketStats) error
	Invalidate(ctx context.Context) error
}

const (
	statsKeyPrefix     = "support-desk:stats:"
	statsGenerationKey = statsKeyPrefix + "generation"
)

var statsPeriods = []domain.StatsPeriod{domain.StatsPeriodDay, domain.StatsPeriodWeek, domain.StatsPeriodMonth}

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatsCache caches stats in Redis for ttl.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) StatsCache {
	return &redisStatsCache{client: client, ttl: ttl}
}

func statsKey(period domain.StatsPeriod) string {
	return statsKeyPrefix + string(period)
}

func readGeneration(ctx context.Context, cmd redis.Cmdable) (int64, error) {
	gen, err := cmd.Get(ctx, statsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisStatsCache) Generation(ctx context.Context) (int64, error) {
	return readGeneration(ctx, c.client)
}

func (c *redisStatsCache) Get(ctx context.Context, period domain.StatsPeriod) (*domain.TicketStats, bool, error) {
	raw, err := c.client.Get(ctx, statsKey(period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var stats domain.TicketStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false, fmt.Errorf("decode cached stats: %w", err)
	}
	return &stats, true, nil
}

// Set stores stats only while the generation still equals the one read before they
// were computed. WATCH aborts the write if Invalidate lands in between.
func (c *redisStatsCache) Set(ctx context.Context, period domain.StatsPeriod, generation int64, stats *domain.TicketStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx)
		if err != nil {
			return err
		}
		if current != generation {
			return ErrStaleStats
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsKey(period), raw, c.ttl)
			return nil
		})
		return err
	}, statsGenerationKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStaleStats
	}
	return err
}

// Invalidate advances the generation and drops every cached period in one transaction.
func (c *redisStatsCache) Invalidate(ctx context.Context) error {
	keys := make([]string, 0, len(statsPeriods))
	for _, period := range statsPeriods {
		keys = append(keys, statsKey(period))
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsGenerationKey)
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}
