package dailyreport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Cache keeps computed reports in redis for a short TTL. Reports for past days
// never change once the day's projections settle, and today's report tolerates
// a few minutes of staleness.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache builds Cache.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(owner shared.Owner, day time.Time) string {
	return fmt.Sprintf("report:%s:%s", owner.String(), day.Format("2006-01-02"))
}

// Get returns the cached report, reporting a miss on absence or any redis error.
func (c *Cache) Get(ctx context.Context, owner shared.Owner, day time.Time) (Report, bool) {
	payload, err := c.client.Get(ctx, cacheKey(owner, day)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("report cache read failed", slog.Any("error", err))
		}
		return Report{}, false
	}
	var report Report
	if err := json.Unmarshal(payload, &report); err != nil {
		c.logger.Warn("report cache entry corrupt", slog.Any("error", err))
		return Report{}, false
	}
	return report, true
}

// Set stores a report. Failures are logged, never surfaced; the cache is an
// optimization only.
func (c *Cache) Set(ctx context.Context, owner shared.Owner, day time.Time, report Report) {
	payload, err := json.Marshal(report)
	if err != nil {
		c.logger.Warn("report cache encode failed", slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, cacheKey(owner, day), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("report cache write failed", slog.Any("error", err))
	}
}

// Invalidate drops one cached report.
func (c *Cache) Invalidate(ctx context.Context, owner shared.Owner, day time.Time) {
	if err := c.client.Del(ctx, cacheKey(owner, day)).Err(); err != nil {
		c.logger.Warn("report cache invalidation failed", slog.Any("error", err))
	}
}
