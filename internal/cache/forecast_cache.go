package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/telemetry"
)

const (
	lockPrefix   = "lock:"
	statusPrefix = "status:"
)

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// RedisForecastCache stores comparison bundles, warmup status records and per-key locks in Redis.
type RedisForecastCache struct {
	client redis.Cmdable
	logger logrus.FieldLogger
	now    func() time.Time

	mu    sync.Mutex
	stats CacheStats
}

// NewRedisForecastCache creates a Redis-backed forecast cache
func NewRedisForecastCache(client redis.Cmdable, logger logrus.FieldLogger) *RedisForecastCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisForecastCache{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the cached entry, or nil when there is none
func (c *RedisForecastCache) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "cache.Get",
		trace.WithAttributes(telemetry.StringAttribute("cache.key", key)))
	defer span.End()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.count(func(s *CacheStats) { s.Misses++ })
		span.SetAttributes(telemetry.BoolAttribute("cache.hit", false))
		return nil, nil
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is treated as a miss so the next warmup overwrites it.
		c.logger.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Discarding undecodable forecast cache entry")
		c.count(func(s *CacheStats) { s.Misses++ })
		span.SetAttributes(telemetry.BoolAttribute("cache.hit", false))
		return nil, nil
	}
	c.count(func(s *CacheStats) { s.Hits++ })
	span.SetAttributes(
		telemetry.BoolAttribute("cache.hit", true),
		telemetry.BoolAttribute("cache.fresh", entry.IsFresh(c.now())),
	)
	telemetry.SetSpanStatus(span, codes.Ok, "")
	return &entry, nil
}

// Set stores bundle; it is fresh for freshTTL and evicted after staleTTL
func (c *RedisForecastCache) Set(ctx context.Context, key string, bundle *models.ComparisonBundle, freshTTL, staleTTL time.Duration) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "cache.Set",
		trace.WithAttributes(telemetry.StringAttribute("cache.key", key)))
	defer span.End()

	now := c.now()
	entry := models.CacheEntry{Bundle: bundle, StoredAt: now, FreshUntil: now.Add(freshTTL)}
	data, err := json.Marshal(entry)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("encode forecast cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, data, max(staleTTL, freshTTL)).Err(); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	c.count(func(s *CacheStats) { s.Sets++ })
	span.SetAttributes(telemetry.Int64Attribute("cache.bytes", int64(len(data))))
	c.logger.WithFields(logrus.Fields{"key": key, "fresh_ttl": freshTTL.String(), "stale_ttl": staleTTL.String()}).
		Debug("Cached forecast comparison")
	return nil
}

// Acquire takes the per-key lock with SET NX and returns the token that owns it; false means another
// worker holds it
func (c *RedisForecastCache) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lock only if it is still held by token
func (c *RedisForecastCache) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, c.client, []string{lockPrefix + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis unlock %s: %w", key, err)
	}
	return nil
}

// IsLocked reports whether any worker holds the lock for key
func (c *RedisForecastCache) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, lockPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// SetStatus records the last warmup outcome for key
func (c *RedisForecastCache) SetStatus(ctx context.Context, key string, record models.StatusRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode status record: %w", err)
	}
	if err := c.client.Set(ctx, statusPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set status %s: %w", key, err)
	}
	return nil
}

// GetStatus returns the last warmup outcome for key, or nil when none was recorded
func (c *RedisForecastCache) GetStatus(ctx context.Context, key string) (*models.StatusRecord, error) {
	data, err := c.client.Get(ctx, statusPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get status %s: %w", key, err)
	}
	var record models.StatusRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode status record: %w", err)
	}
	return &record, nil
}

// GetStats returns current cache statistics
func (c *RedisForecastCache) GetStats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LogStats logs current cache performance statistics
func (c *RedisForecastCache) LogStats() {
	stats := c.GetStats()
	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"hit_rate": hitRate(stats),
	}).Info("Forecast cache stats")
}

func (c *RedisForecastCache) count(f func(*CacheStats)) {
	c.mu.Lock()
	f(&c.stats)
	c.mu.Unlock()
}

func hitRate(s CacheStats) float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
