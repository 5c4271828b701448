package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/irfndi/trendcast/internal/models"
)

type memoryItem struct {
	entry     models.CacheEntry
	expiresAt time.Time
}

type memoryLock struct {
	token string
	until time.Time
}

type memoryStatus struct {
	record    models.StatusRecord
	expiresAt time.Time
}

// MemoryForecastCache is a single-process forecast cache for development and tests.
// Locks are only exclusive within the process.
type MemoryForecastCache struct {
	mu       sync.Mutex
	now      func() time.Time
	entries  map[string]memoryItem
	locks    map[string]memoryLock
	statuses map[string]memoryStatus
	stats    CacheStats
}

// NewMemoryForecastCache creates an empty in-memory cache
func NewMemoryForecastCache() *MemoryForecastCache {
	return NewMemoryForecastCacheWithClock(time.Now)
}

// NewMemoryForecastCacheWithClock creates an empty in-memory cache using now as its clock
func NewMemoryForecastCacheWithClock(now func() time.Time) *MemoryForecastCache {
	return &MemoryForecastCache{
		now:      now,
		entries:  make(map[string]memoryItem),
		locks:    make(map[string]memoryLock),
		statuses: make(map[string]memoryStatus),
	}
}

func (c *MemoryForecastCache) Get(_ context.Context, key string) (*models.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.entries[key]
	if !ok || !c.now().Before(item.expiresAt) {
		delete(c.entries, key)
		c.stats.Misses++
		return nil, nil
	}
	c.stats.Hits++
	entry := item.entry
	return &entry, nil
}

func (c *MemoryForecastCache) Set(_ context.Context, key string, bundle *models.ComparisonBundle, freshTTL, staleTTL time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = memoryItem{
		entry:     models.CacheEntry{Bundle: bundle, StoredAt: now, FreshUntil: now.Add(freshTTL)},
		expiresAt: now.Add(max(staleTTL, freshTTL)),
	}
	c.stats.Sets++
	return nil
}

func (c *MemoryForecastCache) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if l, ok := c.locks[key]; ok && now.Before(l.until) {
		return "", false, nil
	}
	token := uuid.NewString()
	c.locks[key] = memoryLock{token: token, until: now.Add(ttl)}
	return token, true, nil
}

func (c *MemoryForecastCache) Release(_ context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.locks[key]; ok && l.token == token {
		delete(c.locks, key)
	}
	return nil
}

func (c *MemoryForecastCache) IsLocked(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	return ok && c.now().Before(l.until), nil
}

func (c *MemoryForecastCache) SetStatus(_ context.Context, key string, record models.StatusRecord, ttl time.Duration) error {
	c.mu.Lock()
	c.statuses[key] = memoryStatus{record: record, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryForecastCache) GetStatus(_ context.Context, key string) (*models.StatusRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[key]
	if !ok || !c.now().Before(s.expiresAt) {
		return nil, nil
	}
	record := s.record
	return &record, nil
}

// GetStats returns current cache statistics
func (c *MemoryForecastCache) GetStats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
