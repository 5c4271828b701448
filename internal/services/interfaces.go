package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/irfndi/trendcast/internal/models"
)

// SeriesProvider supplies historical trend points for the given subjects.
type SeriesProvider interface {
	FetchSeries(ctx context.Context, subjects []string, from, to time.Time) (models.Series, error)
}

// ForecastCache stores comparison bundles with a freshness and a staleness TTL,
// and provides the per-key mutual exclusion lock for warmups.
type ForecastCache interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Set(ctx context.Context, key string, bundle *models.ComparisonBundle, freshTTL, staleTTL time.Duration) error
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
	IsLocked(ctx context.Context, key string) (bool, error)
	SetStatus(ctx context.Context, key string, record models.StatusRecord, ttl time.Duration) error
	GetStatus(ctx context.Context, key string) (*models.StatusRecord, error)
}

// VerifiedForecastStore is the append-only store of verification records.
type VerifiedForecastStore interface {
	Insert(ctx context.Context, vf *models.VerifiedForecast) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.VerifiedForecast, error)
	ListByForecast(ctx context.Context, forecastID string, limit int) ([]models.VerifiedForecast, error)
}
