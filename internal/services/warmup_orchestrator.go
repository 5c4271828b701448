package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/irfndi/trendcast/internal/config"
	"github.com/irfndi/trendcast/internal/logging"
	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/telemetry"
)

var (
	// ErrLockContention means another worker holds the warmup lock. Callers see it as running.
	ErrLockContention = errors.New("warmup already in progress")
	// ErrComputationFailure wraps anything that stops a warmup from producing a bundle.
	ErrComputationFailure = errors.New("forecast computation failed")
)

// WarmupOrchestrator computes comparison bundles under a per-key lock and caches them.
//
// State per key: idle -> running -> ready | queued | failed. Only the lock holder computes;
// everyone else reads the cache.
type WarmupOrchestrator struct {
	cache     ForecastCache
	series    SeriesProvider
	forecasts *ForecastService
	optimizer *ResourceOptimizer
	cfg       config.WarmupConfig
	logger    *logging.StandardLogger
	tracer    *telemetry.ForecastTracer
	now       func() time.Time
}

// NewWarmupOrchestrator creates a new warmup orchestrator
func NewWarmupOrchestrator(
	cache ForecastCache,
	series SeriesProvider,
	forecasts *ForecastService,
	optimizer *ResourceOptimizer,
	cfg config.WarmupConfig,
	logger *logging.StandardLogger,
	tracer *telemetry.ForecastTracer,
) *WarmupOrchestrator {
	if tracer == nil {
		tracer = telemetry.NewForecastTracer()
	}
	return &WarmupOrchestrator{
		cache:     cache,
		series:    series,
		forecasts: forecasts,
		optimizer: optimizer,
		cfg:       cfg,
		logger:    logger,
		tracer:    tracer,
		now:       time.Now,
	}
}

// Warmup returns the cached comparison for req, computing it when no fresh copy exists.
// It is idempotent and never returns an error: failures are reported through the result status.
func (o *WarmupOrchestrator) Warmup(ctx context.Context, req models.WarmupRequest) models.WarmupResult {
	req = req.Normalized()
	key := req.Key()
	start := o.now()

	ctx, span := o.tracer.TraceWarmup(ctx, key, req.SubjectA, req.SubjectB, req.HorizonDays)
	defer span.End()

	result := o.warmup(ctx, req, key)

	elapsed := o.now().Sub(start)
	o.tracer.RecordWarmup(span, telemetry.WarmupOutcome{
		Status:   string(result.Status),
		Stale:    result.Stale,
		Partial:  result.Bundle != nil && result.Bundle.Partial,
		Duration: elapsed,
	})
	o.logger.LogWarmup(key, string(result.Status), result.Stale, elapsed.Milliseconds())
	return result
}

func (o *WarmupOrchestrator) warmup(ctx context.Context, req models.WarmupRequest, key string) models.WarmupResult {
	entry, err := o.cache.Get(ctx, key)
	if err != nil {
		return o.fail(ctx, key, nil, fmt.Errorf("%w: read cache: %w", ErrComputationFailure, err))
	}
	if entry.IsFresh(o.now()) {
		o.logger.LogCacheOperation("get", key, true, 0)
		return models.WarmupResult{Key: key, Status: models.WarmupReady, Bundle: entry.Bundle}
	}
	stale := servable(entry)

	token, acquired, err := o.cache.Acquire(ctx, key, o.cfg.LockTTL)
	if err != nil {
		return o.fail(ctx, key, stale, fmt.Errorf("%w: acquire lock: %w", ErrComputationFailure, err))
	}
	if !acquired {
		o.logger.WithForecastKey(key).Debug("Warmup skipped", "reason", ErrLockContention.Error())
		return models.WarmupResult{Key: key, Status: models.WarmupRunning, Bundle: stale, Stale: stale != nil}
	}
	defer o.release(ctx, key, token)

	// another worker may have finished between our read and the lock
	if entry, err := o.cache.Get(ctx, key); err == nil && entry.IsFresh(o.now()) {
		return models.WarmupResult{Key: key, Status: models.WarmupReady, Bundle: entry.Bundle}
	}

	bundle, err := o.compute(ctx, req)
	if err != nil {
		return o.fail(ctx, key, stale, err)
	}

	if bundle.Partial {
		// cached as already stale so the next warmup retries it
		if err := o.cache.Set(ctx, key, bundle, 0, o.cfg.StaleTTL); err != nil {
			return o.fail(ctx, key, stale, fmt.Errorf("%w: write cache: %w", ErrComputationFailure, err))
		}
		msg := strings.Join(bundle.Errors, "; ")
		o.writeStatus(ctx, key, models.WarmupQueued, msg)
		return models.WarmupResult{Key: key, Status: models.WarmupQueued, Bundle: bundle, Error: msg}
	}

	if err := o.cache.Set(ctx, key, bundle, o.cfg.FreshTTL, o.cfg.StaleTTL); err != nil {
		return o.fail(ctx, key, stale, fmt.Errorf("%w: write cache: %w", ErrComputationFailure, err))
	}
	o.writeStatus(ctx, key, models.WarmupReady, "")
	return models.WarmupResult{Key: key, Status: models.WarmupReady, Bundle: bundle}
}

// compute loads the history and forecasts both subjects under the compute timeout.
func (o *WarmupOrchestrator) compute(ctx context.Context, req models.WarmupRequest) (*models.ComparisonBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ComputeTimeout)
	defer cancel()

	to := o.now().UTC()
	from := to.AddDate(0, 0, -o.cfg.HistoryDays)
	series, err := o.series.FetchSeries(ctx, []string{req.SubjectA, req.SubjectB}, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch series: %w", ErrComputationFailure, err)
	}

	limit := 2
	if o.optimizer != nil {
		limit = o.optimizer.Limits().MaxConcurrentSubjects
	}
	bundle, err := o.forecasts.Compare(ctx, series, req, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrComputationFailure, err)
	}
	if len(bundle.Errors) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrComputationFailure, strings.Join(bundle.Errors, "; "))
	}
	return bundle, nil
}

// Status reports the state of key from the cache alone; it never computes or blocks on the lock.
func (o *WarmupOrchestrator) Status(ctx context.Context, key string) models.WarmupResult {
	result := models.WarmupResult{Key: key, Status: models.WarmupIdle}

	entry, err := o.cache.Get(ctx, key)
	if err != nil {
		return models.WarmupResult{Key: key, Status: models.WarmupFailed, Error: err.Error()}
	}
	if bundle := servable(entry); bundle != nil {
		result.Bundle = bundle
		result.Stale = !entry.IsFresh(o.now())
	}

	locked, err := o.cache.IsLocked(ctx, key)
	if err != nil {
		return models.WarmupResult{Key: key, Status: models.WarmupFailed, Bundle: result.Bundle, Stale: result.Stale, Error: err.Error()}
	}
	if locked {
		result.Status = models.WarmupRunning
		return result
	}

	record, err := o.cache.GetStatus(ctx, key)
	if err != nil {
		return models.WarmupResult{Key: key, Status: models.WarmupFailed, Bundle: result.Bundle, Stale: result.Stale, Error: err.Error()}
	}
	switch {
	case record == nil:
		if result.Bundle != nil && !result.Stale {
			result.Status = models.WarmupReady
		}
	case record.Status == models.WarmupReady && result.Bundle == nil:
		// the bundle outlived its stale TTL
	default:
		result.Status = record.Status
		result.Error = record.Error
	}
	return result
}

func (o *WarmupOrchestrator) fail(ctx context.Context, key string, stale *models.ComparisonBundle, err error) models.WarmupResult {
	o.logger.WithForecastKey(key).Error("Warmup failed", "error", err.Error())
	o.writeStatus(ctx, key, models.WarmupFailed, err.Error())
	return models.WarmupResult{
		Key:    key,
		Status: models.WarmupFailed,
		Bundle: stale,
		Stale:  stale != nil,
		Error:  err.Error(),
	}
}

func (o *WarmupOrchestrator) writeStatus(ctx context.Context, key string, status models.WarmupStatus, msg string) {
	record := models.StatusRecord{Status: status, Error: msg, UpdatedAt: o.now().UTC()}
	if err := o.cache.SetStatus(context.WithoutCancel(ctx), key, record, o.cfg.StaleTTL); err != nil {
		o.logger.WithForecastKey(key).Warn("Failed to write warmup status", "status", string(status), "error", err.Error())
	}
}

func (o *WarmupOrchestrator) release(ctx context.Context, key, token string) {
	if err := o.cache.Release(context.WithoutCancel(ctx), key, token); err != nil {
		o.logger.WithForecastKey(key).Warn("Failed to release warmup lock", "error", err.Error())
	}
}

func servable(entry *models.CacheEntry) *models.ComparisonBundle {
	if entry == nil {
		return nil
	}
	return entry.Bundle
}
