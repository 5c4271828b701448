package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/trendcast/internal/forecast"
	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/telemetry"
)

// ErrForecastNotCached is returned when there is no cached comparison to verify.
var ErrForecastNotCached = errors.New("no cached forecast for key")

// VerificationService checks cached comparisons against the values observed since and
// appends the outcome to the verified forecast store.
type VerificationService struct {
	cache     ForecastCache
	series    SeriesProvider
	store     VerifiedForecastStore
	forecasts *ForecastService
	logger    logrus.FieldLogger
	tracer    *telemetry.ForecastTracer
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	cache ForecastCache,
	series SeriesProvider,
	store VerifiedForecastStore,
	forecasts *ForecastService,
	logger logrus.FieldLogger,
	tracer *telemetry.ForecastTracer,
) *VerificationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if tracer == nil {
		tracer = telemetry.NewForecastTracer()
	}
	return &VerificationService{
		cache:     cache,
		series:    series,
		store:     store,
		forecasts: forecasts,
		logger:    logger,
		tracer:    tracer,
	}
}

// VerifyCached verifies the cached comparison stored under key and persists a new record.
// Stale entries are verified too; only an evicted entry is an error.
func (s *VerificationService) VerifyCached(ctx context.Context, key string) (*models.VerifiedForecast, error) {
	ctx, span := s.tracer.TraceVerification(ctx, key)
	defer span.End()

	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if entry == nil || entry.Bundle == nil {
		return nil, fmt.Errorf("%w: %s", ErrForecastNotCached, key)
	}
	bundle := entry.Bundle

	from, to, ok := forecastRange(bundle.BundleA, bundle.BundleB)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no forecast dates", forecast.ErrNothingToVerify, key)
	}
	fromDay, err := forecast.ParseDate(from)
	if err != nil {
		return nil, err
	}
	toDay, err := forecast.ParseDate(to)
	if err != nil {
		return nil, err
	}

	actual, err := s.series.FetchSeries(ctx, []string{bundle.SubjectA, bundle.SubjectB}, fromDay, toDay)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("fetch actuals: %w", err)
	}

	vf, err := s.forecasts.VerifyComparison(bundle.BundleA, bundle.BundleB, actual)
	if err != nil {
		return nil, err
	}
	s.tracer.RecordVerification(span, len(vf.Points), vf.MAE, vf.MAPE, vf.IntervalHitRate80)

	if err := s.store.Insert(ctx, vf); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("store verification: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"forecast_key":    key,
		"verification_id": vf.ID.String(),
		"points":          len(vf.Points),
		"mae":             vf.MAE,
		"mape":            vf.MAPE,
		"hit_rate_80":     vf.IntervalHitRate80,
	}).Info("Forecast verified")

	return vf, nil
}

// GetVerification returns a stored verification record
func (s *VerificationService) GetVerification(ctx context.Context, id uuid.UUID) (*models.VerifiedForecast, error) {
	return s.store.GetByID(ctx, id)
}

// ListVerifications returns the verification history of a forecast, newest first
func (s *VerificationService) ListVerifications(ctx context.Context, forecastID string, limit int) ([]models.VerifiedForecast, error) {
	return s.store.ListByForecast(ctx, forecastID, limit)
}

// forecastRange returns the first and last forecast date across the bundles.
func forecastRange(bundles ...*models.ForecastBundle) (string, string, bool) {
	var dates []string
	for _, b := range bundles {
		if b == nil {
			continue
		}
		dates = append(dates, b.Dates()...)
	}
	if len(dates) == 0 {
		return "", "", false
	}
	sort.Strings(dates)
	return dates[0], dates[len(dates)-1], true
}
