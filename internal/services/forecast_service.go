package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/irfndi/trendcast/internal/forecast"
	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/telemetry"
)

// ForecastService exposes the forecasting engine to the API layer and the warmup orchestrator.
// It performs no I/O.
type ForecastService struct {
	engine *forecast.Engine
	tracer *telemetry.ForecastTracer
}

// NewForecastService creates a forecast service around engine
func NewForecastService(engine *forecast.Engine, tracer *telemetry.ForecastTracer) *ForecastService {
	if tracer == nil {
		tracer = telemetry.NewForecastTracer()
	}
	return &ForecastService{engine: engine, tracer: tracer}
}

// Forecast returns the ensemble forecast for one subject
func (s *ForecastService) Forecast(series models.Series, subject string, horizonDays int) *models.ForecastBundle {
	return s.engine.Forecast(series, subject, horizonDays)
}

// Confidence scores the given factors
func (s *ForecastService) Confidence(factors models.ConfidenceFactors) models.ConfidenceResult {
	return forecast.ScoreConfidence(factors)
}

// GapForecast forecasts A minus B with the configured reliability gate
func (s *ForecastService) GapForecast(a, b *models.ForecastBundle, currentA, currentB float64) models.GapForecastResult {
	cfg := s.engine.Config()
	return forecast.GapForecast(a, b, currentA, currentB, forecast.GateConfig{
		MinConfidence: cfg.MinConfidence,
		MinDays:       cfg.MinGapDays,
	})
}

// Verify scores a single-subject forecast against observed values
func (s *ForecastService) Verify(bundle *models.ForecastBundle, actual models.Series) (*models.VerifiedForecast, error) {
	return forecast.Verify(bundle, actual)
}

// VerifyComparison scores a two-subject forecast against observed values
func (s *ForecastService) VerifyComparison(a, b *models.ForecastBundle, actual models.Series) (*models.VerifiedForecast, error) {
	return forecast.VerifyComparison(a, b, actual)
}

// Compare forecasts both subjects of a comparison concurrently and derives the gap and the
// comparison confidence. A subject that could only produce a fallback bundle marks the
// result partial; both failing is reported by the caller.
func (s *ForecastService) Compare(ctx context.Context, series models.Series, req models.WarmupRequest, limit int) (*models.ComparisonBundle, error) {
	bundles := make([]*models.ForecastBundle, 2)
	subjects := []string{req.SubjectA, req.SubjectB}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, subject := range subjects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, span := s.tracer.TraceSubject(gctx, subject)
			defer span.End()
			bundles[i] = s.engine.Forecast(series, subject, req.HorizonDays)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compare %s vs %s: %w", req.SubjectA, req.SubjectB, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("compare %s vs %s: %w", req.SubjectA, req.SubjectB, err)
	}

	a, b := bundles[0], bundles[1]
	gap := s.engine.Gap(a, b)
	result := &models.ComparisonBundle{
		Key:         req.Key(),
		SubjectA:    req.SubjectA,
		SubjectB:    req.SubjectB,
		HorizonDays: req.HorizonDays,
		BundleA:     a,
		BundleB:     b,
		Gap:         &gap,
		Confidence:  forecast.ScoreConfidence(forecast.ComparisonFactors(a, b, &gap, 1)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, bundle := range bundles {
		if bundle.Fallback {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", bundle.Subject, bundle.Explanation))
		}
	}
	result.Partial = len(result.Errors) == 1
	return result, nil
}
