package forecast

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/irfndi/trendcast/internal/models"
)

// Engine runs the forecasting pipeline for a single subject. It holds no mutable state.
type Engine struct {
	cfg     Config
	runners []Runner
}

// NewEngine creates an engine with the three standard method runners.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.normalized()
	return NewEngineWithRunners(cfg, []Runner{
		LinearTrend{MinHistory: cfg.MinHistory},
		ExponentialSmoothing{Alpha: cfg.Alpha, MinHistory: cfg.MinHistory},
		WeightedMovingAverage{Window: max(cfg.WMAWindow, cfg.MinHistory)},
	})
}

// NewEngineWithRunners creates an engine with a custom runner set.
func NewEngineWithRunners(cfg Config, runners []Runner) *Engine {
	return &Engine{cfg: cfg.normalized(), runners: runners}
}

// Config returns the normalized engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Forecast produces the ensemble bundle for subject over horizonDays.
//
// It never fails: short or unusable input yields a fallback bundle with zero confidence and the reason in
// its explanation. Runners execute concurrently and their results are combined once all have finished.
func (e *Engine) Forecast(series models.Series, subject string, horizonDays int) *models.ForecastBundle {
	history, err := Extract(series, subject)
	if err != nil {
		return e.finish(fallbackBundle(subject, err.Error()), subject, nil, nil, horizonDays)
	}
	dates := FormatDates(history.Dates)
	if horizonDays <= 0 {
		return e.finish(fallbackBundle(subject, fmt.Sprintf("horizon must be positive, got %d", horizonDays)),
			subject, dates, history.Values, horizonDays)
	}
	if len(history.Values) < e.cfg.MinHistory {
		reason := fmt.Sprintf("not enough history to forecast %s: need at least %d data points, have %d",
			subject, e.cfg.MinHistory, len(history.Values))
		return e.finish(fallbackBundle(subject, reason), subject, dates, history.Values, horizonDays)
	}

	future := futureDates(history.Dates[len(history.Dates)-1], horizonDays)
	results, err := e.runAll(history.Values, future)
	if err != nil {
		return e.finish(fallbackBundle(subject, err.Error()), subject, dates, history.Values, horizonDays)
	}
	return e.finish(Combine(subject, history.Values, results), subject, dates, history.Values, horizonDays)
}

// runAll executes every runner concurrently; results are slotted by runner index.
func (e *Engine) runAll(values []float64, dates []string) ([]*models.MethodForecast, error) {
	results := make([]*models.MethodForecast, len(e.runners))
	var g errgroup.Group
	for i, runner := range e.runners {
		g.Go(func() error {
			mf, err := runner.Run(values, dates)
			if errors.Is(err, ErrInsufficientData) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", runner.Name(), err)
			}
			results[i] = mf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) finish(b *models.ForecastBundle, subject string, dates []string, values []float64, horizon int) *models.ForecastBundle {
	b.Subject = subject
	b.HorizonDays = horizon
	b.HistoryPoints = len(values)
	if len(values) > 0 {
		b.LastHistorical = values[len(values)-1]
	}
	b.Hash = Hash(subject, dates, values, e.cfg.EngineVersion, e.cfg.TailLength)
	b.GeneratedAt = time.Now().UTC()
	return b
}

// Gap forecasts the difference between two bundles using the engine's gate policy.
func (e *Engine) Gap(a, b *models.ForecastBundle) models.GapForecastResult {
	var currentA, currentB float64
	if a != nil {
		currentA = a.LastHistorical
	}
	if b != nil {
		currentB = b.LastHistorical
	}
	return GapForecast(a, b, currentA, currentB, GateConfig{MinConfidence: e.cfg.MinConfidence, MinDays: e.cfg.MinGapDays})
}
