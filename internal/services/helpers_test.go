package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/trendcast/internal/config"
	"github.com/irfndi/trendcast/internal/forecast"
	"github.com/irfndi/trendcast/internal/logging"
	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/telemetry"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func quietStandardLogger() *logging.StandardLogger {
	return logging.NewStandardLoggerWithWriter("error", io.Discard)
}

var seriesStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// dailySeries lays out one value per day per subject starting at seriesStart.
func dailySeries(values map[string][]float64) models.Series {
	days := 0
	for _, v := range values {
		days = max(days, len(v))
	}
	series := models.Series{}
	for i := 0; i < days; i++ {
		p := models.SeriesPoint{
			Date:   seriesStart.AddDate(0, 0, i).Format(models.DateLayout),
			Values: map[string]float64{},
		}
		for subject, v := range values {
			if i < len(v) {
				p.Values[subject] = v[i]
			}
		}
		series.Points = append(series.Points, p)
	}
	return series
}

func ramp(from, to float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

func flat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// stubSeriesProvider returns a fixed series. When block is set every call waits on it
// after signalling entered.
type stubSeriesProvider struct {
	mu      sync.Mutex
	series  models.Series
	err     error
	calls   int
	entered chan struct{}
	block   chan struct{}
}

func (s *stubSeriesProvider) FetchSeries(ctx context.Context, _ []string, _, _ time.Time) (models.Series, error) {
	s.mu.Lock()
	s.calls++
	series, err, entered, block := s.series, s.err, s.entered, s.block
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.Series{}, ctx.Err()
		}
	}
	return series, err
}

func (s *stubSeriesProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSeriesProvider) setResult(series models.Series, err error) {
	s.mu.Lock()
	s.series, s.err = series, err
	s.mu.Unlock()
}

func testWarmupConfig() config.WarmupConfig {
	return config.WarmupConfig{
		FreshTTL:       time.Hour,
		StaleTTL:       2 * time.Hour,
		LockTTL:        time.Minute,
		ComputeTimeout: 5 * time.Second,
		HistoryDays:    90,
	}
}

func newTestForecastService(tracer *telemetry.ForecastTracer) *ForecastService {
	return NewForecastService(forecast.NewEngine(forecast.DefaultConfig()), tracer)
}

func newTestOrchestrator(cache ForecastCache, provider SeriesProvider) *WarmupOrchestrator {
	return NewWarmupOrchestrator(
		cache,
		provider,
		newTestForecastService(nil),
		NewResourceOptimizer(ResourceOptimizerConfig{}, quietLogger()),
		testWarmupConfig(),
		quietStandardLogger(),
		nil,
	)
}

func goRustSeries() models.Series {
	return dailySeries(map[string][]float64{
		"go":   flat(50, 30),
		"rust": ramp(50, 80, 30),
	})
}
