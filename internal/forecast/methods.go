package forecast

import (
	"fmt"
	"math"


	"github.com/irfndi/trendcast/internal/models"
)

// Runner is one forecasting method. Runners are pure and safe to call concurrently.
type Runner interface {
	// Name returns the method name
	Name() string
	// Run forecasts one value per date in dates from the historical values.
	// It returns ErrInsufficientData when values is shorter than the runner's window.
	Run(values []float64, dates []string) (*models.MethodForecast, error)
}

func checkHistory(name string, values []float64, need int) error {
	if len(values) < need {
		return fmt.Errorf("%w: %s needs %d points, have %d", ErrInsufficientData, name, need, len(values))
	}
	return nil
}

// decayedConfidence scales base linearly down to floor×base at the final forecast day.
func decayedConfidence(base, floor float64, i, horizon int) float64 {
	return base * (1 - (1-floor)*float64(i+1)/float64(horizon))
}

// LinearTrend fits an ordinary least squares line against the point index.
type LinearTrend struct {
	MinHistory int
}

func (r LinearTrend) Name() string { return models.MethodLinearTrend }

func (r LinearTrend) Run(values []float64, dates []string) (*models.MethodForecast, error) {
	if err := checkHistory(r.Name(), values, max(r.MinHistory, 2)); err != nil {
		return nil, err
	}

	n := float64(len(values))
	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumX2 += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, v := range values {
		fitted := intercept + slope*float64(i)
		ssRes += (v - fitted) * (v - fitted)
		ssTot += (v - meanY) * (v - meanY)
	}
	// A flat series is fitted exactly by a flat line.
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	reliability := clamp(r2*100, 40, 90)

	points := make([]models.ForecastPoint, len(dates))
	for i, date := range dates {
		x := n + float64(i)
		points[i] = models.ForecastPoint{
			Date:       date,
			Value:      math.Max(0, intercept+slope*x),
			Confidence: decayedConfidence(reliability, 0.5, i, len(dates)),
		}
	}

	return &models.MethodForecast{Method: r.Name(), Points: points, Reliability: reliability}, nil
}

// ExponentialSmoothing applies single exponential smoothing and extrapolates the last smoothed step.
type ExponentialSmoothing struct {
	Alpha      float64
	MinHistory int
}

func (r ExponentialSmoothing) Name() string { return models.MethodExponentialSmoothing }

func (r ExponentialSmoothing) Run(values []float64, dates []string) (*models.MethodForecast, error) {
	if err := checkHistory(r.Name(), values, max(r.MinHistory, 2)); err != nil {
		return nil, err
	}
	alpha := r.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}

	smoothed := make([]float64, len(values))
	smoothed[0] = values[0]
	for i := 1; i < len(values); i++ {
		smoothed[i] = alpha*values[i] + (1-alpha)*smoothed[i-1]
	}
	last := smoothed[len(smoothed)-1]
	step := last - smoothed[len(smoothed)-2]

	reliability := 50.0
	if mean(values) > 0 {
		reliability = clamp(100*(1-coefficientOfVariation(values)), 50, 85)
	}

	points := make([]models.ForecastPoint, len(dates))
	for i, date := range dates {
		points[i] = models.ForecastPoint{
			Date:       date,
			Value:      math.Max(0, last+step*float64(i+1)),
			Confidence: decayedConfidence(reliability, 0.4, i, len(dates)),
		}
	}

	return &models.MethodForecast{Method: r.Name(), Points: points, Reliability: reliability}, nil
}

// WeightedMovingAverage weights the trailing window linearly towards the most recent point.
type WeightedMovingAverage struct {
	Window int
}

func (r WeightedMovingAverage) Name() string { return models.MethodWeightedMovingAvg }

func (r WeightedMovingAverage) Run(values []float64, dates []string) (*models.MethodForecast, error) {
	window := r.Window
	if window < 2 {
		window = 7
	}
	if err := checkHistory(r.Name(), values, window); err != nil {
		return nil, err
	}

	tail := values[len(values)-window:]
	level := linearlyWeightedMean(tail)
	step := (tail[window-1] - tail[0]) / float64(window)
	reliability := clamp(80-100*coefficientOfVariation(tail), 45, 80)

	points := make([]models.ForecastPoint, len(dates))
	for i, date := range dates {
		points[i] = models.ForecastPoint{
			Date:       date,
			Value:      math.Max(0, level+step*float64(i+1)),
			Confidence: decayedConfidence(reliability, 0.5, i, len(dates)),
		}
	}

	return &models.MethodForecast{Method: r.Name(), Points: points, Reliability: reliability}, nil
}
