package forecast

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/trendcast/internal/models"
)

const (
	// z-score of the two-sided 80% band
	z80 = 1.28
	// z-score of the two-sided 95% band
	z95 = 1.96
	// single-method band half-width as a fraction of the value
	singleMethodBand = 0.2
	// trend comparison window and threshold
	trendWindow    = 7
	trendThreshold = 0.10
)

// Combine merges the method forecasts into one bundle.
//
// results is indexed by runner; nil entries are runners that were skipped. The combination only
// depends on the set of results, never on the order in which runners finished. With no results a
// fallback bundle with zero confidence is returned.
func Combine(subject string, history []float64, results []*models.MethodForecast) *models.ForecastBundle {
	var used []*models.MethodForecast
	for _, r := range results {
		if r != nil && len(r.Points) > 0 {
			used = append(used, r)
		}
	}
	if len(used) == 0 {
		return fallbackBundle(subject, fmt.Sprintf(
			"not enough history to forecast %s: no method could run on %d data points", subject, len(history)))
	}

	horizon := len(used[0].Points)
	for _, r := range used[1:] {
		horizon = min(horizon, len(r.Points))
	}

	bundle := &models.ForecastBundle{
		Subject:    subject,
		Points:     make([]models.ForecastPoint, horizon),
		Lower:      make([]float64, horizon),
		Upper:      make([]float64, horizon),
		Methods:    make([]string, len(used)),
		Volatility: clamp(100*coefficientOfVariation(history), 0, 100),
	}
	for i, r := range used {
		bundle.Methods[i] = r.Method
	}

	if len(used) == 1 {
		only := used[0]
		for i := 0; i < horizon; i++ {
			p := only.Points[i]
			bundle.Points[i] = p
			bundle.Lower[i] = p.Value * (1 - singleMethodBand)
			bundle.Upper[i] = p.Value * (1 + singleMethodBand)
		}
		bundle.OverallConfidence = round(only.Reliability, 1)
		bundle.AgreementIndex = 50
	} else {
		weights := reliabilityWeights(used)
		dispersion := make([]float64, 0, horizon)
		dayValues := make([]float64, len(used))
		for i := 0; i < horizon; i++ {
			var value, conf float64
			for m, r := range used {
				value += weights[m] * r.Points[i].Value
				conf += weights[m] * r.Points[i].Confidence
				dayValues[m] = r.Points[i].Value
			}
			sd := stdDev(dayValues)
			bundle.Points[i] = models.ForecastPoint{Date: used[0].Points[i].Date, Value: value, Confidence: conf}
			bundle.Lower[i] = math.Max(0, value-z80*sd)
			bundle.Upper[i] = value + z80*sd
			if value > 0 {
				dispersion = append(dispersion, sd/value)
			} else if sd > 0 {
				dispersion = append(dispersion, 1)
			}
		}

		overall := 0.0
		for m, r := range used {
			overall += weights[m] * r.Reliability
		}
		bundle.OverallConfidence = round(overall, 1)
		bundle.AgreementIndex = round(clamp(100-100*mean(dispersion), 0, 100), 1)
	}

	forecastValues := make([]float64, horizon)
	for i, p := range bundle.Points {
		forecastValues[i] = p.Value
	}
	label, change := trendLabel(history, forecastValues)
	bundle.Trend = label
	bundle.Explanation = fmt.Sprintf("%s: %d method(s) combined, trend %s (%+.1f%% vs last %d days)",
		cases.Title(language.English).String(subject), len(used), label, change*100, min(trendWindow, len(history)))

	return bundle
}

// reliabilityWeights normalizes reliabilities into weights summing to one.
func reliabilityWeights(results []*models.MethodForecast) []float64 {
	weights := make([]float64, len(results))
	total := 0.0
	for _, r := range results {
		total += math.Max(0, r.Reliability)
	}
	for i, r := range results {
		if total == 0 {
			weights[i] = 1 / float64(len(results))
			continue
		}
		weights[i] = math.Max(0, r.Reliability) / total
	}
	return weights
}

// trendLabel compares the mean of the last historical week with the mean of the first forecast week.
func trendLabel(history, forecast []float64) (string, float64) {
	if len(history) == 0 || len(forecast) == 0 {
		return models.TrendStable, 0
	}
	past := windowMean(history[len(history)-min(trendWindow, len(history)):])
	future := windowMean(forecast[:min(trendWindow, len(forecast))])

	var change float64
	switch {
	case past > 0:
		change = (future - past) / past
	case future > 0:
		return models.TrendRising, 1
	default:
		return models.TrendStable, 0
	}

	switch {
	case change > trendThreshold:
		return models.TrendRising, change
	case change < -trendThreshold:
		return models.TrendFalling, change
	default:
		return models.TrendStable, change
	}
}

// windowMean averages the whole slice with a simple moving average spanning it.
func windowMean(xs []float64) float64 {
	if len(xs) == 1 {
		return xs[0]
	}
	sma := trend.NewSmaWithPeriod[float64](len(xs))
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(xs)))
	if len(out) == 0 {
		return mean(xs)
	}
	return out[len(out)-1]
}

func fallbackBundle(subject, reason string) *models.ForecastBundle {
	return &models.ForecastBundle{
		Subject:           subject,
		Points:            []models.ForecastPoint{},
		Lower:             []float64{},
		Upper:             []float64{},
		OverallConfidence: 0,
		Trend:             models.TrendStable,
		Explanation:       reason,
		Methods:           []string{},
		Fallback:          true,
	}
}
