package forecast

import (
	"math"

	"github.com/irfndi/trendcast/internal/models"
)

// Confidence labels
const (
	LabelHigh   = "high"
	LabelMedium = "medium"
	LabelLow    = "low"
)

// Float returns a pointer to v for building ConfidenceFactors.
func Float(v float64) *float64 {
	return &v
}

// factor resolves an optional input: nil or non-finite falls back to def, the rest is clamped.
func factor(v *float64, def, lo, hi float64) float64 {
	if v == nil || !isFinite(*v) {
		return def
	}
	return clamp(*v, lo, hi)
}

// ScoreConfidence maps confidence factors to a 0-100 trust score.
// It is total: any combination of missing, out-of-range or non-finite factors yields a finite score.
func ScoreConfidence(f models.ConfidenceFactors) models.ConfidenceResult {
	agreement := factor(f.AgreementIndex, 50, 0, 100)
	volatility := factor(f.Volatility, 0, 0, 100)
	dataPoints := factor(f.DataPoints, 0, 0, math.MaxFloat64)
	sources := factor(f.SourceCount, 1, 1, math.MaxFloat64)
	risk := factor(f.LeaderChangeRisk, 0, 0, 100)
	margin := factor(f.Margin, 0, 0, math.MaxFloat64)

	score := 50.0
	score += (agreement - 50) * 0.3
	score -= volatility * 0.25
	score += math.Min(20, dataPoints/50*20)
	score += math.Min(15, (sources-1)*7.5)
	score += math.Min(10, margin*0.5)
	score -= risk * 0.15

	score = round(clamp(score, 0, 100), 1)
	return models.ConfidenceResult{Score: score, Label: ConfidenceLabel(score)}
}

// ConfidenceLabel buckets a score.
func ConfidenceLabel(score float64) string {
	switch {
	case score >= 70:
		return LabelHigh
	case score >= 50:
		return LabelMedium
	default:
		return LabelLow
	}
}

// ComparisonFactors derives scorer inputs for a two-subject comparison.
func ComparisonFactors(a, b *models.ForecastBundle, gap *models.GapForecastResult, sources int) models.ConfidenceFactors {
	f := models.ConfidenceFactors{SourceCount: Float(float64(max(sources, 1)))}
	if a == nil || b == nil {
		return f
	}
	f.AgreementIndex = Float((a.AgreementIndex + b.AgreementIndex) / 2)
	f.Volatility = Float(math.Max(a.Volatility, b.Volatility))
	f.DataPoints = Float(float64(min(a.HistoryPoints, b.HistoryPoints)))
	if gap != nil {
		f.LeaderChangeRisk = Float(gap.LeaderChangeRisk)
		f.Margin = Float(math.Abs(gap.CurrentGap))
	}
	return f
}
