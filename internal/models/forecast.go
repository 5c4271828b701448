package models

import "time"

// Trend labels
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// Method names
const (
	MethodLinearTrend          = "linear_trend"
	MethodExponentialSmoothing = "exponential_smoothing"
	MethodWeightedMovingAvg    = "weighted_moving_average"
)

// ForecastPoint is a single forecast day.
type ForecastPoint struct {
	Date       string  `json:"date"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"` // 0-100
}

// MethodForecast is the output of one method runner.
type MethodForecast struct {
	Method      string          `json:"method"`
	Points      []ForecastPoint `json:"points"`
	Reliability float64         `json:"reliability"` // 0-100
}

// ForecastBundle is the ensemble forecast for one subject over one horizon.
// Lower and Upper hold the 80% band and are aligned index-for-index with Points.
type ForecastBundle struct {
	Subject           string          `json:"subject"`
	HorizonDays       int             `json:"horizon_days"`
	Points            []ForecastPoint `json:"points"`
	Lower             []float64       `json:"lower"`
	Upper             []float64       `json:"upper"`
	OverallConfidence float64         `json:"overall_confidence"` // 0-100
	AgreementIndex    float64         `json:"agreement_index"`    // 0-100
	Volatility        float64         `json:"volatility"`         // 0-100
	Trend             string          `json:"trend"`
	Explanation       string          `json:"explanation"`
	Methods           []string        `json:"methods"`
	Hash              string          `json:"hash"`
	HistoryPoints     int             `json:"history_points"`
	LastHistorical    float64         `json:"last_historical"`
	Fallback          bool            `json:"fallback"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// Dates returns the forecast dates in order.
func (b *ForecastBundle) Dates() []string {
	dates := make([]string, len(b.Points))
	for i, p := range b.Points {
		dates[i] = p.Date
	}
	return dates
}

// ConfidenceFactors feeds the confidence scorer. Nil fields take neutral defaults.
type ConfidenceFactors struct {
	AgreementIndex   *float64 `json:"agreement_index,omitempty"`
	Volatility       *float64 `json:"volatility,omitempty"`
	DataPoints       *float64 `json:"data_points,omitempty"`
	SourceCount      *float64 `json:"source_count,omitempty"`
	LeaderChangeRisk *float64 `json:"leader_change_risk,omitempty"`
	Margin           *float64 `json:"margin,omitempty"`
}

// ConfidenceResult is the scored trust level.
type ConfidenceResult struct {
	Score float64 `json:"score"`
	Label string  `json:"label"` // "high", "medium", "low"
}

// GapPoint is the forecast difference between two subjects on one day.
type GapPoint struct {
	Date  string  `json:"date"`
	Gap   float64 `json:"gap"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ReliabilityGate tells presentation layers whether a gap forecast may be shown.
type ReliabilityGate struct {
	ShouldShow bool     `json:"should_show"`
	Reasons    []string `json:"reasons"`
}

// GapForecastResult is the forecast of A minus B.
type GapForecastResult struct {
	CurrentGap       float64         `json:"current_gap"`
	ExpectedGap      float64         `json:"expected_gap"`
	Points           []GapPoint      `json:"points"`
	LeaderChangeRisk float64         `json:"leader_change_risk"` // 0-100
	Gate             ReliabilityGate `json:"gate"`
}
