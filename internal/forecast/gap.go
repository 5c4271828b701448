package forecast

import (
	"fmt"

	"github.com/irfndi/trendcast/internal/models"
)

// GateConfig is the presentation policy for gap forecasts.
type GateConfig struct {
	MinConfidence float64
	MinDays       int
}

// GapForecast forecasts the difference A − B from two bundles over the same forecast dates.
//
// The band combines the bounds in the worst-case direction (lowerA − upperB, upperA − lowerB), which is
// wider than an independence assumption would give. When the bundles disagree on dates only the common
// prefix is used and the gate is closed.
func GapForecast(a, b *models.ForecastBundle, currentA, currentB float64, gate GateConfig) models.GapForecastResult {
	if !isFinite(currentA) {
		currentA = 0
	}
	if !isFinite(currentB) {
		currentB = 0
	}
	result := models.GapForecastResult{
		CurrentGap: currentA - currentB,
		Points:     []models.GapPoint{},
		Gate:       models.ReliabilityGate{ShouldShow: true, Reasons: []string{}},
	}
	result.ExpectedGap = result.CurrentGap

	if a == nil || b == nil {
		result.Gate = closedGate("forecast missing for one subject")
		return result
	}

	n, aligned := alignedDays(a, b)
	for i := 0; i < n; i++ {
		pa, pb := a.Points[i], b.Points[i]
		result.Points = append(result.Points, models.GapPoint{
			Date:  pa.Date,
			Gap:   pa.Value - pb.Value,
			Lower: bound(a.Lower, i, pa.Value) - bound(b.Upper, i, pb.Value),
			Upper: bound(a.Upper, i, pa.Value) - bound(b.Lower, i, pb.Value),
		})
	}
	if n > 0 {
		result.ExpectedGap = result.Points[n-1].Gap
		result.LeaderChangeRisk = leaderChangeRisk(result.CurrentGap, result.Points)
	}

	var reasons []string
	if a.Fallback || b.Fallback {
		reasons = append(reasons, "fallback forecast without enough history")
	}
	if a.OverallConfidence < gate.MinConfidence {
		reasons = append(reasons, fmt.Sprintf("%s confidence %.1f below %.1f", a.Subject, a.OverallConfidence, gate.MinConfidence))
	}
	if b.OverallConfidence < gate.MinConfidence {
		reasons = append(reasons, fmt.Sprintf("%s confidence %.1f below %.1f", b.Subject, b.OverallConfidence, gate.MinConfidence))
	}
	if !aligned {
		reasons = append(reasons, "forecast dates are not aligned")
	}
	if n < gate.MinDays {
		reasons = append(reasons, fmt.Sprintf("only %d forecast days, need %d", n, gate.MinDays))
	}
	if len(reasons) > 0 {
		result.Gate = closedGate(reasons...)
	}
	return result
}

// alignedDays returns the length of the common date prefix and whether both bundles match entirely.
func alignedDays(a, b *models.ForecastBundle) (int, bool) {
	n := min(len(a.Points), len(b.Points))
	for i := 0; i < n; i++ {
		if a.Points[i].Date != b.Points[i].Date {
			return i, false
		}
	}
	return n, len(a.Points) == len(b.Points)
}

// leaderChangeRisk is the share of forecast days on which the sign of the gap differs from today's.
// With no current leader the outcome is a coin flip.
func leaderChangeRisk(current float64, points []models.GapPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	if sign(current) == 0 {
		return 50
	}
	flipped := 0
	for _, p := range points {
		if sign(p.Gap) != sign(current) {
			flipped++
		}
	}
	return round(100*float64(flipped)/float64(len(points)), 1)
}

func bound(xs []float64, i int, fallback float64) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return fallback
}

func closedGate(reasons ...string) models.ReliabilityGate {
	return models.ReliabilityGate{ShouldShow: false, Reasons: reasons}
}
