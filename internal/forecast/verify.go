package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/irfndi/trendcast/internal/models"
)

const (
	// predictions at least this large count as materially non-zero when the actual is zero
	mapeZeroTolerance = 0.5
	boundEpsilon      = 1e-9
)

// Verify compares a single-subject forecast with the actual values observed since.
// The bundle is not modified; the result is a new record.
func Verify(bundle *models.ForecastBundle, actual models.Series) (*models.VerifiedForecast, error) {
	if bundle == nil {
		return nil, fmt.Errorf("%w: bundle is required", ErrInvalidInput)
	}
	points := verifiedPoints(bundle, actualValues(actual, bundle.Subject))
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s has no actual values for its forecast dates", ErrNothingToVerify, bundle.Subject)
	}
	vf := newVerifiedForecast(bundle.Hash, []string{bundle.Subject}, points)
	return vf, nil
}

// VerifyComparison verifies both forecasts of a comparison and records whether the predicted leader
// at the last date with both actuals was the actual leader.
func VerifyComparison(a, b *models.ForecastBundle, actual models.Series) (*models.VerifiedForecast, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: both bundles are required", ErrInvalidInput)
	}
	actualA := actualValues(actual, a.Subject)
	actualB := actualValues(actual, b.Subject)

	points := append(verifiedPoints(a, actualA), verifiedPoints(b, actualB)...)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no actual values for %s or %s", ErrNothingToVerify, a.Subject, b.Subject)
	}

	vf := newVerifiedForecast(a.Hash+":"+b.Hash, []string{a.Subject, b.Subject}, points)
	vf.WinnerCorrect = winnerCorrect(a, b, actualA, actualB)
	return vf, nil
}

// actualValues indexes the known values of one subject by normalized date.
// Points without a usable value for the subject are absent, not zero.
func actualValues(series models.Series, subject string) map[string]float64 {
	out := make(map[string]float64)
	for _, p := range series.Points {
		v, ok := p.Values[subject]
		if !ok || !isFinite(v) || v < 0 {
			continue
		}
		day, err := ParseDate(p.Date)
		if err != nil {
			continue
		}
		out[day.Format(models.DateLayout)] = v
	}
	return out
}

func verifiedPoints(bundle *models.ForecastBundle, actual map[string]float64) []models.VerifiedPoint {
	var points []models.VerifiedPoint
	for i, p := range bundle.Points {
		v, ok := actual[p.Date]
		if !ok {
			continue
		}
		lower80 := bound(bundle.Lower, i, p.Value)
		upper80 := bound(bundle.Upper, i, p.Value)
		scale := z95 / z80
		points = append(points, models.VerifiedPoint{
			Date:      p.Date,
			Subject:   bundle.Subject,
			Predicted: p.Value,
			Actual:    v,
			Lower80:   lower80,
			Upper80:   upper80,
			Lower95:   math.Max(0, p.Value-(p.Value-lower80)*scale),
			Upper95:   p.Value + (upper80-p.Value)*scale,
		})
	}
	return points
}

func newVerifiedForecast(forecastID string, subjects []string, points []models.VerifiedPoint) *models.VerifiedForecast {
	var absErr, pctErr float64
	var hit80, hit95 int
	for _, p := range points {
		absErr += math.Abs(p.Predicted - p.Actual)
		pctErr += percentageError(p.Predicted, p.Actual)
		if within(p.Actual, p.Lower80, p.Upper80) {
			hit80++
		}
		if within(p.Actual, p.Lower95, p.Upper95) {
			hit95++
		}
	}
	n := float64(len(points))
	return &models.VerifiedForecast{
		ID:                uuid.New(),
		ForecastID:        forecastID,
		Subjects:          subjects,
		EvaluatedAt:       time.Now().UTC(),
		Points:            points,
		IntervalHitRate80: round(100*float64(hit80)/n, 2),
		IntervalHitRate95: round(100*float64(hit95)/n, 2),
		MAE:               round(absErr/n, 2),
		MAPE:              round(pctErr/n, 2),
	}
}

// percentageError guards the zero-actual case: a materially non-zero prediction is a full miss.
func percentageError(predicted, actual float64) float64 {
	if actual == 0 {
		if math.Abs(predicted) >= mapeZeroTolerance {
			return 100
		}
		return 0
	}
	return math.Abs(predicted-actual) / math.Abs(actual) * 100
}

func within(v, lower, upper float64) bool {
	return v >= lower-boundEpsilon && v <= upper+boundEpsilon
}

// winnerCorrect is nil when no date has actuals for both subjects.
func winnerCorrect(a, b *models.ForecastBundle, actualA, actualB map[string]float64) *bool {
	predictedB := make(map[string]float64, len(b.Points))
	for _, p := range b.Points {
		predictedB[p.Date] = p.Value
	}

	found := false
	var predictedGap, actualGap float64
	for _, p := range a.Points {
		pb, ok := predictedB[p.Date]
		if !ok {
			continue
		}
		va, okA := actualA[p.Date]
		vb, okB := actualB[p.Date]
		if !okA || !okB {
			continue
		}
		found = true
		predictedGap = p.Value - pb
		actualGap = va - vb
	}
	if !found {
		return nil
	}
	correct := sign(predictedGap) == sign(actualGap)
	return &correct
}
