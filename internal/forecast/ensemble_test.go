package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/trendcast/internal/models"
)

func methodForecast(name string, reliability float64, values ...float64) *models.MethodForecast {
	mf := &models.MethodForecast{Method: name, Reliability: reliability}
	dates := testDates(len(values))
	for i, v := range values {
		mf.Points = append(mf.Points, models.ForecastPoint{Date: dates[i], Value: v, Confidence: reliability})
	}
	return mf
}

// TestCombine_SingleMethodPassThrough tests that a lone runner is reproduced with a ±20% band
func TestCombine_SingleMethodPassThrough(t *testing.T) {
	only := methodForecast(models.MethodLinearTrend, 72, 10, 20, 30)
	bundle := Combine("python", constant(10, 10), []*models.MethodForecast{nil, only, nil})

	require.Len(t, bundle.Points, 3)
	assert.Equal(t, only.Points, bundle.Points)
	for i, p := range only.Points {
		assert.InDelta(t, p.Value*0.8, bundle.Lower[i], 1e-9)
		assert.InDelta(t, p.Value*1.2, bundle.Upper[i], 1e-9)
	}
	assert.Equal(t, 72.0, bundle.OverallConfidence)
	assert.Equal(t, []string{models.MethodLinearTrend}, bundle.Methods)
	assert.False(t, bundle.Fallback)
}

func TestCombine_WeightedMultiMethod(t *testing.T) {
	a := methodForecast("a", 75, 10, 10)
	b := methodForecast("b", 25, 20, 20)
	bundle := Combine("go", constant(10, 10), []*models.MethodForecast{a, b})

	require.Len(t, bundle.Points, 2)
	// weights 0.75 / 0.25
	assert.InDelta(t, 12.5, bundle.Points[0].Value, 1e-9)
	assert.InDelta(t, 62.5, bundle.Points[0].Confidence, 1e-9)
	// population sd of {10, 20} is 5
	assert.InDelta(t, 12.5-1.28*5, bundle.Lower[0], 1e-9)
	assert.InDelta(t, 12.5+1.28*5, bundle.Upper[0], 1e-9)
	assert.InDelta(t, 62.5, bundle.OverallConfidence, 1e-9)
	assert.Less(t, bundle.AgreementIndex, 100.0)
}

func TestCombine_LowerBoundFlooredAtZero(t *testing.T) {
	a := methodForecast("a", 50, 0.5)
	b := methodForecast("b", 50, 30)
	bundle := Combine("go", constant(10, 10), []*models.MethodForecast{a, b})
	assert.Equal(t, 0.0, bundle.Lower[0])
	assert.GreaterOrEqual(t, bundle.Points[0].Value, bundle.Lower[0])
}

// TestCombine_OrderIndependent tests that result order does not change the combination
func TestCombine_OrderIndependent(t *testing.T) {
	a := methodForecast("a", 80, 10, 12, 14)
	b := methodForecast("b", 60, 11, 13, 18)
	c := methodForecast("c", 45, 9, 9, 9)

	first := Combine("go", constant(10, 10), []*models.MethodForecast{a, b, c})
	second := Combine("go", constant(10, 10), []*models.MethodForecast{c, a, b})

	for i := range first.Points {
		assert.InDelta(t, first.Points[i].Value, second.Points[i].Value, 1e-9)
		assert.InDelta(t, first.Lower[i], second.Lower[i], 1e-9)
		assert.InDelta(t, first.Upper[i], second.Upper[i], 1e-9)
	}
	assert.Equal(t, first.OverallConfidence, second.OverallConfidence)
}

func TestCombine_NoResultsFallback(t *testing.T) {
	bundle := Combine("rust", constant(3, 10), []*models.MethodForecast{nil, nil, nil})
	assert.True(t, bundle.Fallback)
	assert.Equal(t, 0.0, bundle.OverallConfidence)
	assert.NotEmpty(t, bundle.Explanation)
	assert.Empty(t, bundle.Points)
}

func TestTrendLabel(t *testing.T) {
	tests := []struct {
		name     string
		history  []float64
		forecast []float64
		expected string
	}{
		{"rising", constant(10, 50), constant(7, 60), models.TrendRising},
		{"falling", constant(10, 50), constant(7, 40), models.TrendFalling},
		{"stable", constant(10, 50), constant(7, 52), models.TrendStable},
		{"zero history rising", constant(10, 0), constant(7, 5), models.TrendRising},
		{"zero both", constant(10, 0), constant(7, 0), models.TrendStable},
		{"short forecast", constant(10, 50), []float64{70, 70}, models.TrendRising},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, _ := trendLabel(tt.history, tt.forecast)
			assert.Equal(t, tt.expected, label)
		})
	}
}
