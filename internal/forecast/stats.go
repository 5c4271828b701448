package forecast

import (
	"math"

	"github.com/shopspring/decimal"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// linearlyWeightedMean weights xs[i] by i+1 and divides by the weight sum, so a constant
// input maps to itself.
func linearlyWeightedMean(xs []float64) float64 {
	var sum, weights float64
	for i, x := range xs {
		w := float64(i + 1)
		sum += w * x
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// stdDev is the population standard deviation.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// coefficientOfVariation returns std/mean, 0 for a flat series and 1 when the mean is zero but values move.
func coefficientOfVariation(xs []float64) float64 {
	sd := stdDev(xs)
	if sd == 0 {
		return 0
	}
	m := mean(xs)
	if m == 0 {
		return 1
	}
	return sd / math.Abs(m)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// round rounds half away from zero to the given decimal places.
func round(x float64, places int32) float64 {
	if !isFinite(x) {
		return 0
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
