package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/trendcast/internal/models"
)

func TestExtract(t *testing.T) {
	series := models.Series{Points: []models.SeriesPoint{
		{Date: "2026-03-03", Values: map[string]float64{"go": 3}},
		{Date: "not a date", Values: map[string]float64{"go": 99}},
		{Date: "2026-03-01T10:00:00Z", Values: map[string]float64{"go": 1}},
		{Date: "2026-03-02", Values: map[string]float64{"go": math.NaN()}},
		{Date: "2026-03-04", Values: map[string]float64{"rust": 7}},
		{Date: "2026-03-03", Values: map[string]float64{"go": 4}},
		{Date: "2026-03-05", Values: map[string]float64{"go": -2}},
	}}

	out, err := Extract(series, "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"}, FormatDates(out.Dates))
	assert.Equal(t, []float64{1, 0, 4, 0, 0}, out.Values)
}

func TestExtract_FillsMissingDays(t *testing.T) {
	series := models.Series{Points: []models.SeriesPoint{
		{Date: "2026-01-05", Values: map[string]float64{"go": 20}},
		{Date: "2026-01-01", Values: map[string]float64{"go": 10}},
	}}

	out, err := Extract(series, "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04", "2026-01-05"}, FormatDates(out.Dates))
	assert.Equal(t, []float64{10, 0, 0, 0, 20}, out.Values)
}

func TestExtract_SpanTooLong(t *testing.T) {
	series := models.Series{Points: []models.SeriesPoint{
		{Date: "2000-01-01", Values: map[string]float64{"go": 1}},
		{Date: "2026-01-01", Values: map[string]float64{"go": 2}},
	}}

	_, err := Extract(series, "go")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExtract_InvalidSubject(t *testing.T) {
	series := models.Series{Points: []models.SeriesPoint{{Date: "2026-03-01", Values: map[string]float64{"go": 1}}}}

	_, err := Extract(series, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Extract(series, "zig")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Extract(models.Series{}, "go")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFutureDates(t *testing.T) {
	last, err := ParseDate("2026-02-27")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-28", "2026-03-01", "2026-03-02"}, futureDates(last, 3))
}
