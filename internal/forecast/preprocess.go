package forecast

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/irfndi/trendcast/internal/models"
)

// maxSeriesDays bounds the calendar span Extract will fill.
const maxSeriesDays = 3660

// Extracted is a cleaned single-subject series.
type Extracted struct {
	Dates  []time.Time
	Values []float64
}

// Extract pulls the value sequence and aligned dates for one subject out of a raw series.
//
// Points with unparseable dates are dropped, the rest are sorted by date and duplicate dates keep the
// last occurrence. Missing, negative and non-finite values become zero, and so does every calendar day
// between the first and last date that has no point at all. An empty subject, one that never appears in
// the series, or a span longer than maxSeriesDays is ErrInvalidInput.
func Extract(series models.Series, subject string) (*Extracted, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}

	byDate := make(map[time.Time]float64, len(series.Points))
	present := false
	for _, p := range series.Points {
		day, err := ParseDate(p.Date)
		if err != nil {
			continue
		}
		v, ok := p.Values[subject]
		if ok {
			present = true
		}
		if !ok || !isFinite(v) || v < 0 {
			v = 0
		}
		byDate[day] = v
	}
	if !present {
		return nil, fmt.Errorf("%w: subject %q not present in series", ErrInvalidInput, subject)
	}

	seen := make([]time.Time, 0, len(byDate))
	for day := range byDate {
		seen = append(seen, day)
	}
	sort.Slice(seen, func(i, j int) bool { return seen[i].Before(seen[j]) })
	first, last := seen[0], seen[len(seen)-1]
	span := int(last.Sub(first).Hours()/24) + 1
	if span > maxSeriesDays {
		return nil, fmt.Errorf("%w: series spans %d days, limit is %d", ErrInvalidInput, span, maxSeriesDays)
	}

	out := &Extracted{
		Dates:  make([]time.Time, 0, span),
		Values: make([]float64, 0, span),
	}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		out.Dates = append(out.Dates, day)
		out.Values = append(out.Values, byDate[day])
	}
	return out, nil
}

// ParseDate parses a calendar day in ISO form, tolerating a trailing time component.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	day, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, s)
	}
	return day, nil
}

// FormatDates renders days in ISO form.
func FormatDates(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(models.DateLayout)
	}
	return out
}

// futureDates returns the horizon days following last.
func futureDates(last time.Time, horizon int) []string {
	dates := make([]string, horizon)
	for i := 0; i < horizon; i++ {
		dates[i] = last.AddDate(0, 0, i+1).Format(models.DateLayout)
	}
	return dates
}
