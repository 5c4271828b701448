package models

// DateLayout is the calendar-day layout used for every series and forecast date.
const DateLayout = "2006-01-02"

// SeriesPoint is one calendar day with a value per subject (search term).
type SeriesPoint struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

// Series is an ordered sequence of SeriesPoints as supplied by the trend-data collaborator.
type Series struct {
	Points []SeriesPoint `json:"points"`
}

// Subjects returns the distinct subject names present in the series, in first-seen order.
func (s Series) Subjects() []string {
	seen := make(map[string]struct{})
	var subjects []string
	for _, p := range s.Points {
		for subject := range p.Values {
			if _, ok := seen[subject]; ok {
				continue
			}
			seen[subject] = struct{}{}
			subjects = append(subjects, subject)
		}
	}
	return subjects
}

// TrendPoint is a single stored observation for one subject.
type TrendPoint struct {
	Subject string  `json:"subject" db:"subject"`
	Date    string  `json:"date" db:"day"`
	Value   float64 `json:"value" db:"value"`
}

// SeriesFromTrendPoints pivots per-subject rows into a date-ordered Series.
// Rows are expected in ascending date order.
func SeriesFromTrendPoints(rows []TrendPoint) Series {
	index := make(map[string]int)
	var series Series
	for _, row := range rows {
		i, ok := index[row.Date]
		if !ok {
			i = len(series.Points)
			index[row.Date] = i
			series.Points = append(series.Points, SeriesPoint{Date: row.Date, Values: map[string]float64{}})
		}
		series.Points[i].Values[row.Subject] = row.Value
	}
	return series
}
