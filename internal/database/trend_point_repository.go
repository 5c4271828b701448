package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irfndi/trendcast/internal/models"
)

// TrendPointRepository reads and writes the daily observations that forecasts are built from.
type TrendPointRepository struct {
	pool DatabasePool
}

func NewTrendPointRepository(pool DatabasePool) *TrendPointRepository {
	return &TrendPointRepository{pool: pool}
}

// EnsureSchema creates the trend_points table when it does not exist.
func (r *TrendPointRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS trend_points (
			subject TEXT NOT NULL,
			day DATE NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (subject, day)
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create trend_points table: %w", err)
	}
	return nil
}

// FetchSeries returns the observations of subjects between from and to inclusive, pivoted by day.
func (r *TrendPointRepository) FetchSeries(ctx context.Context, subjects []string, from, to time.Time) (models.Series, error) {
	if len(subjects) == 0 {
		return models.Series{}, errors.New("at least one subject is required")
	}
	query := `
		SELECT subject, to_char(day, 'YYYY-MM-DD'), value
		FROM trend_points
		WHERE subject = ANY($1) AND day BETWEEN $2 AND $3
		ORDER BY day, subject
	`

	rows, err := r.pool.Query(ctx, query, subjects, from.Format(models.DateLayout), to.Format(models.DateLayout))
	if err != nil {
		return models.Series{}, fmt.Errorf("failed to fetch trend points: %w", err)
	}
	defer rows.Close()

	var points []models.TrendPoint
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.Subject, &p.Date, &p.Value); err != nil {
			return models.Series{}, fmt.Errorf("failed to scan trend point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return models.Series{}, fmt.Errorf("error iterating trend points: %w", err)
	}
	return models.SeriesFromTrendPoints(points), nil
}

// UpsertPoints stores observations, replacing the value of an existing subject and day.
func (r *TrendPointRepository) UpsertPoints(ctx context.Context, points []models.TrendPoint) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}
	// a statement may not touch the same row twice; the last observation wins
	index := make(map[[2]string]int, len(points))
	var subjects, days []string
	var values []float64
	for _, p := range points {
		k := [2]string{p.Subject, p.Date}
		if i, ok := index[k]; ok {
			values[i] = p.Value
			continue
		}
		index[k] = len(subjects)
		subjects = append(subjects, p.Subject)
		days = append(days, p.Date)
		values = append(values, p.Value)
	}

	query := `
		INSERT INTO trend_points (subject, day, value)
		SELECT * FROM unnest($1::text[], $2::date[], $3::float8[])
		ON CONFLICT (subject, day) DO UPDATE SET value = EXCLUDED.value
	`
	tag, err := r.pool.Exec(ctx, query, subjects, days, values)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert trend points: %w", err)
	}
	return tag.RowsAffected(), nil
}
