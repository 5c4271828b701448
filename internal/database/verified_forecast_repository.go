package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/irfndi/trendcast/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

const verifiedForecastColumns = `id::text, forecast_id, subjects, evaluated_at, points, winner_correct,
		interval_hit_rate_80, interval_hit_rate_95, mae, mape`

// VerifiedForecastRepository stores verification records. Records are only ever inserted.
type VerifiedForecastRepository struct {
	pool DatabasePool
}

// NewVerifiedForecastRepository creates a new verified forecast repository.
func NewVerifiedForecastRepository(pool DatabasePool) *VerifiedForecastRepository {
	return &VerifiedForecastRepository{pool: pool}
}

// EnsureSchema creates the verified_forecasts table when it does not exist.
func (r *VerifiedForecastRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS verified_forecasts (
			id UUID PRIMARY KEY,
			forecast_id TEXT NOT NULL,
			subjects TEXT[] NOT NULL,
			evaluated_at TIMESTAMPTZ NOT NULL,
			points JSONB NOT NULL,
			winner_correct BOOLEAN,
			interval_hit_rate_80 DOUBLE PRECISION NOT NULL,
			interval_hit_rate_95 DOUBLE PRECISION NOT NULL,
			mae DOUBLE PRECISION NOT NULL,
			mape DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_verified_forecasts_forecast_id ON verified_forecasts (forecast_id, evaluated_at DESC);
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create verified_forecasts table: %w", err)
	}
	return nil
}

// Insert appends a verification record.
func (r *VerifiedForecastRepository) Insert(ctx context.Context, vf *models.VerifiedForecast) error {
	if vf == nil {
		return errors.New("verified forecast is required")
	}
	points, err := json.Marshal(vf.Points)
	if err != nil {
		return fmt.Errorf("failed to encode verified points: %w", err)
	}

	query := `
		INSERT INTO verified_forecasts (id, forecast_id, subjects, evaluated_at, points, winner_correct,
			interval_hit_rate_80, interval_hit_rate_95, mae, mape)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		vf.ID.String(),
		vf.ForecastID,
		vf.Subjects,
		vf.EvaluatedAt,
		points,
		vf.WinnerCorrect,
		vf.IntervalHitRate80,
		vf.IntervalHitRate95,
		vf.MAE,
		vf.MAPE,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verified forecast: %w", err)
	}
	return nil
}

// GetByID returns a single verification record or ErrNotFound.
func (r *VerifiedForecastRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.VerifiedForecast, error) {
	query := `SELECT ` + verifiedForecastColumns + ` FROM verified_forecasts WHERE id = $1`

	vf, err := scanVerifiedForecast(r.pool.QueryRow(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verified forecast: %w", err)
	}
	return vf, nil
}

// ListByForecast returns the records for a forecast id, newest first.
func (r *VerifiedForecastRepository) ListByForecast(ctx context.Context, forecastID string, limit int) ([]models.VerifiedForecast, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + verifiedForecastColumns + `
		FROM verified_forecasts
		WHERE forecast_id = $1
		ORDER BY evaluated_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, forecastID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verified forecasts: %w", err)
	}
	defer rows.Close()

	var out []models.VerifiedForecast
	for rows.Next() {
		vf, err := scanVerifiedForecast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verified forecast: %w", err)
		}
		out = append(out, *vf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verified forecasts: %w", err)
	}
	return out, nil
}

func scanVerifiedForecast(row pgx.Row) (*models.VerifiedForecast, error) {
	var (
		vf     models.VerifiedForecast
		id     string
		points []byte
	)
	err := row.Scan(
		&id,
		&vf.ForecastID,
		&vf.Subjects,
		&vf.EvaluatedAt,
		&points,
		&vf.WinnerCorrect,
		&vf.IntervalHitRate80,
		&vf.IntervalHitRate95,
		&vf.MAE,
		&vf.MAPE,
	)
	if err != nil {
		return nil, err
	}
	if vf.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad id %q: %w", id, err)
	}
	if err := json.Unmarshal(points, &vf.Points); err != nil {
		return nil, fmt.Errorf("bad points for %s: %w", id, err)
	}
	return &vf, nil
}
