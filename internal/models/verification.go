package models

import (
	"time"

	"github.com/google/uuid"
)

// VerifiedPoint pairs a prediction with the value that was later observed.
type VerifiedPoint struct {
	Date      string  `json:"date"`
	Subject   string  `json:"subject"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
	Lower80   float64 `json:"lower_80"`
	Upper80   float64 `json:"upper_80"`
	Lower95   float64 `json:"lower_95"`
	Upper95   float64 `json:"upper_95"`
}

// VerifiedForecast is an append-only evaluation of a past forecast.
type VerifiedForecast struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	ForecastID        string          `json:"forecast_id" db:"forecast_id"`
	Subjects          []string        `json:"subjects" db:"subjects"`
	EvaluatedAt       time.Time       `json:"evaluated_at" db:"evaluated_at"`
	Points            []VerifiedPoint `json:"points" db:"points"`
	WinnerCorrect     *bool           `json:"winner_correct" db:"winner_correct"`
	IntervalHitRate80 float64         `json:"interval_hit_rate_80" db:"interval_hit_rate_80"`
	IntervalHitRate95 float64         `json:"interval_hit_rate_95" db:"interval_hit_rate_95"`
	MAE               float64         `json:"mae" db:"mae"`
	MAPE              float64         `json:"mape" db:"mape"`
}
