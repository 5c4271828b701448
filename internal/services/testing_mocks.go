package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/irfndi/trendcast/internal/models"
)

// MockVerifiedForecastStore implements VerifiedForecastStore for testing
type MockVerifiedForecastStore struct {
	mock.Mock
}

func (m *MockVerifiedForecastStore) Insert(ctx context.Context, vf *models.VerifiedForecast) error {
	args := m.Called(ctx, vf)
	return args.Error(0)
}

func (m *MockVerifiedForecastStore) GetByID(ctx context.Context, id uuid.UUID) (*models.VerifiedForecast, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerifiedForecast), args.Error(1)
}

func (m *MockVerifiedForecastStore) ListByForecast(ctx context.Context, forecastID string, limit int) ([]models.VerifiedForecast, error) {
	args := m.Called(ctx, forecastID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VerifiedForecast), args.Error(1)
}

// MockSeriesProvider implements SeriesProvider for testing
type MockSeriesProvider struct {
	mock.Mock
}

func (m *MockSeriesProvider) FetchSeries(ctx context.Context, subjects []string, from, to time.Time) (models.Series, error) {
	args := m.Called(ctx, subjects, from, to)
	return args.Get(0).(models.Series), args.Error(1)
}
