package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/trendcast/internal/cache"
	"github.com/irfndi/trendcast/internal/forecast"
	"github.com/irfndi/trendcast/internal/models"
)

// cachedComparison computes a comparison and stores it the way a warmup would.
func cachedComparison(t *testing.T, c ForecastCache) *models.ComparisonBundle {
	t.Helper()
	bundle, err := newTestForecastService(nil).Compare(context.Background(), goRustSeries(), goRust, 2)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), bundle.Key, bundle, time.Hour, 2*time.Hour))
	return bundle
}

// observed returns the predicted values as actuals, so every point is a hit.
func observed(bundle *models.ComparisonBundle) models.Series {
	series := models.Series{}
	for i, p := range bundle.BundleA.Points {
		series.Points = append(series.Points, models.SeriesPoint{
			Date: p.Date,
			Values: map[string]float64{
				"go":   p.Value,
				"rust": bundle.BundleB.Points[i].Value,
			},
		})
	}
	return series
}

func TestVerifyCached(t *testing.T) {
	c := cache.NewMemoryForecastCache()
	bundle := cachedComparison(t, c)

	provider := new(MockSeriesProvider)
	provider.On("FetchSeries", mock.Anything, []string{"go", "rust"}, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return(observed(bundle), nil)

	store := new(MockVerifiedForecastStore)
	store.On("Insert", mock.Anything, mock.AnythingOfType("*models.VerifiedForecast")).Return(nil)

	svc := NewVerificationService(c, provider, store, newTestForecastService(nil), quietLogger(), nil)
	vf, err := svc.VerifyCached(context.Background(), bundle.Key)
	require.NoError(t, err)

	assert.Equal(t, bundle.ForecastID(), vf.ForecastID)
	assert.Equal(t, []string{"go", "rust"}, vf.Subjects)
	assert.Equal(t, 100.0, vf.IntervalHitRate80)
	assert.Equal(t, 0.0, vf.MAE)
	require.NotNil(t, vf.WinnerCorrect)
	assert.True(t, *vf.WinnerCorrect)
	assert.Len(t, vf.Points, 28)

	// the actuals are requested for exactly the forecast window
	call := provider.Calls[0]
	from := call.Arguments.Get(2).(time.Time)
	to := call.Arguments.Get(3).(time.Time)
	assert.Equal(t, bundle.BundleA.Points[0].Date, from.Format(models.DateLayout))
	assert.Equal(t, bundle.BundleA.Points[13].Date, to.Format(models.DateLayout))

	store.AssertExpectations(t)
}

func TestVerifyCached_NotCached(t *testing.T) {
	store := new(MockVerifiedForecastStore)
	svc := NewVerificationService(cache.NewMemoryForecastCache(), new(MockSeriesProvider), store, newTestForecastService(nil), quietLogger(), nil)

	_, err := svc.VerifyCached(context.Background(), "forecast:go:rust:h14")
	assert.ErrorIs(t, err, ErrForecastNotCached)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestVerifyCached_NothingObservedYet(t *testing.T) {
	c := cache.NewMemoryForecastCache()
	bundle := cachedComparison(t, c)

	provider := new(MockSeriesProvider)
	provider.On("FetchSeries", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(models.Series{}, nil)
	store := new(MockVerifiedForecastStore)

	svc := NewVerificationService(c, provider, store, newTestForecastService(nil), quietLogger(), nil)
	_, err := svc.VerifyCached(context.Background(), bundle.Key)
	assert.ErrorIs(t, err, forecast.ErrNothingToVerify)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestVerifyCached_StoreError(t *testing.T) {
	c := cache.NewMemoryForecastCache()
	bundle := cachedComparison(t, c)

	provider := new(MockSeriesProvider)
	provider.On("FetchSeries", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(observed(bundle), nil)
	store := new(MockVerifiedForecastStore)
	store.On("Insert", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := NewVerificationService(c, provider, store, newTestForecastService(nil), quietLogger(), nil)
	_, err := svc.VerifyCached(context.Background(), bundle.Key)
	assert.ErrorContains(t, err, "disk full")
}

func TestVerifyCached_ProviderError(t *testing.T) {
	c := cache.NewMemoryForecastCache()
	bundle := cachedComparison(t, c)

	provider := new(MockSeriesProvider)
	provider.On("FetchSeries", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(models.Series{}, errors.New("timeout"))

	svc := NewVerificationService(c, provider, new(MockVerifiedForecastStore), newTestForecastService(nil), quietLogger(), nil)
	_, err := svc.VerifyCached(context.Background(), bundle.Key)
	assert.ErrorContains(t, err, "fetch actuals")
}

func TestVerificationService_Reads(t *testing.T) {
	id := uuid.New()
	record := &models.VerifiedForecast{ID: id, ForecastID: "ha:hb"}

	store := new(MockVerifiedForecastStore)
	store.On("GetByID", mock.Anything, id).Return(record, nil)
	store.On("ListByForecast", mock.Anything, "ha:hb", 10).Return([]models.VerifiedForecast{*record}, nil)

	svc := NewVerificationService(cache.NewMemoryForecastCache(), new(MockSeriesProvider), store, newTestForecastService(nil), quietLogger(), nil)

	got, err := svc.GetVerification(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	list, err := svc.ListVerifications(context.Background(), "ha:hb", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	store.AssertExpectations(t)
}
