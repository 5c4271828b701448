package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/trendcast/internal/cache"
	"github.com/irfndi/trendcast/internal/config"
	"github.com/irfndi/trendcast/internal/forecast"
	"github.com/irfndi/trendcast/internal/logging"
	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/services"
)

var testLimits = HorizonLimits{Default: 14, Max: 90}

func quietLogger() *logrus.Logger {
	return logging.NewDiscardLogger()
}

func trendSeries(days int) models.Series {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series := models.Series{}
	for i := 0; i < days; i++ {
		series.Points = append(series.Points, models.SeriesPoint{
			Date:   start.AddDate(0, 0, i).Format(models.DateLayout),
			Values: map[string]float64{"go": 50, "rust": 50 + float64(i)},
		})
	}
	return series
}

func newForecastRouter(t *testing.T, provider services.SeriesProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	forecasts := services.NewForecastService(forecast.NewEngine(forecast.DefaultConfig()), nil)
	orchestrator := services.NewWarmupOrchestrator(
		cache.NewMemoryForecastCache(),
		provider,
		forecasts,
		services.NewResourceOptimizer(services.ResourceOptimizerConfig{}, quietLogger()),
		config.WarmupConfig{
			FreshTTL:       time.Hour,
			StaleTTL:       2 * time.Hour,
			LockTTL:        time.Minute,
			ComputeTimeout: 5 * time.Second,
			HistoryDays:    90,
		},
		logging.NewStandardLoggerWithWriter("error", io.Discard),
		nil,
	)
	handler := NewForecastHandler(orchestrator, forecasts, testLimits, quietLogger())

	router := gin.New()
	router.POST("/warmup", handler.Warmup)
	router.GET("/status", handler.Status)
	router.POST("/confidence", handler.Confidence)
	return router
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestForecastHandler_WarmupReady(t *testing.T) {
	provider := &services.MockSeriesProvider{}
	provider.On("FetchSeries", mock.Anything, []string{"go", "rust"}, mock.Anything, mock.Anything).
		Return(trendSeries(30), nil).Once()
	router := newForecastRouter(t, provider)

	w := postJSON(router, "/warmup", `{"subject_a":" Go ","subject_b":"RUST","horizon_days":7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.WarmupResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.WarmupReady, result.Status)
	assert.Equal(t, "forecast:go:rust:h7", result.Key)
	require.NotNil(t, result.Bundle)
	assert.Len(t, result.Bundle.BundleA.Points, 7)
	assert.False(t, result.Stale)

	// served from cache: the provider expectation is Once
	w = postJSON(router, "/warmup", `{"subject_a":"go","subject_b":"rust","horizon_days":7}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(router, "/status?subject_a=go&subject_b=rust&horizon_days=7")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.WarmupReady, result.Status)

	provider.AssertExpectations(t)
}

func TestForecastHandler_WarmupDefaultHorizon(t *testing.T) {
	provider := &services.MockSeriesProvider{}
	provider.On("FetchSeries", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(trendSeries(30), nil)
	router := newForecastRouter(t, provider)

	w := postJSON(router, "/warmup", `{"subject_a":"go","subject_b":"rust"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.WarmupResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "forecast:go:rust:h14", result.Key)
}

func TestForecastHandler_WarmupFailed(t *testing.T) {
	provider := &services.MockSeriesProvider{}
	provider.On("FetchSeries", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(models.Series{}, errors.New("connection refused"))
	router := newForecastRouter(t, provider)

	w := postJSON(router, "/warmup", `{"subject_a":"go","subject_b":"rust"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var result models.WarmupResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.WarmupFailed, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestForecastHandler_WarmupValidation(t *testing.T) {
	router := newForecastRouter(t, &services.MockSeriesProvider{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"subject_a":`, "Invalid request body"},
		{"missing subject", `{"subject_a":"go"}`, "Invalid request body"},
		{"blank subject", `{"subject_a":"go","subject_b":"   "}`, "subject_b"},
		{"same subject", `{"subject_a":"Go","subject_b":"go"}`, "must differ"},
		{"horizon too long", `{"subject_a":"go","subject_b":"rust","horizon_days":91}`, "horizon_days"},
		{"negative horizon", `{"subject_a":"go","subject_b":"rust","horizon_days":-1}`, "horizon_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/warmup", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestForecastHandler_StatusIdle(t *testing.T) {
	provider := &services.MockSeriesProvider{}
	router := newForecastRouter(t, provider)

	w := get(router, "/status?subject_a=go&subject_b=rust")
	require.Equal(t, http.StatusOK, w.Code)

	var result models.WarmupResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.WarmupIdle, result.Status)
	assert.Equal(t, "forecast:go:rust:h14", result.Key)
	provider.AssertNotCalled(t, "FetchSeries", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestForecastHandler_StatusBadQuery(t *testing.T) {
	router := newForecastRouter(t, &services.MockSeriesProvider{})

	assert.Equal(t, http.StatusBadRequest, get(router, "/status?subject_a=go&subject_b=rust&horizon_days=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/status?subject_a=go").Code)
}

func TestForecastHandler_Confidence(t *testing.T) {
	router := newForecastRouter(t, &services.MockSeriesProvider{})

	w := postJSON(router, "/confidence", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	var neutral models.ConfidenceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &neutral))
	assert.Equal(t, 50.0, neutral.Score)
	assert.Equal(t, forecast.LabelMedium, neutral.Label)

	w = postJSON(router, "/confidence", `{"agreement_index":100,"data_points":50,"source_count":3,"margin":20}`)
	require.Equal(t, http.StatusOK, w.Code)
	var strong models.ConfidenceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &strong))
	assert.Equal(t, 100.0, strong.Score)
	assert.Equal(t, forecast.LabelHigh, strong.Label)

	assert.Equal(t, http.StatusBadRequest, postJSON(router, "/confidence", `not json`).Code)
}

func TestWarmupStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, warmupStatusCode(models.WarmupReady))
	assert.Equal(t, http.StatusAccepted, warmupStatusCode(models.WarmupRunning))
	assert.Equal(t, http.StatusAccepted, warmupStatusCode(models.WarmupQueued))
	assert.Equal(t, http.StatusServiceUnavailable, warmupStatusCode(models.WarmupFailed))
	assert.Equal(t, http.StatusOK, warmupStatusCode(models.WarmupIdle))
}
