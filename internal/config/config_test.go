package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Environment: "test",
		Database:    DatabaseConfig{ConnMaxLifetime: "300s", ConnMaxIdleTime: "60s"},
		Forecast: ForecastConfig{
			EngineVersion:      "1.0.0",
			Alpha:              0.3,
			WMAWindow:          7,
			MinHistory:         7,
			TailLength:         30,
			MinConfidence:      40,
			MinGapDays:         5,
			DefaultHorizonDays: 14,
			MaxHorizonDays:     90,
		},
		Warmup: WarmupConfig{
			FreshTTL:       6 * time.Hour,
			StaleTTL:       48 * time.Hour,
			LockTTL:        30 * time.Minute,
			ComputeTimeout: 2 * time.Minute,
			HistoryDays:    90,
		},
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	config, err := Load()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, "trendcast", config.Database.DBName)
	assert.Equal(t, 6379, config.Redis.Port)

	assert.Equal(t, "1.0.0", config.Forecast.EngineVersion)
	assert.Equal(t, 0.3, config.Forecast.Alpha)
	assert.Equal(t, 7, config.Forecast.MinHistory)
	assert.Equal(t, 14, config.Forecast.DefaultHorizonDays)
	assert.Equal(t, 6*time.Hour, config.Warmup.FreshTTL)
	assert.Equal(t, 48*time.Hour, config.Warmup.StaleTTL)
	assert.Equal(t, 30*time.Minute, config.Warmup.LockTTL)
	assert.Equal(t, 2*time.Minute, config.Warmup.ComputeTimeout)
	assert.False(t, config.Telemetry.Enabled)
	assert.Equal(t, "trendcast", config.Telemetry.ServiceName)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("ENVIRONMENT", "PRODUCTION")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("REDIS_HOST", "prod-redis.example.com")
	t.Setenv("FORECAST_ALPHA", "0.5")
	t.Setenv("FORECAST_ENGINE_VERSION", "2.0.0")
	t.Setenv("WARMUP_FRESH_TTL", "1h")
	t.Setenv("TELEMETRY_ENABLED", "true")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "error", config.LogLevel)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "prod-redis.example.com", config.Redis.Host)
	assert.Equal(t, 0.5, config.Forecast.Alpha)
	assert.Equal(t, "2.0.0", config.Forecast.EngineVersion)
	assert.Equal(t, time.Hour, config.Warmup.FreshTTL)
	assert.True(t, config.Telemetry.Enabled)
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("FORECAST_ALPHA", "1.5")

	config, err := Load()
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"alpha zero", func(c *Config) { c.Forecast.Alpha = 0 }, "alpha"},
		{"short min history", func(c *Config) { c.Forecast.MinHistory = 1 }, "min_history"},
		{"default horizon above max", func(c *Config) { c.Forecast.DefaultHorizonDays = 120 }, "default_horizon_days"},
		{"stale not after fresh", func(c *Config) { c.Warmup.StaleTTL = c.Warmup.FreshTTL }, "stale_ttl"},
		{"lock shorter than compute", func(c *Config) { c.Warmup.LockTTL = time.Minute }, "lock_ttl"},
		{"history shorter than minimum", func(c *Config) { c.Warmup.HistoryDays = 3 }, "history_days"},
		{"bad pool duration", func(c *Config) { c.Database.ConnMaxLifetime = "soon" }, "conn_max_lifetime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestForecastConfig_Engine(t *testing.T) {
	c := validConfig()
	engine := c.Forecast.Engine()
	assert.Equal(t, "1.0.0", engine.EngineVersion)
	assert.Equal(t, 0.3, engine.Alpha)
	assert.Equal(t, 7, engine.WMAWindow)
	assert.Equal(t, 40.0, engine.MinConfidence)
	assert.Equal(t, 5, engine.MinGapDays)
}
