package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/irfndi/trendcast/internal/forecast"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Forecast    ForecastConfig  `mapstructure:"forecast"`
	Warmup      WarmupConfig    `mapstructure:"warmup"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ForecastConfig holds the engine tunables and the horizon limits of the API.
type ForecastConfig struct {
	EngineVersion      string  `mapstructure:"engine_version"`
	Alpha              float64 `mapstructure:"alpha"`
	WMAWindow          int     `mapstructure:"wma_window"`
	MinHistory         int     `mapstructure:"min_history"`
	TailLength         int     `mapstructure:"tail_length"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	MinGapDays         int     `mapstructure:"min_gap_days"`
	DefaultHorizonDays int     `mapstructure:"default_horizon_days"`
	MaxHorizonDays     int     `mapstructure:"max_horizon_days"`
}

// Engine converts the section into the engine configuration.
func (f ForecastConfig) Engine() forecast.Config {
	return forecast.Config{
		EngineVersion: f.EngineVersion,
		Alpha:         f.Alpha,
		WMAWindow:     f.WMAWindow,
		MinHistory:    f.MinHistory,
		TailLength:    f.TailLength,
		MinConfidence: f.MinConfidence,
		MinGapDays:    f.MinGapDays,
	}
}

type WarmupConfig struct {
	FreshTTL       time.Duration `mapstructure:"fresh_ttl"`
	StaleTTL       time.Duration `mapstructure:"stale_ttl"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	ComputeTimeout time.Duration `mapstructure:"compute_timeout"`
	HistoryDays    int           `mapstructure:"history_days"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the cross-field constraints of the forecast and warmup sections.
func (c *Config) Validate() error {
	f := c.Forecast
	if f.Alpha <= 0 || f.Alpha > 1 {
		return fmt.Errorf("forecast alpha must be in (0, 1], got %v", f.Alpha)
	}
	if f.MinHistory < 2 {
		return fmt.Errorf("forecast min_history must be at least 2, got %d", f.MinHistory)
	}
	if f.WMAWindow < 2 {
		return fmt.Errorf("forecast wma_window must be at least 2, got %d", f.WMAWindow)
	}
	if f.MaxHorizonDays <= 0 {
		return fmt.Errorf("forecast max_horizon_days must be positive, got %d", f.MaxHorizonDays)
	}
	if f.DefaultHorizonDays <= 0 || f.DefaultHorizonDays > f.MaxHorizonDays {
		return fmt.Errorf("forecast default_horizon_days must be in [1, %d], got %d", f.MaxHorizonDays, f.DefaultHorizonDays)
	}

	w := c.Warmup
	if w.FreshTTL <= 0 || w.ComputeTimeout <= 0 {
		return errors.New("warmup fresh_ttl and compute_timeout must be positive")
	}
	if w.StaleTTL <= w.FreshTTL {
		return fmt.Errorf("warmup stale_ttl (%s) must exceed fresh_ttl (%s)", w.StaleTTL, w.FreshTTL)
	}
	if w.LockTTL <= w.ComputeTimeout {
		return fmt.Errorf("warmup lock_ttl (%s) must exceed compute_timeout (%s)", w.LockTTL, w.ComputeTimeout)
	}
	if w.HistoryDays < f.MinHistory {
		return fmt.Errorf("warmup history_days must be at least min_history (%d), got %d", f.MinHistory, w.HistoryDays)
	}

	for name, d := range map[string]string{
		"conn_max_lifetime":  c.Database.ConnMaxLifetime,
		"conn_max_idle_time": c.Database.ConnMaxIdleTime,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid database %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "trendcast")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Forecast engine
	def := forecast.DefaultConfig()
	viper.SetDefault("forecast.engine_version", def.EngineVersion)
	viper.SetDefault("forecast.alpha", def.Alpha)
	viper.SetDefault("forecast.wma_window", def.WMAWindow)
	viper.SetDefault("forecast.min_history", def.MinHistory)
	viper.SetDefault("forecast.tail_length", def.TailLength)
	viper.SetDefault("forecast.min_confidence", def.MinConfidence)
	viper.SetDefault("forecast.min_gap_days", def.MinGapDays)
	viper.SetDefault("forecast.default_horizon_days", 14)
	viper.SetDefault("forecast.max_horizon_days", 90)

	// Warmup
	viper.SetDefault("warmup.fresh_ttl", "6h")
	viper.SetDefault("warmup.stale_ttl", "48h")
	viper.SetDefault("warmup.lock_ttl", "30m")
	viper.SetDefault("warmup.compute_timeout", "2m")
	viper.SetDefault("warmup.history_days", 90)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "")
	viper.SetDefault("telemetry.service_name", "trendcast")
}
