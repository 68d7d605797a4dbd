package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MinSchedulerIntervalMinutes = 5
	MaxSchedulerIntervalMinutes = 1440
)

var sqlIdentifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type Config struct {
	Log        Logger         `mapstructure:"logger"`
	DB         Database       `mapstructure:"database"`
	TimeSeries TimeSeries     `mapstructure:"timeseries"`
	API        API            `mapstructure:"api"`
	KITrading  KITrading      `mapstructure:"kitrading"`
	Scheduler  Scheduler      `mapstructure:"scheduler"`
	Cache      Cache          `mapstructure:"cache"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"`
	OutputFile string `mapstructure:"output_file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type Database struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	PasswordSSMParam  string `mapstructure:"password_ssm_param"`
	DBName            string `mapstructure:"name"`
	SSLMode           string `mapstructure:"ssl_mode"`
	TimeZone          string `mapstructure:"time_zone"`
	MaxIdleConns      int    `mapstructure:"max_idle_conns"`
	MaxOpenConns      int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime   string `mapstructure:"conn_max_lifetime"`
	LogLevel          string `mapstructure:"log_level"`
	ConnectRetries    uint64 `mapstructure:"connect_retries"`
	MigrationsPath    string `mapstructure:"migrations_path"`
	AutoMigrateOnBoot bool   `mapstructure:"auto_migrate_on_boot"`
}

// TimeSeries points at the TimescaleDB instance holding raw OHLCV rows.
type TimeSeries struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	PasswordSSMParam string        `mapstructure:"password_ssm_param"`
	DBName           string        `mapstructure:"name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	Table            string        `mapstructure:"table"`
	SymbolColumn     string        `mapstructure:"symbol_column"`
	TimestampColumn  string        `mapstructure:"timestamp_column"`
	QueryTimeout     time.Duration `mapstructure:"query_timeout"`
}

type API struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateBurst      int      `mapstructure:"rate_burst"`
}

type KITrading struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type Scheduler struct {
	IntervalMinutes int           `mapstructure:"interval_minutes"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	AutoStart       bool          `mapstructure:"auto_start"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	HistoryLimit    int           `mapstructure:"history_limit"`
	RetentionDays   int           `mapstructure:"retention_days"`
}

type Cache struct {
	DefaultExpiration      time.Duration `mapstructure:"default_expiration"`
	CleanupInterval        time.Duration `mapstructure:"cleanup_interval"`
	SymbolStatsExpDuration time.Duration `mapstructure:"symbol_stats_exp_duration"`
	AppConfigExpDuration   time.Duration `mapstructure:"app_config_exp_duration"`
}

type TelegramConfig struct {
	Enabled                   bool          `mapstructure:"enabled"`
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    int64         `mapstructure:"chat_id"`
	MinConfidence             int           `mapstructure:"min_confidence"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
	SignalCacheDuration       time.Duration `mapstructure:"signal_cache_duration"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "trading_dashboard")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.time_zone", "UTC")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.log_level", "Warn")
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("database.migrations_path", "file://migrations")

	v.SetDefault("timeseries.host", "localhost")
	v.SetDefault("timeseries.port", 5432)
	v.SetDefault("timeseries.user", "postgres")
	v.SetDefault("timeseries.name", "kitrading")
	v.SetDefault("timeseries.ssl_mode", "disable")
	v.SetDefault("timeseries.table", "ohlcv_data")
	v.SetDefault("timeseries.symbol_column", "symbol")
	v.SetDefault("timeseries.timestamp_column", "timestamp")
	v.SetDefault("timeseries.query_timeout", 60*time.Second)

	v.SetDefault("api.port", 3010)
	v.SetDefault("api.allowed_origins", []string{"*"})
	v.SetDefault("api.rate_limit", 10)
	v.SetDefault("api.rate_burst", 30)

	v.SetDefault("kitrading.base_url", "http://localhost:3011/api/v1")
	v.SetDefault("kitrading.timeout", 120*time.Second)
	v.SetDefault("kitrading.max_request_per_minute", 120)

	v.SetDefault("scheduler.interval_minutes", 30)
	v.SetDefault("scheduler.max_concurrency", 4)
	v.SetDefault("scheduler.shutdown_timeout", 2*time.Minute)
	v.SetDefault("scheduler.history_limit", 50)
	v.SetDefault("scheduler.retention_days", 30)

	v.SetDefault("cache.default_expiration", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)
	v.SetDefault("cache.symbol_stats_exp_duration", time.Minute)
	v.SetDefault("cache.app_config_exp_duration", 10*time.Minute)

	v.SetDefault("telegram.min_confidence", 70)
	v.SetDefault("telegram.max_global_request_per_second", 20)
	v.SetDefault("telegram.signal_cache_duration", 6*time.Hour)
}

// Load reads config.yaml from the working directory, then overlays the
// environment (DATABASE_HOST overrides database.host and so on).
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Scheduler.IntervalMinutes < MinSchedulerIntervalMinutes || c.Scheduler.IntervalMinutes > MaxSchedulerIntervalMinutes {
		return fmt.Errorf("scheduler.interval_minutes must be between %d and %d, got %d",
			MinSchedulerIntervalMinutes, MaxSchedulerIntervalMinutes, c.Scheduler.IntervalMinutes)
	}
	if c.Scheduler.MaxConcurrency <= 0 {
		return fmt.Errorf("scheduler.max_concurrency must be positive, got %d", c.Scheduler.MaxConcurrency)
	}
	if c.KITrading.MaxRequestPerMinute <= 0 {
		return fmt.Errorf("kitrading.max_request_per_minute must be positive, got %d", c.KITrading.MaxRequestPerMinute)
	}
	for name, ident := range map[string]string{
		"timeseries.table":            c.TimeSeries.Table,
		"timeseries.symbol_column":    c.TimeSeries.SymbolColumn,
		"timeseries.timestamp_column": c.TimeSeries.TimestampColumn,
	} {
		if !sqlIdentifierRegex.MatchString(ident) {
			return fmt.Errorf("%s is not a valid SQL identifier: %q", name, ident)
		}
	}
	return nil
}

// DSN renders a key/value connection string accepted by both pgx and lib/pq.
func (d Database) DSN() string {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
	if d.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", d.TimeZone)
	}
	return dsn
}

// MigrateURL is the URL form golang-migrate expects.
func (d Database) MigrateURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func (t TimeSeries) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		t.Host, t.User, t.Password, t.DBName, t.Port, t.SSLMode)
}
