package postgres

import (
	"context"
	"fmt"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is a wrapper around the gorm.DB client for PostgreSQL.
type DB struct {
	*gorm.DB
	log *logger.Logger
}

// GormLogLevel maps the config string onto gorm's levels, defaulting to Warn.
func GormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "Silent":
		return gormlogger.Silent
	case "Error":
		return gormlogger.Error
	case "Warn":
		return gormlogger.Warn
	case "Info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// NewDB opens the pool and pings it, retrying with exponential backoff while
// the server is still coming up.
func NewDB(cfg config.Database, log *logger.Logger) (*DB, error) {
	gormConfig := &gorm.Config{
		Logger:  gormlogger.Default.LogMode(GormLogLevel(cfg.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var db *gorm.DB
	connect := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to database using GORM: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err))
		}
		if err := sqlDB.Ping(); err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("failed to ping PostgreSQL at %s:%d: %w", cfg.Host, cfg.Port, err)
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.ConnectRetries)
	notify := func(err error, wait time.Duration) {
		log.Warn("Database not ready, retrying",
			logger.ErrorField(err),
			logger.StringField("wait", wait.String()),
		)
	}
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime != "" {
		duration, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("invalid connection max lifetime format '%s': %w", cfg.ConnMaxLifetime, err)
		}
		sqlDB.SetConnMaxLifetime(duration)
	}

	return &DB{DB: db, log: log}, nil
}

// Ping checks the pool is still usable.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.DB != nil {
		sqlDB, err := d.DB.DB()
		d.log.Info("Closing database connection")
		if err != nil {
			return fmt.Errorf("failed to get underlying sql.DB from GORM for closing: %w", err)
		}
		return sqlDB.Close()
	}
	return nil
}
