package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/pkg/logger"

	_ "github.com/lib/pq"
)

// OpenTimeSeries opens a read-only style pool against the OHLCV store. The
// store is optional: a failed ping is logged and the pool is still returned
// so imports report it as unavailable instead of blocking startup.
func OpenTimeSeries(ctx context.Context, cfg config.TimeSeries, log *logger.Logger) (*sql.DB, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open time-series store: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Warn("Time-series store not reachable yet",
			logger.StringField("host", cfg.Host),
			logger.ErrorField(err),
		)
	}
	return db, nil
}
