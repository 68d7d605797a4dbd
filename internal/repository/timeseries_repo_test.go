package repository

import (
	"context"
	"testing"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"

	"github.com/stretchr/testify/assert"
)

func TestBuildStatsQuery(t *testing.T) {
	cfg := config.TimeSeries{Table: "market.ohlcv_data", SymbolColumn: "symbol", TimestampColumn: "timestamp"}

	assert.Equal(t,
		`SELECT "symbol", COUNT(*), MIN("timestamp"), MAX("timestamp") FROM "market"."ohlcv_data" GROUP BY "symbol" ORDER BY "symbol"`,
		buildStatsQuery(cfg, false))
	assert.Equal(t,
		`SELECT "symbol", COUNT(*), MIN("timestamp"), MAX("timestamp") FROM "market"."ohlcv_data" WHERE "symbol" = $1 GROUP BY "symbol" ORDER BY "symbol"`,
		buildStatsQuery(cfg, true))
}

func TestTimeSeriesRepository_NotConfigured(t *testing.T) {
	repo := NewTimeSeriesRepository(config.TimeSeries{}, nil)

	_, err := repo.KnownInstruments(context.Background())
	assert.ErrorIs(t, err, apperror.ErrUpstreamUnavailable)
	assert.ErrorIs(t, repo.Ping(context.Background()), apperror.ErrUpstreamUnavailable)
}
