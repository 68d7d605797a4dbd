package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/pkg/utils"

	"github.com/lib/pq"
)

// TimeSeriesRepository reads instrument statistics from the OHLCV store. It
// never writes.
type TimeSeriesRepository interface {
	KnownInstruments(ctx context.Context) ([]dto.InstrumentStats, error)
	InstrumentStats(ctx context.Context, symbol string) (*dto.InstrumentStats, error)
	Ping(ctx context.Context) error
}

type timeSeriesRepository struct {
	cfg config.TimeSeries
	db  *sql.DB
}

func NewTimeSeriesRepository(cfg config.TimeSeries, db *sql.DB) TimeSeriesRepository {
	return &timeSeriesRepository{cfg: cfg, db: db}
}

// quoteQualified quotes every part of a possibly schema-qualified name.
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func buildStatsQuery(cfg config.TimeSeries, single bool) string {
	sym := pq.QuoteIdentifier(cfg.SymbolColumn)
	ts := pq.QuoteIdentifier(cfg.TimestampColumn)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, COUNT(*), MIN(%s), MAX(%s) FROM %s", sym, ts, ts, quoteQualified(cfg.Table))
	if single {
		fmt.Fprintf(&b, " WHERE %s = $1", sym)
	}
	fmt.Fprintf(&b, " GROUP BY %s ORDER BY %s", sym, sym)
	return b.String()
}

func (r *timeSeriesRepository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

func (r *timeSeriesRepository) scan(ctx context.Context, query string, args ...interface{}) ([]dto.InstrumentStats, error) {
	if r.db == nil {
		return nil, apperror.Upstream(nil, "time-series store is not configured")
	}

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Upstream(err, "failed to query time-series store")
	}
	defer rows.Close()

	var stats []dto.InstrumentStats
	for rows.Next() {
		var (
			s           dto.InstrumentStats
			first, last sql.NullTime
		)
		if err := rows.Scan(&s.Symbol, &s.RecordCount, &first, &last); err != nil {
			return nil, apperror.Upstream(err, "failed to read time-series row")
		}
		s.FirstTimestamp = nullTimePtr(first)
		s.LastTimestamp = nullTimePtr(last)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Upstream(err, "failed to scan time-series store")
	}
	return stats, nil
}

func (r *timeSeriesRepository) KnownInstruments(ctx context.Context) ([]dto.InstrumentStats, error) {
	return r.scan(ctx, buildStatsQuery(r.cfg, false))
}

// InstrumentStats returns zero counts, not an error, for an identifier the
// store has never seen.
func (r *timeSeriesRepository) InstrumentStats(ctx context.Context, symbol string) (*dto.InstrumentStats, error) {
	stats, err := r.scan(ctx, buildStatsQuery(r.cfg, true), symbol)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return &dto.InstrumentStats{Symbol: symbol}, nil
	}
	return &stats[0], nil
}

func (r *timeSeriesRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return apperror.Upstream(errors.New("not configured"), "time-series store")
	}
	ctx, cancel := r.queryContext(ctx)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return apperror.Upstream(err, "time-series store unreachable")
	}
	return nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return utils.ToPointer(utils.TruncateToStorage(t.Time))
}
