package repository

import (
	"database/sql"

	"trading-dashboard/config"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	SymbolRepo            SymbolRepository
	ScheduledAnalysisRepo ScheduledAnalysisRepository
	SchedulerRunRepo      SchedulerRunRepository
	AppConfigRepo         AppConfigRepository
	BackupRepo            BackupRepository
	KITradingRepo         KITradingRepository
	TimeSeriesRepo        TimeSeriesRepository
	UnitOfWork            UnitOfWork
}

// NewRepository wires every repository. tsDB may be nil when the time-series
// store is not configured; imports then fail as upstream unavailable.
func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB, tsDB *sql.DB, log *logger.Logger) *Repository {
	return &Repository{
		SymbolRepo:            NewSymbolRepository(db),
		ScheduledAnalysisRepo: NewScheduledAnalysisRepository(db),
		SchedulerRunRepo:      NewSchedulerRunRepository(db),
		AppConfigRepo:         NewAppConfigRepository(cfg, inmemoryCache, db),
		BackupRepo:            NewBackupRepository(db),
		KITradingRepo:         NewKITradingRepository(cfg, log),
		TimeSeriesRepo:        NewTimeSeriesRepository(cfg.TimeSeries, tsDB),
		UnitOfWork:            NewUnitOfWork(db),
	}
}
