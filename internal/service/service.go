package service

import (
	"trading-dashboard/config"
	"trading-dashboard/internal/repository"
	"trading-dashboard/internal/strategy"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/telegram"
)

type Service struct {
	SymbolService     SymbolService
	SchedulerService  SchedulerService
	BackupService     BackupService
	SendSignalService SendSignalService
	TaskExecutor      TaskExecutor
}

// NewService wires the services. sender and publisher may be nil; signals are
// then not sent and scheduler events are not published.
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	sender telegram.MessageSender,
	publisher strategy.EventPublisher,
) *Service {
	sendSignalService := NewSendSignalService(cfg, log, sender, inmemoryCache)

	executorStrategies := make(map[strategy.JobType]strategy.JobExecutionStrategy)
	executorStrategies[strategy.JobTypeFavoriteAnalyzer] = strategy.NewFavoriteAnalyzerStrategy(cfg, log, repo.SymbolRepo, repo.ScheduledAnalysisRepo, repo.KITradingRepo, publisher, sendSignalService)
	executorStrategies[strategy.JobTypeDataCleanUp] = strategy.NewDataCleanUpStrategy(cfg, log, repo.SchedulerRunRepo)

	taskExecutor := NewTaskExecutor(cfg, log, repo.SchedulerRunRepo, executorStrategies)
	schedulerService := NewSchedulerService(cfg, log, repo.SchedulerRunRepo, repo.ScheduledAnalysisRepo, repo.AppConfigRepo, taskExecutor, publisher)

	return &Service{
		SymbolService:     NewSymbolService(cfg, log, inmemoryCache, repo.SymbolRepo, repo.TimeSeriesRepo, repo.KITradingRepo, repo.UnitOfWork),
		SchedulerService:  schedulerService,
		BackupService:     NewBackupService(cfg, log, inmemoryCache, repo.BackupRepo),
		SendSignalService: sendSignalService,
		TaskExecutor:      taskExecutor,
	}
}
