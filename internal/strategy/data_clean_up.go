package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"trading-dashboard/config"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/repository"
	"trading-dashboard/pkg/logger"
)

type DataCleaner interface {
	JobExecutionStrategy
}

type DataCleanUpResult struct {
	Table string `json:"table"`
	Total int64  `json:"total"`
	Error string `json:"error,omitempty"`
}

// DataCleanUpStrategy drops scheduler history older than the retention window,
// measured from the start of the run that triggers it.
type DataCleanUpStrategy struct {
	cfg              *config.Config
	log              *logger.Logger
	SchedulerRunRepo repository.SchedulerRunRepository
}

func NewDataCleanUpStrategy(cfg *config.Config, log *logger.Logger, schedulerRunRepo repository.SchedulerRunRepository) DataCleaner {
	return &DataCleanUpStrategy{
		cfg:              cfg,
		log:              log,
		SchedulerRunRepo: schedulerRunRepo,
	}
}

func (s *DataCleanUpStrategy) Execute(ctx context.Context, run *model.SchedulerRun) (JobResult, error) {
	if s.cfg.Scheduler.RetentionDays <= 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "retention disabled"}, nil
	}

	date := run.StartedAt.AddDate(0, 0, -s.cfg.Scheduler.RetentionDays)
	totalDeleted, err := s.SchedulerRunRepo.DeleteOlderThan(ctx, date)
	output := DataCleanUpResult{Table: model.SchedulerRun{}.TableName(), Total: totalDeleted}
	exitCode := int32(JOB_EXIT_CODE_SUCCESS)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to delete scheduler history", logger.ErrorField(err), logger.StringField("run_id", run.ID))
		output.Error = fmt.Sprintf("failed to delete scheduler history older than %v: %v", date, err)
		exitCode = JOB_EXIT_CODE_FAILED
	} else if totalDeleted > 0 {
		s.log.InfoContext(ctx, "Scheduler history cleaned up", logger.IntField("deleted", int(totalDeleted)))
	}

	res, mErr := json.Marshal(output)
	if mErr != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", mErr)}, fmt.Errorf("failed to marshal output message: %w", mErr)
	}
	return JobResult{ExitCode: exitCode, Output: string(res)}, err
}

func (s *DataCleanUpStrategy) GetType() JobType {
	return JobTypeDataCleanUp
}
