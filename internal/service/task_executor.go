package service

import (
	"context"
	"fmt"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/repository"
	"trading-dashboard/internal/strategy"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"
)

const runUpdateRetryTimeout = 10 * time.Second

// TaskExecutor runs one strategy against a scheduler run and records the result.
type TaskExecutor interface {
	Execute(ctx context.Context, jobType strategy.JobType, run *model.SchedulerRun) error
	// RunMaintenance executes housekeeping strategies that must not change the run row.
	RunMaintenance(ctx context.Context, run *model.SchedulerRun)
}

type taskExecutor struct {
	cfg                *config.Config
	log                *logger.Logger
	schedulerRunRepo   repository.SchedulerRunRepository
	executorStrategies map[strategy.JobType]strategy.JobExecutionStrategy
}

func NewTaskExecutor(cfg *config.Config, log *logger.Logger, schedulerRunRepo repository.SchedulerRunRepository, executorStrategies map[strategy.JobType]strategy.JobExecutionStrategy) TaskExecutor {
	return &taskExecutor{
		schedulerRunRepo:   schedulerRunRepo,
		cfg:                cfg,
		log:                log,
		executorStrategies: executorStrategies,
	}
}

func (t *taskExecutor) Execute(ctx context.Context, jobType strategy.JobType, run *model.SchedulerRun) error {
	t.log.InfoContext(ctx, "Processing run", logger.StringField("run_id", run.ID), logger.StringField("job_type", string(jobType)))

	executor := t.executorStrategies[jobType]
	if executor == nil {
		t.log.ErrorContext(ctx, "Job type not found", logger.StringField("job_type", string(jobType)))
		run.Status = model.RunStatusFailure
		run.ErrorMessage = utils.ToPointer("job type not found")
		run.ExitCode = strategy.JOB_EXIT_CODE_FAILED
	} else {
		result, err := executor.Execute(ctx, run)
		run.ExitCode = result.ExitCode
		run.Status = runStatusFromExitCode(result.ExitCode)
		if err != nil {
			t.log.ErrorContextWithAlert(ctx, "Failed to execute run", logger.ErrorField(err), logger.StringField("run_id", run.ID))
			run.Status = model.RunStatusFailure
			run.ErrorMessage = utils.ToPointer(err.Error())
		}
		t.log.DebugContext(ctx, "Run output", logger.StringField("run_id", run.ID), logger.StringField("output", result.Output))
	}

	completedAt := utils.TimeNowUTC()
	run.CompletedAt = &completedAt
	if err := t.schedulerRunRepo.Update(ctx, run); err != nil {
		t.log.WarnContext(ctx, "Failed to update scheduler run, retrying", logger.ErrorField(err), logger.StringField("run_id", run.ID))

		retryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runUpdateRetryTimeout)
		defer cancel()
		if err := t.schedulerRunRepo.Update(retryCtx, run); err != nil {
			t.log.ErrorContext(ctx, "Failed to update scheduler run", logger.ErrorField(err), logger.StringField("run_id", run.ID))
			return fmt.Errorf("failed to update scheduler run: %w", err)
		}
	}

	return nil
}

func (t *taskExecutor) RunMaintenance(ctx context.Context, run *model.SchedulerRun) {
	cleaner := t.executorStrategies[strategy.JobTypeDataCleanUp]
	if cleaner == nil {
		return
	}
	result, err := cleaner.Execute(ctx, run)
	if err != nil {
		t.log.WarnContext(ctx, "Maintenance failed", logger.ErrorField(err), logger.StringField("run_id", run.ID))
		return
	}
	t.log.DebugContext(ctx, "Maintenance completed", logger.IntField("exit_code", int(result.ExitCode)), logger.StringField("output", result.Output))
}

func runStatusFromExitCode(code int32) model.SchedulerRunStatus {
	switch code {
	case strategy.JOB_EXIT_CODE_SUCCESS, strategy.JOB_EXIT_CODE_SKIPPED:
		return model.RunStatusSuccess
	case strategy.JOB_EXIT_CODE_PARTIAL_SUCCESS:
		return model.RunStatusPartial
	default:
		return model.RunStatusFailure
	}
}
