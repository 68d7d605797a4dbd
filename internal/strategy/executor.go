package strategy

import (
	"context"

	"trading-dashboard/internal/model"
)

const (
	JOB_EXIT_CODE_SUCCESS         = 200
	JOB_EXIT_CODE_FAILED          = 500
	JOB_EXIT_CODE_SKIPPED         = 204
	JOB_EXIT_CODE_PARTIAL_SUCCESS = 206
)

type JobType string

const (
	JobTypeFavoriteAnalyzer JobType = "favorite_analyzer"
	JobTypeDataCleanUp      JobType = "data_clean_up"
)

type JobResult struct {
	ExitCode int32  `json:"exit_code"`
	Output   string `json:"output"`
}

// JobExecutionStrategy defines the interface for the work a scheduler run performs.
type JobExecutionStrategy interface {
	Execute(ctx context.Context, run *model.SchedulerRun) (JobResult, error)
	GetType() JobType
}

// EventPublisher fans scheduler events out to live subscribers.
type EventPublisher interface {
	Broadcast(v interface{})
}

// SignalNotifier forwards directional signals to a human channel.
type SignalNotifier interface {
	NotifySignals(ctx context.Context, signals []model.ScheduledAnalysis) error
}
