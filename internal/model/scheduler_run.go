package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SchedulerRunStatus string

const (
	RunStatusRunning SchedulerRunStatus = "running"
	RunStatusSuccess SchedulerRunStatus = "success"
	RunStatusPartial SchedulerRunStatus = "partial"
	RunStatusFailure SchedulerRunStatus = "failure"
)

type RunTrigger string

const (
	RunTriggerStartup  RunTrigger = "startup"
	RunTriggerInterval RunTrigger = "interval"
	RunTriggerManual   RunTrigger = "manual"
)

// SchedulerRun records one pass of the favorite analyzer.
type SchedulerRun struct {
	ID             string             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Trigger        RunTrigger         `gorm:"column:trigger_type;type:varchar(20);not null" json:"trigger"`
	Status         SchedulerRunStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`
	StartedAt      time.Time          `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt    *time.Time         `gorm:"column:completed_at" json:"completed_at"`
	TotalSymbols   int                `gorm:"column:total_symbols;not null" json:"total_symbols"`
	SucceededCount int                `gorm:"column:succeeded_count;not null" json:"succeeded_count"`
	FailedSymbols  datatypes.JSON     `gorm:"column:failed_symbols;type:jsonb" json:"failed_symbols"`
	ExitCode       int32              `gorm:"column:exit_code" json:"exit_code"`
	ErrorMessage   *string            `gorm:"column:error_message;type:text" json:"error_message"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func (SchedulerRun) TableName() string {
	return "scheduler_runs"
}

func (r *SchedulerRun) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
