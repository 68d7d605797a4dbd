package dto

import (
	"time"

	"trading-dashboard/internal/model"
)

type SchedulerStatus struct {
	Running         bool        `json:"running"`
	IsAnalyzing     bool        `json:"is_analyzing"`
	IntervalMinutes int         `json:"interval_minutes"`
	LastRun         *time.Time  `json:"last_run"`
	NextRun         *time.Time  `json:"next_run"`
	LastOutcome     *RunOutcome `json:"last_outcome,omitempty"`
	AnalyzedSymbols int         `json:"analyzed_symbols"`
}

// RunOutcome summarises one completed pass over the favorites.
type RunOutcome struct {
	RunID         string                   `json:"run_id"`
	Trigger       model.RunTrigger         `json:"trigger"`
	Status        model.SchedulerRunStatus `json:"status"`
	StartedAt     time.Time                `json:"started_at"`
	CompletedAt   time.Time                `json:"completed_at"`
	TotalSymbols  int                      `json:"total_symbols"`
	Succeeded     int                      `json:"succeeded"`
	FailedSymbols map[string]string        `json:"failed_symbols,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

type SetIntervalRequest struct {
	Minutes int `json:"minutes" validate:"required"`
}

type SchedulerEventType string

const (
	EventRunStarted    SchedulerEventType = "run_started"
	EventSymbolDone    SchedulerEventType = "symbol_analyzed"
	EventSymbolFailed  SchedulerEventType = "symbol_failed"
	EventRunCompleted  SchedulerEventType = "run_completed"
	EventStatusChanged SchedulerEventType = "status_changed"
)

// SchedulerEvent is pushed to websocket subscribers.
type SchedulerEvent struct {
	Type      SchedulerEventType `json:"type"`
	RunID     string             `json:"run_id,omitempty"`
	Symbol    string             `json:"symbol,omitempty"`
	Error     string             `json:"error,omitempty"`
	Analysis  interface{}        `json:"analysis,omitempty"`
	Outcome   *RunOutcome        `json:"outcome,omitempty"`
	Status    *SchedulerStatus   `json:"status,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}
