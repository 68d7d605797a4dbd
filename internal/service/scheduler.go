package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/repository"
	"trading-dashboard/internal/strategy"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

type SchedulerService interface {
	Start(ctx context.Context) (*dto.SchedulerStatus, error)
	Stop(ctx context.Context) (*dto.SchedulerStatus, error)
	RunNow(ctx context.Context) (*dto.RunOutcome, error)
	SetInterval(ctx context.Context, minutes int) (*dto.SchedulerStatus, error)
	Status(ctx context.Context) (*dto.SchedulerStatus, error)
	Results(ctx context.Context) ([]model.ScheduledAnalysis, error)
	Result(ctx context.Context, symbol string) (*model.ScheduledAnalysis, error)
	History(ctx context.Context, limit int) ([]model.SchedulerRun, error)
	Shutdown(ctx context.Context) error
}

// intervalSchedule fires every interval minutes. The interval is read when
// cron computes the following activation, so a change never moves a tick
// that is already pending.
type intervalSchedule struct {
	minutes *atomic.Int64
}

func (s intervalSchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(s.minutes.Load()) * time.Minute)
}

const staleRunMessage = "run did not complete before the process exited"

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, logger.Field("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, logger.ErrorField(err), logger.Field("details", keysAndValues))
}

type schedulerService struct {
	cfg              *config.Config
	log              *logger.Logger
	schedulerRunRepo repository.SchedulerRunRepository
	analysisRepo     repository.ScheduledAnalysisRepository
	appConfigRepo    repository.AppConfigRepository
	taskExecutor     TaskExecutor
	publisher        strategy.EventPublisher

	cron       *cron.Cron
	cronLogger cron.Logger
	interval   atomic.Int64
	loadOnce   sync.Once
	analyzing  atomic.Bool
	inflight   sync.WaitGroup

	// baseCtx outlives Stop; it is cancelled only when Shutdown gives up waiting.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu          sync.Mutex
	armed       bool
	entryID     cron.EntryID
	lastRun     *time.Time
	lastOutcome *dto.RunOutcome
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	schedulerRunRepo repository.SchedulerRunRepository,
	analysisRepo repository.ScheduledAnalysisRepository,
	appConfigRepo repository.AppConfigRepository,
	taskExecutor TaskExecutor,
	publisher strategy.EventPublisher,
) SchedulerService {
	cl := cronLogger{log: log}
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &schedulerService{
		cfg:              cfg,
		log:              log,
		schedulerRunRepo: schedulerRunRepo,
		analysisRepo:     analysisRepo,
		appConfigRepo:    appConfigRepo,
		taskExecutor:     taskExecutor,
		publisher:        publisher,
		cron:             cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cl)),
		cronLogger:       cl,
		baseCtx:          baseCtx,
		cancelBase:       cancel,
	}
	s.interval.Store(int64(cfg.Scheduler.IntervalMinutes))
	return s
}

// loadInterval applies the interval persisted by SetInterval and closes out
// runs a previous process left in running state. It happens once per process,
// before the first run.
func (s *schedulerService) loadInterval(ctx context.Context) {
	s.loadOnce.Do(func() {
		s.failStaleRuns(ctx)

		var minutes int
		err := s.appConfigRepo.Get(ctx, model.AppConfigSchedulerInterval, &minutes)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.WarnContext(ctx, "Failed to load scheduler interval, using configured value", logger.ErrorField(err))
			}
			return
		}
		if minutes < config.MinSchedulerIntervalMinutes || minutes > config.MaxSchedulerIntervalMinutes {
			s.log.WarnContext(ctx, "Ignoring stored scheduler interval out of range", logger.IntField("minutes", minutes))
			return
		}
		s.interval.Store(int64(minutes))
	})
}

func (s *schedulerService) failStaleRuns(ctx context.Context) {
	n, err := s.schedulerRunRepo.FailStale(ctx, utils.TimeNowUTC(), staleRunMessage)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to close stale scheduler runs", logger.ErrorField(err))
		return
	}
	if n > 0 {
		s.log.WarnContext(ctx, "Closed stale scheduler runs", logger.Field("count", n))
	}
}

// Start arms the timer and triggers one run right away. Starting an armed
// scheduler changes nothing.
func (s *schedulerService) Start(ctx context.Context) (*dto.SchedulerStatus, error) {
	s.loadInterval(ctx)

	s.mu.Lock()
	if s.armed {
		s.mu.Unlock()
		return s.Status(ctx)
	}
	job := cron.NewChain(cron.Recover(s.cronLogger), cron.SkipIfStillRunning(s.cronLogger)).
		Then(cron.FuncJob(s.runScheduled))
	s.entryID = s.cron.Schedule(intervalSchedule{minutes: &s.interval}, job)
	s.armed = true
	s.cron.Start()
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Scheduler started", logger.IntField("interval_minutes", int(s.interval.Load())))

	utils.GoSafe(s.log, func() {
		if _, err := s.runOnce(s.baseCtx, model.RunTriggerStartup); err != nil {
			s.log.WarnContext(s.baseCtx, "Startup run skipped", logger.ErrorField(err))
		}
	})

	return s.statusChanged(ctx)
}

// Stop disarms the timer; a run in progress finishes normally.
func (s *schedulerService) Stop(ctx context.Context) (*dto.SchedulerStatus, error) {
	s.mu.Lock()
	if s.armed {
		s.cron.Remove(s.entryID)
		s.armed = false
		s.log.InfoContext(ctx, "Scheduler stopped")
	}
	s.mu.Unlock()
	return s.statusChanged(ctx)
}

func (s *schedulerService) RunNow(ctx context.Context) (*dto.RunOutcome, error) {
	s.loadInterval(ctx)
	return s.runOnce(ctx, model.RunTriggerManual)
}

func (s *schedulerService) SetInterval(ctx context.Context, minutes int) (*dto.SchedulerStatus, error) {
	if minutes < config.MinSchedulerIntervalMinutes || minutes > config.MaxSchedulerIntervalMinutes {
		return nil, apperror.Validation("interval must be between %d and %d minutes", config.MinSchedulerIntervalMinutes, config.MaxSchedulerIntervalMinutes)
	}
	s.loadInterval(ctx)

	if err := s.appConfigRepo.Set(ctx, model.AppConfigSchedulerInterval, minutes, "Scheduled analysis interval in minutes"); err != nil {
		s.log.ErrorContext(ctx, "Failed to persist scheduler interval", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to persist scheduler interval: %w", err)
	}
	s.interval.Store(int64(minutes))
	s.log.InfoContext(ctx, "Scheduler interval updated", logger.IntField("interval_minutes", minutes))

	return s.statusChanged(ctx)
}

func (s *schedulerService) Status(ctx context.Context) (*dto.SchedulerStatus, error) {
	s.loadInterval(ctx)

	s.mu.Lock()
	status := &dto.SchedulerStatus{
		Running:         s.armed,
		IsAnalyzing:     s.analyzing.Load(),
		IntervalMinutes: int(s.interval.Load()),
		LastRun:         s.lastRun,
		LastOutcome:     s.lastOutcome,
	}
	if s.armed {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	s.mu.Unlock()

	count, err := s.analysisRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count analyses: %w", err)
	}
	status.AnalyzedSymbols = int(count)
	return status, nil
}

func (s *schedulerService) Results(ctx context.Context) ([]model.ScheduledAnalysis, error) {
	return s.analysisRepo.List(ctx)
}

func (s *schedulerService) Result(ctx context.Context, symbol string) (*model.ScheduledAnalysis, error) {
	symbol = normalizeSymbol(symbol)
	row, err := s.analysisRepo.Get(ctx, symbol)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("no analysis for %s", symbol)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return row, nil
}

func (s *schedulerService) History(ctx context.Context, limit int) ([]model.SchedulerRun, error) {
	s.loadInterval(ctx)
	if limit <= 0 || limit > s.cfg.Scheduler.HistoryLimit {
		limit = s.cfg.Scheduler.HistoryLimit
	}
	return s.schedulerRunRepo.List(ctx, limit)
}

// Shutdown disarms the timer and waits for the in-flight run, or for ctx.
func (s *schedulerService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.armed {
		s.cron.Remove(s.entryID)
		s.armed = false
	}
	s.mu.Unlock()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancelBase()
		s.log.InfoContext(ctx, "Scheduler shut down")
		return nil
	case <-ctx.Done():
		s.cancelBase()
		s.log.WarnContext(ctx, "Scheduler shutdown timed out, cancelling run in progress")
		return ctx.Err()
	}
}

func (s *schedulerService) runScheduled() {
	if _, err := s.runOnce(s.baseCtx, model.RunTriggerInterval); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.log.InfoContext(s.baseCtx, "Skipping scheduled tick, a run is still in progress")
			return
		}
		s.log.ErrorContext(s.baseCtx, "Scheduled run failed", logger.ErrorField(err))
	}
}

// runOnce performs one exclusive pass. Concurrent callers get a conflict
// instead of a second pass. The pass ignores cancellation of the caller's ctx
// and stops early only when Shutdown cancels baseCtx.
func (s *schedulerService) runOnce(callerCtx context.Context, trigger model.RunTrigger) (*dto.RunOutcome, error) {
	if !s.analyzing.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.KindConflict, "an analysis run is already in progress")
	}
	s.inflight.Add(1)
	defer func() {
		s.analyzing.Store(false)
		s.inflight.Done()
	}()

	ctx, cancel := context.WithCancel(context.WithoutCancel(callerCtx))
	defer cancel()
	stop := context.AfterFunc(s.baseCtx, cancel)
	defer stop()

	run := &model.SchedulerRun{
		Trigger:   trigger,
		Status:    model.RunStatusRunning,
		StartedAt: utils.TimeNowUTC(),
	}
	if err := s.schedulerRunRepo.Create(ctx, run); err != nil {
		s.log.ErrorContext(ctx, "Failed to create scheduler run", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to create scheduler run: %w", err)
	}

	s.log.InfoContext(ctx, "Analysis run started", logger.StringField("run_id", run.ID), logger.StringField("trigger", string(trigger)))
	s.publish(dto.SchedulerEvent{Type: dto.EventRunStarted, RunID: run.ID})

	if err := s.taskExecutor.Execute(ctx, strategy.JobTypeFavoriteAnalyzer, run); err != nil {
		return nil, err
	}

	outcome := toRunOutcome(run)
	s.mu.Lock()
	if run.Status != model.RunStatusFailure {
		lastRun := outcome.CompletedAt
		s.lastRun = &lastRun
	}
	s.lastOutcome = outcome
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Analysis run completed",
		logger.StringField("run_id", run.ID),
		logger.StringField("status", string(run.Status)),
		logger.IntField("total_symbols", run.TotalSymbols),
		logger.IntField("succeeded", run.SucceededCount),
	)
	s.publish(dto.SchedulerEvent{Type: dto.EventRunCompleted, RunID: run.ID, Outcome: outcome})

	s.taskExecutor.RunMaintenance(ctx, run)
	return outcome, nil
}

func (s *schedulerService) statusChanged(ctx context.Context) (*dto.SchedulerStatus, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	s.publish(dto.SchedulerEvent{Type: dto.EventStatusChanged, Status: status})
	return status, nil
}

func (s *schedulerService) publish(event dto.SchedulerEvent) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = utils.TimeNowUTC()
	s.publisher.Broadcast(event)
}

func toRunOutcome(run *model.SchedulerRun) *dto.RunOutcome {
	outcome := &dto.RunOutcome{
		RunID:        run.ID,
		Trigger:      run.Trigger,
		Status:       run.Status,
		StartedAt:    run.StartedAt,
		TotalSymbols: run.TotalSymbols,
		Succeeded:    run.SucceededCount,
	}
	if run.CompletedAt != nil {
		outcome.CompletedAt = *run.CompletedAt
	}
	if len(run.FailedSymbols) > 0 {
		failed := map[string]string{}
		if err := json.Unmarshal(run.FailedSymbols, &failed); err == nil && len(failed) > 0 {
			outcome.FailedSymbols = failed
		}
	}
	if run.ErrorMessage != nil {
		outcome.Error = strings.TrimSpace(*run.ErrorMessage)
	}
	return outcome
}
