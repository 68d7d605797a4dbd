package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/repository"
	"trading-dashboard/internal/strategy"
	"trading-dashboard/internal/testutil"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRecommender blocks every call until release is closed.
type gatedRecommender struct {
	fakeForecast
	mu      sync.Mutex
	calls   map[string]int
	entered chan struct{}
	once    sync.Once
	release chan struct{}
	failing map[string]bool
}

func newGatedRecommender() *gatedRecommender {
	return &gatedRecommender{
		calls:   map[string]int{},
		entered: make(chan struct{}),
		release: make(chan struct{}),
		failing: map[string]bool{},
	}
}

func (g *gatedRecommender) GetRecommendation(ctx context.Context, param dto.RecommendationParam) (*dto.Recommendation, error) {
	g.mu.Lock()
	g.calls[param.Symbol]++
	fail := g.failing[param.Symbol]
	g.mu.Unlock()
	g.once.Do(func() { close(g.entered) })

	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if fail {
		return nil, apperror.Upstream(errors.New("503"), "recommendation for %s", param.Symbol)
	}
	return &dto.Recommendation{Symbol: param.Symbol, Direction: model.DirectionLong, ConfidenceScore: 75}, nil
}

func (g *gatedRecommender) callCount(symbol string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[symbol]
}

type recordedEvents struct {
	mu     sync.Mutex
	events []dto.SchedulerEvent
}

func (r *recordedEvents) Broadcast(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := v.(dto.SchedulerEvent); ok {
		r.events = append(r.events, e)
	}
}

func (r *recordedEvents) types() []dto.SchedulerEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dto.SchedulerEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type schedulerFixture struct {
	svc          SchedulerService
	ki           *gatedRecommender
	events       *recordedEvents
	symbolRepo   repository.SymbolRepository
	runRepo      repository.SchedulerRunRepository
	analysisRepo repository.ScheduledAnalysisRepository
}

func newSchedulerFixture(t *testing.T, favorites ...string) *schedulerFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		Scheduler: config.Scheduler{IntervalMinutes: 30, MaxConcurrency: 2, HistoryLimit: 50, RetentionDays: 30},
		KITrading: config.KITrading{Timeout: 5 * time.Second},
		Telegram:  config.TelegramConfig{MinConfidence: 70},
		Cache:     config.Cache{AppConfigExpDuration: time.Minute},
	}
	log := logger.NewNop()

	f := &schedulerFixture{
		ki:           newGatedRecommender(),
		events:       &recordedEvents{},
		symbolRepo:   repository.NewSymbolRepository(db),
		runRepo:      repository.NewSchedulerRunRepository(db),
		analysisRepo: repository.NewScheduledAnalysisRepository(db),
	}
	appConfigRepo := repository.NewAppConfigRepository(cfg, cache.NewCache(time.Minute, time.Minute), db)

	strategies := map[strategy.JobType]strategy.JobExecutionStrategy{}
	for _, s := range []strategy.JobExecutionStrategy{
		strategy.NewFavoriteAnalyzerStrategy(cfg, log, f.symbolRepo, f.analysisRepo, f.ki, f.events, nil),
		strategy.NewDataCleanUpStrategy(cfg, log, f.runRepo),
	} {
		strategies[s.GetType()] = s
	}
	executor := NewTaskExecutor(cfg, log, f.runRepo, strategies)
	f.svc = NewSchedulerService(cfg, log, f.runRepo, f.analysisRepo, appConfigRepo, executor, f.events)

	ctx := context.Background()
	for _, s := range favorites {
		require.NoError(t, f.symbolRepo.Create(ctx, &model.Symbol{Symbol: s, Category: model.CategoryForex, Status: model.SymbolStatusActive, IsFavorite: true}))
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.svc.Shutdown(shutdownCtx)
	})
	return f
}

func TestScheduler_RunNowIsExclusive(t *testing.T) {
	f := newSchedulerFixture(t, "EURUSD", "GBPUSD", "USDJPY")
	ctx := context.Background()

	type runResult struct {
		outcome *dto.RunOutcome
		err     error
	}
	first := make(chan runResult, 1)
	go func() {
		outcome, err := f.svc.RunNow(ctx)
		first <- runResult{outcome, err}
	}()

	select {
	case <-f.ki.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached the recommendation service")
	}

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsAnalyzing)

	for i := 0; i < 3; i++ {
		_, err := f.svc.RunNow(ctx)
		assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)
	}

	close(f.ki.release)
	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, model.RunStatusSuccess, res.outcome.Status)
	assert.Equal(t, 3, res.outcome.Succeeded)

	for _, symbol := range []string{"EURUSD", "GBPUSD", "USDJPY"} {
		assert.Equal(t, 1, f.ki.callCount(symbol), symbol)
	}

	runs, err := f.svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunTriggerManual, runs[0].Trigger)
	assert.NotNil(t, runs[0].CompletedAt)

	status, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.IsAnalyzing)
	assert.NotNil(t, status.LastRun)
	assert.Equal(t, 3, status.AnalyzedSymbols)

	types := f.events.types()
	require.NotEmpty(t, types)
	assert.Equal(t, dto.EventRunStarted, types[0])
	assert.Equal(t, dto.EventRunCompleted, types[len(types)-1])
}

func TestScheduler_RunNowReportsPartialOutcome(t *testing.T) {
	f := newSchedulerFixture(t, "EURUSD", "GBPUSD")
	f.ki.failing["GBPUSD"] = true
	close(f.ki.release)
	ctx := context.Background()

	outcome, err := f.svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPartial, outcome.Status)
	assert.Equal(t, 2, outcome.TotalSymbols)
	assert.Contains(t, outcome.FailedSymbols, "GBPUSD")

	result, err := f.svc.Result(ctx, "eurusd")
	require.NoError(t, err)
	assert.Equal(t, outcome.RunID, result.RunID)

	_, err = f.svc.Result(ctx, "GBPUSD")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	results, err := f.svc.Results(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestScheduler_SetInterval(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	for _, minutes := range []int{0, 4, 1441} {
		_, err := f.svc.SetInterval(ctx, minutes)
		assert.True(t, errors.Is(err, apperror.ErrValidation), "minutes=%d", minutes)
	}

	status, err := f.svc.SetInterval(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, status.IntervalMinutes)
	assert.False(t, status.Running)
}

func TestScheduler_StartStop(t *testing.T) {
	f := newSchedulerFixture(t)
	close(f.ki.release)
	ctx := context.Background()

	status, err := f.svc.Start(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, 30, status.IntervalMinutes)

	again, err := f.svc.Start(ctx)
	require.NoError(t, err)
	assert.True(t, again.Running)

	// the startup run finds no favorites and completes on its own
	require.Eventually(t, func() bool {
		runs, err := f.svc.History(ctx, 10)
		return err == nil && len(runs) == 1 && runs[0].CompletedAt != nil
	}, 5*time.Second, 20*time.Millisecond)

	runs, err := f.svc.History(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, model.RunTriggerStartup, runs[0].Trigger)
	assert.Equal(t, model.RunStatusSuccess, runs[0].Status)

	status, err = f.svc.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Nil(t, status.NextRun)
}

func TestScheduler_RunNowOutlivesCallerContext(t *testing.T) {
	favorites := []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCHF"}
	f := newSchedulerFixture(t, favorites...)

	ctx, cancel := context.WithCancel(context.Background())
	type runResult struct {
		outcome *dto.RunOutcome
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		outcome, err := f.svc.RunNow(ctx)
		done <- runResult{outcome, err}
	}()

	select {
	case <-f.ki.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached the recommendation service")
	}
	cancel()
	close(f.ki.release)

	var res runResult
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after the caller went away")
	}
	require.NoError(t, res.err)
	assert.Equal(t, model.RunStatusSuccess, res.outcome.Status)
	assert.Equal(t, len(favorites), res.outcome.Succeeded)
	for _, symbol := range favorites {
		assert.Equal(t, 1, f.ki.callCount(symbol), symbol)
	}

	bg := context.Background()
	runs, err := f.svc.History(bg, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusSuccess, runs[0].Status)
	assert.NotNil(t, runs[0].CompletedAt)

	status, err := f.svc.Status(bg)
	require.NoError(t, err)
	assert.NotNil(t, status.LastRun)
	assert.Equal(t, len(favorites), status.AnalyzedSymbols)
}

func TestScheduler_ClosesStaleRuns(t *testing.T) {
	f := newSchedulerFixture(t)
	close(f.ki.release)
	ctx := context.Background()

	stale := &model.SchedulerRun{Trigger: model.RunTriggerInterval, Status: model.RunStatusRunning, StartedAt: time.Now().UTC().Add(-time.Hour)}
	require.NoError(t, f.runRepo.Create(ctx, stale))

	runs, err := f.svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailure, runs[0].Status)
	require.NotNil(t, runs[0].CompletedAt)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Equal(t, staleRunMessage, *runs[0].ErrorMessage)

	// runs of this process are never touched
	outcome, err := f.svc.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, outcome.Status)

	runs, err = f.svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, outcome.RunID, runs[0].ID)
	assert.Equal(t, model.RunStatusSuccess, runs[0].Status)
}

type stubStrategy struct {
	result strategy.JobResult
}

func (s stubStrategy) Execute(ctx context.Context, run *model.SchedulerRun) (strategy.JobResult, error) {
	run.TotalSymbols = 1
	run.SucceededCount = 1
	return s.result, nil
}

func (s stubStrategy) GetType() strategy.JobType {
	return strategy.JobTypeFavoriteAnalyzer
}

func TestTaskExecutor_CompletesRunAfterCancellation(t *testing.T) {
	runRepo := repository.NewSchedulerRunRepository(testutil.NewTestDB(t))
	executor := NewTaskExecutor(&config.Config{}, logger.NewNop(), runRepo, map[strategy.JobType]strategy.JobExecutionStrategy{
		strategy.JobTypeFavoriteAnalyzer: stubStrategy{result: strategy.JobResult{ExitCode: strategy.JOB_EXIT_CODE_SUCCESS}},
	})

	run := &model.SchedulerRun{Trigger: model.RunTriggerManual, Status: model.RunStatusRunning, StartedAt: time.Now().UTC()}
	require.NoError(t, runRepo.Create(context.Background(), run))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, executor.Execute(ctx, strategy.JobTypeFavoriteAnalyzer, run))

	stored, err := runRepo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
	assert.Equal(t, model.RunStatusSuccess, stored.Status)
	assert.Equal(t, 1, stored.SucceededCount)
}
