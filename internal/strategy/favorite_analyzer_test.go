package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/repository"
	"trading-dashboard/internal/testutil"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKITrading struct {
	mu      sync.Mutex
	calls   map[string]int
	failing map[string]bool
	results map[string]dto.Recommendation
}

func (f *fakeKITrading) GetRecommendation(_ context.Context, param dto.RecommendationParam) (*dto.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[param.Symbol]++
	if param.UseLLM {
		return nil, errors.New("scheduled runs must not use the LLM")
	}
	if f.failing[param.Symbol] {
		return nil, apperror.Upstream(errors.New("timeout"), "recommendation for %s", param.Symbol)
	}
	if rec, ok := f.results[param.Symbol]; ok {
		return &rec, nil
	}
	return &dto.Recommendation{Symbol: param.Symbol, Direction: model.DirectionNeutral, ConfidenceScore: 50}, nil
}

func (f *fakeKITrading) GetForecastModels(context.Context) ([]dto.ForecastModel, error) {
	return nil, nil
}

func (f *fakeKITrading) Health(context.Context) error {
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.SchedulerEvent
}

func (p *recordingPublisher) Broadcast(v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := v.(dto.SchedulerEvent); ok {
		p.events = append(p.events, e)
	}
}

type recordingNotifier struct {
	signals []model.ScheduledAnalysis
}

func (n *recordingNotifier) NotifySignals(_ context.Context, signals []model.ScheduledAnalysis) error {
	n.signals = append(n.signals, signals...)
	return nil
}

type analyzerFixture struct {
	analyzer     FavoriteAnalyzer
	symbolRepo   repository.SymbolRepository
	analysisRepo repository.ScheduledAnalysisRepository
	ki           *fakeKITrading
	publisher    *recordingPublisher
	notifier     *recordingNotifier
}

func newAnalyzerFixture(t *testing.T, favorites []string, others []string) *analyzerFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		Scheduler: config.Scheduler{MaxConcurrency: 2},
		KITrading: config.KITrading{Timeout: time.Second},
		Telegram:  config.TelegramConfig{MinConfidence: 70},
	}

	f := &analyzerFixture{
		symbolRepo:   repository.NewSymbolRepository(db),
		analysisRepo: repository.NewScheduledAnalysisRepository(db),
		ki:           &fakeKITrading{failing: map[string]bool{}, results: map[string]dto.Recommendation{}},
		publisher:    &recordingPublisher{},
		notifier:     &recordingNotifier{},
	}
	f.analyzer = NewFavoriteAnalyzerStrategy(cfg, logger.NewNop(), f.symbolRepo, f.analysisRepo, f.ki, f.publisher, f.notifier)

	ctx := context.Background()
	for _, s := range favorites {
		require.NoError(t, f.symbolRepo.Create(ctx, &model.Symbol{Symbol: s, Category: model.CategoryForex, Status: model.SymbolStatusActive, IsFavorite: true}))
	}
	for _, s := range others {
		require.NoError(t, f.symbolRepo.Create(ctx, &model.Symbol{Symbol: s, Category: model.CategoryForex, Status: model.SymbolStatusActive}))
	}
	return f
}

func TestFavoriteAnalyzer_PartialFailureIsIsolated(t *testing.T) {
	f := newAnalyzerFixture(t, []string{"AUDUSD", "EURUSD", "GBPUSD", "USDJPY", "XAUUSD"}, []string{"USDCHF"})
	f.ki.failing["GBPUSD"] = true
	f.ki.failing["XAUUSD"] = true
	ctx := context.Background()

	run := &model.SchedulerRun{ID: "run-1", StartedAt: utils.TimeNowUTC()}
	result, err := f.analyzer.Execute(ctx, run)
	require.NoError(t, err)

	assert.Equal(t, int32(JOB_EXIT_CODE_PARTIAL_SUCCESS), result.ExitCode)
	assert.Equal(t, 5, run.TotalSymbols)
	assert.Equal(t, 3, run.SucceededCount)

	var failed map[string]string
	require.NoError(t, json.Unmarshal(run.FailedSymbols, &failed))
	assert.Len(t, failed, 2)
	assert.Contains(t, failed, "GBPUSD")
	assert.Contains(t, failed, "XAUUSD")

	stored, err := f.analysisRepo.List(ctx)
	require.NoError(t, err)
	got := make([]string, 0, len(stored))
	for _, a := range stored {
		got = append(got, a.Symbol)
		assert.Equal(t, "run-1", a.RunID)
	}
	assert.Equal(t, []string{"AUDUSD", "EURUSD", "USDJPY"}, got)

	// one call per favorite, nothing for the non-favorite
	assert.Len(t, f.ki.calls, 5)
	for symbol, n := range f.ki.calls {
		assert.Equal(t, 1, n, symbol)
	}
	assert.Len(t, f.publisher.events, 5)
}

func TestFavoriteAnalyzer_AllFailedIsStillComplete(t *testing.T) {
	f := newAnalyzerFixture(t, []string{"EURUSD"}, nil)
	f.ki.failing["EURUSD"] = true

	result, err := f.analyzer.Execute(context.Background(), &model.SchedulerRun{ID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(JOB_EXIT_CODE_PARTIAL_SUCCESS), result.ExitCode)
}

func TestFavoriteAnalyzer_PrunesUnfavoritedResults(t *testing.T) {
	f := newAnalyzerFixture(t, []string{"EURUSD", "GBPUSD"}, nil)
	ctx := context.Background()

	_, err := f.analyzer.Execute(ctx, &model.SchedulerRun{ID: "run-1"})
	require.NoError(t, err)

	require.NoError(t, f.symbolRepo.UpdateColumns(ctx, "GBPUSD", map[string]interface{}{"is_favorite": false}))
	_, err = f.analyzer.Execute(ctx, &model.SchedulerRun{ID: "run-2"})
	require.NoError(t, err)

	stored, err := f.analysisRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "EURUSD", stored[0].Symbol)

	require.NoError(t, f.symbolRepo.UpdateColumns(ctx, "EURUSD", map[string]interface{}{"is_favorite": false}))
	result, err := f.analyzer.Execute(ctx, &model.SchedulerRun{ID: "run-3"})
	require.NoError(t, err)
	assert.Equal(t, int32(JOB_EXIT_CODE_SKIPPED), result.ExitCode)

	count, err := f.analysisRepo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFavoriteAnalyzer_NotifiesHighConfidenceSignals(t *testing.T) {
	f := newAnalyzerFixture(t, []string{"BTCUSDT", "EURUSD", "GBPUSD"}, nil)
	f.ki.results["EURUSD"] = dto.Recommendation{Direction: model.DirectionLong, ConfidenceScore: 82, Risks: []string{"ECB"}}
	f.ki.results["GBPUSD"] = dto.Recommendation{Direction: model.DirectionShort, ConfidenceScore: 55}
	f.ki.results["BTCUSDT"] = dto.Recommendation{Direction: model.DirectionNeutral, ConfidenceScore: 95}

	result, err := f.analyzer.Execute(context.Background(), &model.SchedulerRun{ID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(JOB_EXIT_CODE_SUCCESS), result.ExitCode)

	require.Len(t, f.notifier.signals, 1)
	assert.Equal(t, "EURUSD", f.notifier.signals[0].Symbol)
	assert.JSONEq(t, `["ECB"]`, string(f.notifier.signals[0].Risks))
}
