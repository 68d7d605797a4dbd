package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/repository"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

var errRunCancelled = errors.New("run cancelled before symbol was analyzed")

type FavoriteAnalyzer interface {
	JobExecutionStrategy
	AnalyzeSymbol(ctx context.Context, symbol model.Symbol, runID string) (*model.ScheduledAnalysis, error)
}

type FavoriteAnalyzerStrategy struct {
	cfg           *config.Config
	logger        *logger.Logger
	symbolRepo    repository.SymbolRepository
	analysisRepo  repository.ScheduledAnalysisRepository
	kiTradingRepo repository.KITradingRepository
	publisher     EventPublisher
	notifier      SignalNotifier
}

type FavoriteAnalyzerResult struct {
	Symbol string `json:"symbol"`
	Errors string `json:"errors,omitempty"`
}

func NewFavoriteAnalyzerStrategy(
	cfg *config.Config,
	logger *logger.Logger,
	symbolRepo repository.SymbolRepository,
	analysisRepo repository.ScheduledAnalysisRepository,
	kiTradingRepo repository.KITradingRepository,
	publisher EventPublisher,
	notifier SignalNotifier,
) FavoriteAnalyzer {
	return &FavoriteAnalyzerStrategy{
		cfg:           cfg,
		logger:        logger,
		symbolRepo:    symbolRepo,
		analysisRepo:  analysisRepo,
		kiTradingRepo: kiTradingRepo,
		publisher:     publisher,
		notifier:      notifier,
	}
}

func (s *FavoriteAnalyzerStrategy) GetType() JobType {
	return JobTypeFavoriteAnalyzer
}

// Execute analyzes the favorites snapshot with bounded concurrency. One
// symbol failing never stops the others; results of symbols that are no
// longer favorites are pruned once every symbol was attempted.
func (s *FavoriteAnalyzerStrategy) Execute(ctx context.Context, run *model.SchedulerRun) (JobResult, error) {
	favorites, err := s.symbolRepo.ListFavorites(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load favorite symbols", logger.ErrorField(err), logger.StringField("run_id", run.ID))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to load favorites: %v", err)}, fmt.Errorf("failed to load favorites: %w", err)
	}

	run.TotalSymbols = len(favorites)

	var (
		mu        sync.Mutex
		failures  = map[string]string{}
		signals   []model.ScheduledAnalysis
		succeeded int
		snapshot  = make([]string, 0, len(favorites))
	)
	for _, f := range favorites {
		snapshot = append(snapshot, f.Symbol)
	}

	s.logger.DebugContext(ctx, "Start analyzing favorites",
		logger.IntField("total_symbol", len(favorites)),
		logger.IntField("max_concurrency", s.cfg.Scheduler.MaxConcurrency),
	)

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Scheduler.MaxConcurrency)

	for _, symbol := range favorites {
		symbol := symbol
		g.Go(func() error {
			var (
				analysis *model.ScheduledAnalysis
				err      error
			)
			if utils.ShouldContinue(ctx, s.logger) {
				analysis, err = s.AnalyzeSymbol(ctx, symbol, run.ID)
			} else {
				err = errRunCancelled
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WarnContext(ctx, "Failed to analyze symbol", logger.ErrorField(err), logger.StringField("symbol", symbol.Symbol))
				failures[symbol.Symbol] = err.Error()
				s.publish(dto.SchedulerEvent{Type: dto.EventSymbolFailed, RunID: run.ID, Symbol: symbol.Symbol, Error: err.Error()})
				return nil
			}
			succeeded++
			if analysis.IsDirectional() {
				signals = append(signals, *analysis)
			}
			s.publish(dto.SchedulerEvent{Type: dto.EventSymbolDone, RunID: run.ID, Symbol: symbol.Symbol, Analysis: analysis})
			return nil
		})
	}
	_ = g.Wait()

	if removed, err := s.analysisRepo.DeleteNotIn(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "Failed to prune stale analyses", logger.ErrorField(err), logger.StringField("run_id", run.ID))
	} else if removed > 0 {
		s.logger.InfoContext(ctx, "Pruned analyses of unfavorited symbols", logger.IntField("removed", int(removed)))
	}

	run.SucceededCount = succeeded
	if len(failures) > 0 {
		raw, err := json.Marshal(failures)
		if err == nil {
			run.FailedSymbols = datatypes.JSON(raw)
		}
	}

	s.notify(ctx, signals)

	s.logger.InfoContext(ctx, "Favorite analyzer completed",
		logger.IntField("total_symbol", len(favorites)),
		logger.IntField("succeeded", succeeded),
		logger.IntField("failed", len(failures)),
	)

	if len(favorites) == 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "no favorite symbols to analyze"}, nil
	}

	results := make([]FavoriteAnalyzerResult, 0, len(favorites))
	for _, symbol := range snapshot {
		results = append(results, FavoriteAnalyzerResult{Symbol: symbol, Errors: failures[symbol]})
	}
	resultJSON, err := json.Marshal(results)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal results: %v", err)}, fmt.Errorf("failed to marshal results: %w", err)
	}

	// a pass that attempted every symbol is complete even when all of them failed
	if len(failures) > 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_PARTIAL_SUCCESS, Output: string(resultJSON)}, nil
	}
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(resultJSON)}, nil
}

// AnalyzeSymbol asks for a quick, non-LLM recommendation and stores it as the
// symbol's latest result.
func (s *FavoriteAnalyzerStrategy) AnalyzeSymbol(ctx context.Context, symbol model.Symbol, runID string) (*model.ScheduledAnalysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.KITrading.Timeout)
	defer cancel()

	rec, err := s.kiTradingRepo.GetRecommendation(callCtx, dto.RecommendationParam{
		Symbol: symbol.Symbol,
		UseLLM: false,
	})
	if err != nil {
		return nil, err
	}

	analysis, err := toScheduledAnalysis(symbol, rec, runID, utils.TimeNowUTC())
	if err != nil {
		return nil, err
	}

	if err := s.analysisRepo.Upsert(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	return analysis, nil
}

func toScheduledAnalysis(symbol model.Symbol, rec *dto.Recommendation, runID string, now time.Time) (*model.ScheduledAnalysis, error) {
	analysis := &model.ScheduledAnalysis{
		Symbol:          symbol.Symbol,
		Category:        symbol.Category,
		Direction:       rec.Direction,
		ConfidenceScore: rec.ConfidenceScore,
		EntryPrice:      rec.EntryPrice,
		StopLoss:        rec.StopLoss,
		TakeProfit1:     rec.TakeProfit1,
		TakeProfit2:     rec.TakeProfit2,
		TakeProfit3:     rec.TakeProfit3,
		RiskRewardRatio: rec.RiskRewardRatio,
		Rationale:       rec.Rationale,
		KeyLevels:       rec.KeyLevels,
		RunID:           runID,
		AnalyzedAt:      now,
	}

	if len(rec.Risks) > 0 {
		raw, err := json.Marshal(rec.Risks)
		if err != nil {
			return nil, fmt.Errorf("failed to encode risks: %w", err)
		}
		analysis.Risks = datatypes.JSON(raw)
	}
	if len(rec.Indicators) > 0 {
		raw, err := json.Marshal(rec.Indicators)
		if err != nil {
			return nil, fmt.Errorf("failed to encode indicators: %w", err)
		}
		analysis.Indicators = datatypes.JSON(raw)
	}
	return analysis, nil
}

func (s *FavoriteAnalyzerStrategy) publish(event dto.SchedulerEvent) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = utils.TimeNowUTC()
	s.publisher.Broadcast(event)
}

func (s *FavoriteAnalyzerStrategy) notify(ctx context.Context, signals []model.ScheduledAnalysis) {
	if s.notifier == nil || len(signals) == 0 {
		return
	}

	highConfidence := make([]model.ScheduledAnalysis, 0, len(signals))
	for _, sig := range signals {
		if sig.ConfidenceScore >= s.cfg.Telegram.MinConfidence {
			highConfidence = append(highConfidence, sig)
		}
	}
	if len(highConfidence) == 0 {
		return
	}
	sort.Slice(highConfidence, func(i, j int) bool {
		return highConfidence[i].ConfidenceScore > highConfidence[j].ConfidenceScore
	})

	if err := s.notifier.NotifySignals(ctx, highConfidence); err != nil {
		s.logger.WarnContext(ctx, "Failed to send signal notification", logger.ErrorField(err))
	}
}
