package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/repository"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/common"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type SymbolService interface {
	ImportSymbols(ctx context.Context) (*dto.SymbolImportResult, error)
	CreateSymbol(ctx context.Context, req dto.CreateSymbolRequest) (*model.Symbol, error)
	UpdateSymbol(ctx context.Context, symbol string, req dto.UpdateSymbolRequest) (*model.Symbol, error)
	DeleteSymbol(ctx context.Context, symbol string) error
	ToggleFavorite(ctx context.Context, symbol string) (*model.Symbol, error)
	RefreshSymbol(ctx context.Context, symbol string) (*model.Symbol, error)
	GetSymbol(ctx context.Context, symbol string) (*model.Symbol, error)
	ListSymbols(ctx context.Context, filter model.SymbolFilter) ([]model.Symbol, int64, error)
	SearchSymbols(ctx context.Context, query string, limit int) ([]model.Symbol, error)
	GetStats(ctx context.Context) (*dto.SymbolStats, error)
}

type symbolService struct {
	cfg            *config.Config
	log            *logger.Logger
	inmemoryCache  cache.Cache
	symbolRepo     repository.SymbolRepository
	timeSeriesRepo repository.TimeSeriesRepository
	kiTradingRepo  repository.KITradingRepository
	unitOfWork     repository.UnitOfWork
}

func NewSymbolService(
	cfg *config.Config,
	log *logger.Logger,
	inmemoryCache cache.Cache,
	symbolRepo repository.SymbolRepository,
	timeSeriesRepo repository.TimeSeriesRepository,
	kiTradingRepo repository.KITradingRepository,
	unitOfWork repository.UnitOfWork,
) SymbolService {
	return &symbolService{
		cfg:            cfg,
		log:            log,
		inmemoryCache:  inmemoryCache,
		symbolRepo:     symbolRepo,
		timeSeriesRepo: timeSeriesRepo,
		kiTradingRepo:  kiTradingRepo,
		unitOfWork:     unitOfWork,
	}
}

// ImportSymbols reconciles the catalog with the identifiers the time-series
// store knows. The store is read completely before anything is written.
func (s *symbolService) ImportSymbols(ctx context.Context) (*dto.SymbolImportResult, error) {
	instruments, err := s.timeSeriesRepo.KnownInstruments(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to scan time-series store", logger.ErrorField(err))
		if apperror.KindOf(err) == apperror.KindUpstreamUnavailable {
			return nil, err
		}
		return nil, apperror.Upstream(err, "failed to scan time-series store")
	}

	modelSymbols, modelsKnown := s.forecastModelSymbols(ctx)

	result := &dto.SymbolImportResult{Total: len(instruments)}
	err = s.unitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		existing, _, err := s.symbolRepo.List(ctx, model.SymbolFilter{}, opts...)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		bySymbol := make(map[string]model.Symbol, len(existing))
		for _, sym := range existing {
			bySymbol[sym.Symbol] = sym
		}

		seen := make(map[string]bool, len(instruments))
		for _, inst := range instruments {
			symbol := normalizeSymbol(inst.Symbol)
			if !isValidSymbolIdentifier(symbol) || seen[symbol] {
				result.Skipped++
				continue
			}
			seen[symbol] = true

			if current, ok := bySymbol[symbol]; ok {
				changes := importChanges(current, inst, modelsKnown, modelSymbols[symbol])
				if len(changes) == 0 {
					continue
				}
				if err := s.symbolRepo.UpdateColumns(ctx, symbol, changes, opts...); err != nil {
					return fmt.Errorf("failed to update %s: %w", symbol, err)
				}
				result.Updated++
				continue
			}

			inf := inferSymbol(symbol)
			row := &model.Symbol{
				Symbol:             symbol,
				DisplayName:        inf.DisplayName,
				Category:           inf.Category,
				Subcategory:        inf.Subcategory,
				Status:             model.SymbolStatusActive,
				BaseCurrency:       inf.BaseCurrency,
				QuoteCurrency:      inf.QuoteCurrency,
				HasTimescaleData:   inst.RecordCount > 0,
				HasNHITSModel:      modelSymbols[symbol],
				TotalRecords:       inst.RecordCount,
				FirstDataTimestamp: inst.FirstTimestamp,
				LastDataTimestamp:  inst.LastTimestamp,
			}
			if err := s.symbolRepo.Create(ctx, row, opts...); err != nil {
				return fmt.Errorf("failed to create %s: %w", symbol, err)
			}
			result.Imported++
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Symbol import rolled back", logger.ErrorField(err))
		return nil, err
	}

	s.invalidateStats()
	s.log.InfoContext(ctx, "Symbol import completed",
		logger.IntField("imported", result.Imported),
		logger.IntField("updated", result.Updated),
		logger.IntField("skipped", result.Skipped),
		logger.IntField("total", result.Total),
	)
	return result, nil
}

// forecastModelSymbols is optional input: when the list cannot be fetched the
// stored has_nhits_model flags are kept as they are.
func (s *symbolService) forecastModelSymbols(ctx context.Context) (map[string]bool, bool) {
	models, err := s.kiTradingRepo.GetForecastModels(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "Forecast model list unavailable, keeping model flags", logger.ErrorField(err))
		return map[string]bool{}, false
	}
	set := make(map[string]bool, len(models))
	for _, m := range models {
		set[normalizeSymbol(m.Symbol)] = true
	}
	return set, true
}

func importChanges(current model.Symbol, inst dto.InstrumentStats, modelsKnown, hasModel bool) map[string]interface{} {
	changes := map[string]interface{}{}
	hasData := inst.RecordCount > 0
	if current.HasTimescaleData != hasData {
		changes["has_timescale_data"] = hasData
	}
	if current.TotalRecords != inst.RecordCount {
		changes["total_records"] = inst.RecordCount
	}
	if !utils.EqualTimePtr(current.FirstDataTimestamp, inst.FirstTimestamp) {
		changes["first_data_timestamp"] = inst.FirstTimestamp
	}
	if !utils.EqualTimePtr(current.LastDataTimestamp, inst.LastTimestamp) {
		changes["last_data_timestamp"] = inst.LastTimestamp
	}
	if modelsKnown && current.HasNHITSModel != hasModel {
		changes["has_nhits_model"] = hasModel
	}
	return changes
}

func (s *symbolService) CreateSymbol(ctx context.Context, req dto.CreateSymbolRequest) (*model.Symbol, error) {
	symbol := normalizeSymbol(req.Symbol)
	if !isValidSymbolIdentifier(symbol) {
		return nil, apperror.Validation("invalid symbol identifier %q", req.Symbol)
	}

	inf := inferSymbol(symbol)
	row := &model.Symbol{
		Symbol:        symbol,
		DisplayName:   strings.TrimSpace(req.DisplayName),
		Category:      strings.ToLower(strings.TrimSpace(req.Category)),
		Subcategory:   normalizeSubcategory(req.Subcategory),
		Status:        strings.ToLower(strings.TrimSpace(req.Status)),
		BaseCurrency:  req.BaseCurrency,
		QuoteCurrency: req.QuoteCurrency,
		Description:   req.Description,
		Notes:         req.Notes,
		IsFavorite:    req.IsFavorite,
	}
	if row.Category == "" {
		row.Category = inf.Category
		if row.Subcategory == nil {
			row.Subcategory = inf.Subcategory
		}
	}
	if row.DisplayName == "" {
		row.DisplayName = inf.DisplayName
	}
	if row.Status == "" {
		row.Status = model.SymbolStatusActive
	}
	if row.BaseCurrency == nil {
		row.BaseCurrency = inf.BaseCurrency
	}
	if row.QuoteCurrency == nil {
		row.QuoteCurrency = inf.QuoteCurrency
	}
	tags, err := encodeTags(req.Tags)
	if err != nil {
		return nil, err
	}
	row.Tags = tags

	if err := validateSymbol(row); err != nil {
		return nil, err
	}

	if _, err := s.symbolRepo.Get(ctx, symbol); err == nil {
		return nil, apperror.Duplicate("symbol %s already exists", symbol)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check symbol %s: %w", symbol, err)
	}

	if err := s.symbolRepo.Create(ctx, row); err != nil {
		s.log.ErrorContext(ctx, "Failed to create symbol", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return nil, fmt.Errorf("failed to create symbol: %w", err)
	}
	s.invalidateStats()
	return row, nil
}

// UpdateSymbol applies a patch. The resulting category/subcategory pair is
// validated as a whole and nothing is written when it is invalid.
func (s *symbolService) UpdateSymbol(ctx context.Context, symbol string, req dto.UpdateSymbolRequest) (*model.Symbol, error) {
	current, err := s.getSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if req.Symbol != nil && normalizeSymbol(*req.Symbol) != current.Symbol {
		return nil, apperror.Validation("symbol identifier cannot be changed")
	}

	updated := *current
	if req.DisplayName != nil {
		updated.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Category != nil {
		updated.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Subcategory != nil {
		updated.Subcategory = normalizeSubcategory(req.Subcategory)
	}
	if req.Status != nil {
		updated.Status = strings.ToLower(strings.TrimSpace(*req.Status))
	}
	if req.BaseCurrency != nil {
		updated.BaseCurrency = req.BaseCurrency
	}
	if req.QuoteCurrency != nil {
		updated.QuoteCurrency = req.QuoteCurrency
	}
	if req.Description != nil {
		updated.Description = req.Description
	}
	if req.Notes != nil {
		updated.Notes = req.Notes
	}
	if req.Tags != nil {
		tags, err := encodeTags(*req.Tags)
		if err != nil {
			return nil, err
		}
		updated.Tags = tags
	}
	if req.IsFavorite != nil {
		updated.IsFavorite = *req.IsFavorite
	}

	if err := validateSymbol(&updated); err != nil {
		return nil, err
	}

	if err := s.symbolRepo.Save(ctx, &updated); err != nil {
		s.log.ErrorContext(ctx, "Failed to update symbol", logger.ErrorField(err), logger.StringField("symbol", current.Symbol))
		return nil, fmt.Errorf("failed to update symbol: %w", err)
	}
	s.invalidateStats()
	return &updated, nil
}

func (s *symbolService) DeleteSymbol(ctx context.Context, symbol string) error {
	symbol = normalizeSymbol(symbol)
	affected, err := s.symbolRepo.Delete(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete symbol: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("symbol %s not found", symbol)
	}
	s.invalidateStats()
	return nil
}

func (s *symbolService) ToggleFavorite(ctx context.Context, symbol string) (*model.Symbol, error) {
	current, err := s.getSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	current.IsFavorite = !current.IsFavorite
	if err := s.symbolRepo.UpdateColumns(ctx, current.Symbol, map[string]interface{}{"is_favorite": current.IsFavorite}); err != nil {
		return nil, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	s.invalidateStats()
	return current, nil
}

// RefreshSymbol re-reads one identifier's statistics from the time-series store.
func (s *symbolService) RefreshSymbol(ctx context.Context, symbol string) (*model.Symbol, error) {
	current, err := s.getSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	stats, err := s.timeSeriesRepo.InstrumentStats(ctx, current.Symbol)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to refresh symbol", logger.ErrorField(err), logger.StringField("symbol", current.Symbol))
		if apperror.KindOf(err) == apperror.KindUpstreamUnavailable {
			return nil, err
		}
		return nil, apperror.Upstream(err, "failed to refresh %s", current.Symbol)
	}

	changes := importChanges(*current, *stats, false, false)
	if len(changes) > 0 {
		if err := s.symbolRepo.UpdateColumns(ctx, current.Symbol, changes); err != nil {
			return nil, fmt.Errorf("failed to refresh symbol: %w", err)
		}
		s.invalidateStats()
	}
	return s.getSymbol(ctx, current.Symbol)
}

func (s *symbolService) GetSymbol(ctx context.Context, symbol string) (*model.Symbol, error) {
	return s.getSymbol(ctx, symbol)
}

func (s *symbolService) ListSymbols(ctx context.Context, filter model.SymbolFilter) ([]model.Symbol, int64, error) {
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	filter.Subcategory = strings.ToLower(strings.TrimSpace(filter.Subcategory))
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	return s.symbolRepo.List(ctx, filter)
}

func (s *symbolService) SearchSymbols(ctx context.Context, query string, limit int) ([]model.Symbol, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Validation("search query must not be empty")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	rows, _, err := s.symbolRepo.List(ctx, model.SymbolFilter{Query: query, Limit: limit})
	return rows, err
}

func (s *symbolService) GetStats(ctx context.Context) (*dto.SymbolStats, error) {
	return cache.GetOrLoad(s.inmemoryCache, common.KEY_SYMBOL_STATS, s.cfg.Cache.SymbolStatsExpDuration, func() (*dto.SymbolStats, error) {
		stats, err := s.symbolRepo.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to compute symbol stats: %w", err)
		}
		return stats, nil
	})
}

func (s *symbolService) getSymbol(ctx context.Context, symbol string) (*model.Symbol, error) {
	symbol = normalizeSymbol(symbol)
	row, err := s.symbolRepo.Get(ctx, symbol)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("symbol %s not found", symbol)
		}
		return nil, fmt.Errorf("failed to get symbol %s: %w", symbol, err)
	}
	return row, nil
}

func (s *symbolService) invalidateStats() {
	if s.inmemoryCache != nil {
		s.inmemoryCache.Delete(common.KEY_SYMBOL_STATS)
	}
}

func validateSymbol(row *model.Symbol) error {
	if !dto.IsValidCategory(row.Category) {
		return apperror.Validation("invalid category %q", row.Category)
	}
	if row.Subcategory != nil && !dto.IsValidSubcategory(row.Category, *row.Subcategory) {
		return apperror.Validation("subcategory %q is not valid for category %s", *row.Subcategory, row.Category)
	}
	if !dto.IsValidSymbolStatus(row.Status) {
		return apperror.Validation("invalid status %q", row.Status)
	}
	return nil
}

// normalizeSubcategory lower-cases the value; an empty string clears it.
func normalizeSubcategory(sub *string) *string {
	if sub == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*sub))
	if v == "" {
		return nil
	}
	return &v
}

func encodeTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		return nil, nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, apperror.Validation("invalid tags: %v", err)
	}
	return datatypes.JSON(raw), nil
}
