package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/repository"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/common"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"
)

var supportedBackupVersions = []string{dto.BackupVersion}

type BackupService interface {
	CreateBackup(ctx context.Context) (*dto.BackupDocument, error)
	ValidateDocument(doc *dto.BackupDocument) error
	RestoreBackup(ctx context.Context, req dto.RestoreRequest) (*dto.RestoreResult, error)
}

type backupService struct {
	cfg           *config.Config
	log           *logger.Logger
	inmemoryCache cache.Cache
	backupRepo    repository.BackupRepository
}

func NewBackupService(cfg *config.Config, log *logger.Logger, inmemoryCache cache.Cache, backupRepo repository.BackupRepository) BackupService {
	return &backupService{
		cfg:           cfg,
		log:           log,
		inmemoryCache: inmemoryCache,
		backupRepo:    backupRepo,
	}
}

func (s *backupService) CreateBackup(ctx context.Context) (*dto.BackupDocument, error) {
	doc, err := s.backupRepo.Export(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to export backup", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to export backup: %w", err)
	}

	doc.Metadata = dto.BackupMetadata{
		Version:        dto.BackupVersion,
		CreatedAt:      utils.TimeNowUTC(),
		TablesIncluded: append([]string(nil), dto.BackupTables...),
		RecordCounts:   doc.ActualCounts(),
	}

	s.log.InfoContext(ctx, "Backup created", logger.Field("record_counts", doc.Metadata.RecordCounts))
	return doc, nil
}

// ValidateDocument checks the version and that every declared count matches
// the rows actually present. A non-empty table without a declared count is
// rejected as well.
func (s *backupService) ValidateDocument(doc *dto.BackupDocument) error {
	if doc == nil {
		return apperror.InvalidDocument("backup document is empty")
	}
	if !utils.ContainsString(supportedBackupVersions, doc.Metadata.Version) {
		return apperror.InvalidDocument("unsupported backup version %q", doc.Metadata.Version)
	}

	actual := doc.ActualCounts()
	tables := make([]string, 0, len(actual))
	for table := range actual {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var problems []string
	for _, table := range tables {
		declared, ok := doc.Metadata.RecordCounts[table]
		switch {
		case !ok && actual[table] > 0:
			problems = append(problems, fmt.Sprintf("%s has %d rows but no declared count", table, actual[table]))
		case ok && declared != actual[table]:
			problems = append(problems, fmt.Sprintf("%s declares %d rows but carries %d", table, declared, actual[table]))
		}
	}
	if len(problems) > 0 {
		return apperror.InvalidDocument("record counts do not match: %s", strings.Join(problems, "; "))
	}

	for i := range doc.Symbols {
		row := &doc.Symbols[i]
		if !isValidSymbolIdentifier(row.Symbol) {
			problems = append(problems, fmt.Sprintf("invalid identifier %q", row.Symbol))
			continue
		}
		if err := validateSymbol(row); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", row.Symbol, err))
		}
	}
	if len(problems) > 0 {
		return apperror.InvalidDocument("invalid symbols: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RestoreBackup writes the selected tables parent first. Every table runs in
// its own transaction and a failing table does not stop the ones after it.
func (s *backupService) RestoreBackup(ctx context.Context, req dto.RestoreRequest) (*dto.RestoreResult, error) {
	doc := &req.Document
	if err := s.ValidateDocument(doc); err != nil {
		s.log.WarnContext(ctx, "Rejected backup document", logger.ErrorField(err))
		return nil, err
	}

	result := &dto.RestoreResult{RecordsRestored: map[string]int{}, Errors: []dto.TableError{}}
	record := func(table string, n int, err error) {
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to restore table", logger.ErrorField(err), logger.StringField("table", table))
			result.Errors = append(result.Errors, dto.TableError{Table: table, Error: err.Error()})
			return
		}
		result.RecordsRestored[table] = n
	}

	clear := req.ClearExisting
	for _, table := range dto.BackupTables {
		if !req.Selected(table) {
			continue
		}
		switch table {
		case dto.TableConfig:
			n, err := s.backupRepo.RestoreConfig(ctx, doc.Config, clear)
			record(table, n, err)
			s.invalidateConfigCache(doc)
		case dto.TableUserPreferences:
			n, err := s.backupRepo.RestorePreferences(ctx, doc.UserPreferences, clear)
			record(table, n, err)
		case dto.TableSymbols:
			n, err := s.backupRepo.RestoreSymbols(ctx, doc.Symbols, clear)
			record(table, n, err)
			if s.inmemoryCache != nil {
				s.inmemoryCache.Delete(common.KEY_SYMBOL_STATS)
			}
		case dto.TableWatchlists:
			lists, items, err := s.backupRepo.RestoreWatchlists(ctx, doc.Watchlists, clear)
			record(table, lists, err)
			if err == nil {
				result.RecordsRestored[dto.TableWatchlistItems] = items
			}
		case dto.TablePriceAlerts:
			n, err := s.backupRepo.RestorePriceAlerts(ctx, doc.PriceAlerts, clear)
			record(table, n, err)
		case dto.TableAnalyses:
			n, err := s.backupRepo.RestoreAnalyses(ctx, doc.TradingAnalyses, clear)
			record(table, n, err)
		case dto.TableJournal:
			n, err := s.backupRepo.RestoreJournal(ctx, doc.TradeJournal, clear)
			record(table, n, err)
		}
	}

	result.Success = len(result.Errors) == 0
	if result.Success {
		s.log.InfoContext(ctx, "Backup restored", logger.Field("records_restored", result.RecordsRestored))
	} else {
		s.log.ErrorContextWithAlert(ctx, "Backup restored with errors", logger.IntField("failed_tables", len(result.Errors)))
	}
	return result, nil
}

func (s *backupService) invalidateConfigCache(doc *dto.BackupDocument) {
	if s.inmemoryCache == nil {
		return
	}
	for _, row := range doc.Config {
		s.inmemoryCache.Delete(fmt.Sprintf(common.KEY_APP_CONFIG, row.Key))
	}
}
