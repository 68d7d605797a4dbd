package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/apperror"
	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/repository"
	"trading-dashboard/internal/testutil"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/logger"
	"trading-dashboard/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newBackupService(t *testing.T) (BackupService, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{}
	return NewBackupService(cfg, logger.NewNop(), cache.NewCache(time.Minute, time.Minute), repository.NewBackupRepository(db)), db
}

func seedUserData(t *testing.T, db *gorm.DB) {
	t.Helper()
	analysisID := "7b1e2f3a-0000-4000-8000-000000000010"
	entry := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&model.AppConfig{Key: "theme", Value: datatypes.JSON(`"dark"`)}).Error)
	require.NoError(t, db.Create(&model.UserPreferences{UserID: "default", Theme: "dark", Language: "de"}).Error)
	require.NoError(t, db.Create(&model.Symbol{Symbol: "EURUSD", Category: model.CategoryForex, Subcategory: utils.ToPointer("major"), Status: model.SymbolStatusActive, IsFavorite: true}).Error)
	require.NoError(t, db.Create(&model.Watchlist{
		Name: "Majors",
		Items: []model.WatchlistItem{
			{Symbol: "EURUSD"},
			{Symbol: "GBPUSD", SortOrder: 1},
		},
	}).Error)
	require.NoError(t, db.Create(&model.PriceAlert{Symbol: "EURUSD", AlertType: "above", TargetValue: decimal.RequireFromString("1.1"), IsActive: true}).Error)
	require.NoError(t, db.Create(&model.TradingAnalysis{ID: analysisID, Symbol: "EURUSD", Timeframe: "H1", AnalysisType: "ai"}).Error)
	require.NoError(t, db.Create(&model.TradeJournalEntry{
		Symbol:     "EURUSD",
		Direction:  model.DirectionLong,
		EntryPrice: decimal.RequireFromString("1.0850"),
		Status:     model.TradeStatusOpen,
		AnalysisID: &analysisID,
		EntryTime:  entry,
	}).Error)
}

func TestBackupService_RoundTrip(t *testing.T) {
	source, sourceDB := newBackupService(t)
	seedUserData(t, sourceDB)
	ctx := context.Background()

	doc, err := source.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.BackupVersion, doc.Metadata.Version)
	assert.Equal(t, dto.BackupTables, doc.Metadata.TablesIncluded)
	assert.Equal(t, 2, doc.Metadata.RecordCounts[dto.TableWatchlistItems])
	assert.Equal(t, 1, doc.Metadata.RecordCounts[dto.TableJournal])
	require.NoError(t, source.ValidateDocument(doc))

	target, _ := newBackupService(t)
	result, err := target.RestoreBackup(ctx, dto.RestoreRequest{Document: *doc})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.RecordsRestored[dto.TableWatchlistItems])

	restored, err := target.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.Metadata.RecordCounts, restored.Metadata.RecordCounts)
	require.Len(t, restored.TradeJournal, 1)
	assert.Equal(t, doc.TradeJournal[0].ID, restored.TradeJournal[0].ID)
	assert.True(t, doc.TradeJournal[0].EntryPrice.Equal(restored.TradeJournal[0].EntryPrice))

	t.Run("second restore is idempotent", func(t *testing.T) {
		again, err := target.RestoreBackup(ctx, dto.RestoreRequest{Document: *doc})
		require.NoError(t, err)
		assert.True(t, again.Success)

		after, err := target.CreateBackup(ctx)
		require.NoError(t, err)
		assert.Equal(t, doc.Metadata.RecordCounts, after.Metadata.RecordCounts)
	})
}

func TestBackupService_RestoreSelection(t *testing.T) {
	source, sourceDB := newBackupService(t)
	seedUserData(t, sourceDB)
	ctx := context.Background()

	doc, err := source.CreateBackup(ctx)
	require.NoError(t, err)

	target, _ := newBackupService(t)
	req := dto.RestoreRequest{Document: *doc}
	req.SelectOnly(dto.TableSymbols, dto.TableWatchlists)

	result, err := target.RestoreBackup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{dto.TableSymbols: 1, dto.TableWatchlists: 1, dto.TableWatchlistItems: 2}, result.RecordsRestored)

	restored, err := target.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Empty(t, restored.Config)
	assert.Empty(t, restored.TradeJournal)
}

func TestBackupService_InvalidDocumentLeavesStoreUntouched(t *testing.T) {
	source, sourceDB := newBackupService(t)
	seedUserData(t, sourceDB)
	ctx := context.Background()

	doc, err := source.CreateBackup(ctx)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(d *dto.BackupDocument)
	}{
		{"count mismatch", func(d *dto.BackupDocument) { d.Metadata.RecordCounts[dto.TableSymbols] = 5 }},
		{"item count mismatch", func(d *dto.BackupDocument) { d.Metadata.RecordCounts[dto.TableWatchlistItems] = 1 }},
		{"missing count for non-empty table", func(d *dto.BackupDocument) { delete(d.Metadata.RecordCounts, dto.TableJournal) }},
		{"unsupported version", func(d *dto.BackupDocument) { d.Metadata.Version = "9.9" }},
		{"subcategory outside category", func(d *dto.BackupDocument) {
			d.Symbols = append([]model.Symbol(nil), d.Symbols...)
			d.Symbols[0].Subcategory = utils.ToPointer("defi")
		}},
		{"unknown category", func(d *dto.BackupDocument) {
			d.Symbols = append([]model.Symbol(nil), d.Symbols...)
			d.Symbols[0].Category = "commodity"
		}},
		{"malformed identifier", func(d *dto.BackupDocument) {
			d.Symbols = append([]model.Symbol(nil), d.Symbols...)
			d.Symbols[0].Symbol = "EUR USD"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := *doc
			broken.Metadata.RecordCounts = map[string]int{}
			for k, v := range doc.Metadata.RecordCounts {
				broken.Metadata.RecordCounts[k] = v
			}
			tt.mutate(&broken)

			target, targetDB := newBackupService(t)
			require.NoError(t, targetDB.Create(&model.Symbol{Symbol: "AAPL", Category: model.CategoryStock, Status: model.SymbolStatusActive}).Error)

			_, err := target.RestoreBackup(ctx, dto.RestoreRequest{Document: broken, ClearExisting: true})
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrInvalidDocument))

			var symbols []model.Symbol
			require.NoError(t, targetDB.Find(&symbols).Error)
			require.Len(t, symbols, 1)
			assert.Equal(t, "AAPL", symbols[0].Symbol)
		})
	}
}

func TestBackupService_RestoreWithClearExisting(t *testing.T) {
	svc, db := newBackupService(t)
	seedUserData(t, db)
	ctx := context.Background()

	doc, err := svc.CreateBackup(ctx)
	require.NoError(t, err)
	require.Len(t, doc.TradingAnalyses, 1)

	result, err := svc.RestoreBackup(ctx, dto.RestoreRequest{Document: *doc, ClearExisting: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)

	after, err := svc.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.Metadata.RecordCounts, after.Metadata.RecordCounts)

	var entry model.TradeJournalEntry
	require.NoError(t, db.First(&entry).Error)
	require.NotNil(t, entry.AnalysisID)
	assert.Equal(t, doc.TradingAnalyses[0].ID, *entry.AnalysisID)
}

func TestBackupService_TableFailureDoesNotStopOthers(t *testing.T) {
	svc, db := newBackupService(t)
	ctx := context.Background()

	missing := "7b1e2f3a-0000-4000-8000-0000000000ff"
	doc := dto.BackupDocument{
		Metadata: dto.BackupMetadata{Version: dto.BackupVersion, RecordCounts: map[string]int{dto.TableSymbols: 1, dto.TableJournal: 1}},
		Symbols:  []model.Symbol{{Symbol: "EURUSD", Category: model.CategoryForex, Status: model.SymbolStatusActive}},
		TradeJournal: []model.TradeJournalEntry{{
			ID: "7b1e2f3a-0000-4000-8000-000000000020", Symbol: "EURUSD", Direction: model.DirectionShort,
			EntryPrice: decimal.RequireFromString("1.09"), Status: model.TradeStatusOpen, AnalysisID: &missing, EntryTime: time.Now().UTC(),
		}},
	}

	result, err := svc.RestoreBackup(ctx, dto.RestoreRequest{Document: doc})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, dto.TableJournal, result.Errors[0].Table)
	assert.Equal(t, 1, result.RecordsRestored[dto.TableSymbols])

	var count int64
	require.NoError(t, db.Model(&model.Symbol{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
