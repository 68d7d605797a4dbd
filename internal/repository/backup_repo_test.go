package repository

import (
	"context"
	"testing"
	"time"

	"trading-dashboard/internal/model"
	"trading-dashboard/internal/testutil"
	"trading-dashboard/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestBackupRepository_RestoreAndExport(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBackupRepository(db)
	ctx := context.Background()

	lists, items, err := repo.RestoreWatchlists(ctx, []model.Watchlist{
		{
			ID:   "5f8a5f8e-0000-4000-8000-000000000001",
			Name: "Majors",
			Items: []model.WatchlistItem{
				{ID: "5f8a5f8e-0000-4000-8000-0000000000a1", Symbol: "EURUSD"},
				{ID: "5f8a5f8e-0000-4000-8000-0000000000a2", Symbol: "GBPUSD", SortOrder: 1},
			},
		},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, lists)
	assert.Equal(t, 2, items)

	n, err := repo.RestoreConfig(ctx, []model.AppConfig{
		{ID: "5f8a5f8e-0000-4000-8000-0000000000c1", Key: "theme", Value: datatypes.JSON(`"dark"`)},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// same key under a different id overwrites the value instead of failing
	_, err = repo.RestoreConfig(ctx, []model.AppConfig{
		{ID: "5f8a5f8e-0000-4000-8000-0000000000c2", Key: "theme", Value: datatypes.JSON(`"light"`)},
	}, false)
	require.NoError(t, err)

	doc, err := repo.Export(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Config, 1)
	assert.JSONEq(t, `"light"`, string(doc.Config[0].Value))
	require.Len(t, doc.Watchlists, 1)
	require.Len(t, doc.Watchlists[0].Items, 2)
	assert.Equal(t, "EURUSD", doc.Watchlists[0].Items[0].Symbol)
}

func TestBackupRepository_JournalForeignKeyFailureIsIsolated(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBackupRepository(db)
	ctx := context.Background()

	_, err := repo.RestoreJournal(ctx, []model.TradeJournalEntry{
		{
			ID:         "5f8a5f8e-0000-4000-8000-0000000000e1",
			Symbol:     "EURUSD",
			Direction:  model.DirectionLong,
			EntryPrice: decimal.RequireFromString("1.0850"),
			Status:     model.TradeStatusOpen,
			AnalysisID: utils.ToPointer("5f8a5f8e-0000-4000-8000-0000000000ff"),
			EntryTime:  time.Now().UTC(),
		},
	}, false)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&model.TradeJournalEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBackupRepository_ClearExisting(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBackupRepository(db)
	ctx := context.Background()

	_, err := repo.RestoreSymbols(ctx, []model.Symbol{
		{Symbol: "EURUSD", Category: model.CategoryForex, Status: model.SymbolStatusActive},
		{Symbol: "AAPL", Category: model.CategoryStock, Status: model.SymbolStatusActive},
	}, false)
	require.NoError(t, err)

	n, err := repo.RestoreSymbols(ctx, []model.Symbol{
		{Symbol: "BTCUSDT", Category: model.CategoryCrypto, Status: model.SymbolStatusActive},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var symbols []model.Symbol
	require.NoError(t, db.Find(&symbols).Error)
	require.Len(t, symbols, 1)
	assert.Equal(t, "BTCUSDT", symbols[0].Symbol)

	// clearing with nothing to restore empties the table
	n, err = repo.RestoreSymbols(ctx, nil, true)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, db.Find(&symbols).Error)
	assert.Empty(t, symbols)
}
