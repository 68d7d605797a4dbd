package repository

import (
	"context"
	"fmt"

	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const restoreBatchSize = 200

type BackupRepository interface {
	Export(ctx context.Context) (*dto.BackupDocument, error)
	RestoreConfig(ctx context.Context, rows []model.AppConfig, clear bool) (int, error)
	RestorePreferences(ctx context.Context, rows []model.UserPreferences, clear bool) (int, error)
	RestoreSymbols(ctx context.Context, rows []model.Symbol, clear bool) (int, error)
	RestoreWatchlists(ctx context.Context, rows []model.Watchlist, clear bool) (lists int, items int, err error)
	RestorePriceAlerts(ctx context.Context, rows []model.PriceAlert, clear bool) (int, error)
	RestoreAnalyses(ctx context.Context, rows []model.TradingAnalysis, clear bool) (int, error)
	RestoreJournal(ctx context.Context, rows []model.TradeJournalEntry, clear bool) (int, error)
}

type backupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

// Export reads every user-owned table. Metadata is left for the caller.
func (r *backupRepository) Export(ctx context.Context) (*dto.BackupDocument, error) {
	doc := &dto.BackupDocument{}
	db := r.db.WithContext(ctx)

	if err := db.Order("key ASC").Find(&doc.Config).Error; err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", dto.TableConfig, err)
	}
	if err := db.Order("user_id ASC").Find(&doc.UserPreferences).Error; err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", dto.TableUserPreferences, err)
	}
	if err := db.Order("symbol ASC").Find(&doc.Symbols).Error; err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", dto.TableSymbols, err)
	}
	err := db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sort_order ASC, symbol ASC")
	}).Order("sort_order ASC, name ASC").Find(&doc.Watchlists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", dto.TableWatchlists, err)
	}
	if err := db.Order("created_at ASC").Find(&doc.PriceAlerts).Error; err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", dto.TablePriceAlerts, err)
	}
	if err := db.Order("created_at ASC").Find(&doc.TradingAnalyses).Error; err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", dto.TableAnalyses, err)
	}
	if err := db.Order("entry_time ASC").Find(&doc.TradeJournal).Error; err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", dto.TableJournal, err)
	}
	return doc, nil
}

// clearTable removes every row of m inside tx.
func clearTable(tx *gorm.DB, m interface{}) error {
	return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error
}

// upsertRows inserts rows, overwriting existing ones that collide on conflict.
// Associations are never written through the parent.
func upsertRows[T any](tx *gorm.DB, rows []T, conflict ...string) error {
	if len(rows) == 0 {
		return nil
	}
	columns := make([]clause.Column, 0, len(conflict))
	for _, c := range conflict {
		columns = append(columns, clause.Column{Name: c})
	}
	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: columns, UpdateAll: true}).
		CreateInBatches(&rows, restoreBatchSize).Error
}

// restoreTable runs the optional clear and the upsert of one table in its own
// transaction.
func restoreTable[T any](ctx context.Context, db *gorm.DB, m interface{}, rows []T, clear bool, conflict ...string) (int, error) {
	if !clear && len(rows) == 0 {
		return 0, nil
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := clearTable(tx, m); err != nil {
				return err
			}
		}
		return upsertRows(tx, rows, conflict...)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *backupRepository) RestoreConfig(ctx context.Context, rows []model.AppConfig, clear bool) (int, error) {
	return restoreTable(ctx, r.db, &model.AppConfig{}, rows, clear, "key")
}

func (r *backupRepository) RestorePreferences(ctx context.Context, rows []model.UserPreferences, clear bool) (int, error) {
	return restoreTable(ctx, r.db, &model.UserPreferences{}, rows, clear, "user_id")
}

func (r *backupRepository) RestoreSymbols(ctx context.Context, rows []model.Symbol, clear bool) (int, error) {
	return restoreTable(ctx, r.db, &model.Symbol{}, rows, clear, "symbol")
}

// RestoreWatchlists writes the lists and their nested items in one
// transaction; clearing the lists cascades to the items.
func (r *backupRepository) RestoreWatchlists(ctx context.Context, rows []model.Watchlist, clear bool) (int, int, error) {
	if !clear && len(rows) == 0 {
		return 0, 0, nil
	}

	var items []model.WatchlistItem
	for _, w := range rows {
		for _, item := range w.Items {
			item.WatchlistID = w.ID
			items = append(items, item)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := clearTable(tx, &model.WatchlistItem{}); err != nil {
				return err
			}
			if err := clearTable(tx, &model.Watchlist{}); err != nil {
				return err
			}
		}
		if err := upsertRows(tx, rows, "id"); err != nil {
			return err
		}
		return upsertRows(tx, items, "watchlist_id", "symbol")
	})
	if err != nil {
		return 0, 0, err
	}
	return len(rows), len(items), nil
}

func (r *backupRepository) RestorePriceAlerts(ctx context.Context, rows []model.PriceAlert, clear bool) (int, error) {
	return restoreTable(ctx, r.db, &model.PriceAlert{}, rows, clear, "id")
}

func (r *backupRepository) RestoreAnalyses(ctx context.Context, rows []model.TradingAnalysis, clear bool) (int, error) {
	return restoreTable(ctx, r.db, &model.TradingAnalysis{}, rows, clear, "id")
}

func (r *backupRepository) RestoreJournal(ctx context.Context, rows []model.TradeJournalEntry, clear bool) (int, error) {
	return restoreTable(ctx, r.db, &model.TradeJournalEntry{}, rows, clear, "id")
}
