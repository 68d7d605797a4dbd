package dto

import (
	"time"

	"trading-dashboard/internal/model"
)

const BackupVersion = "1.0"

type BackupMetadata struct {
	Version        string         `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	TablesIncluded []string       `json:"tables_included"`
	RecordCounts   map[string]int `json:"record_counts"`
}

// BackupDocument is the portable export of every user-owned table.
type BackupDocument struct {
	Metadata        BackupMetadata            `json:"metadata"`
	Config          []model.AppConfig         `json:"config"`
	UserPreferences []model.UserPreferences   `json:"user_preferences"`
	Symbols         []model.Symbol            `json:"symbols"`
	Watchlists      []model.Watchlist         `json:"watchlists"`
	PriceAlerts     []model.PriceAlert        `json:"price_alerts"`
	TradingAnalyses []model.TradingAnalysis   `json:"trading_analyses"`
	TradeJournal    []model.TradeJournalEntry `json:"trade_journal"`
}

// ActualCounts counts the rows the document really carries, per table.
func (d *BackupDocument) ActualCounts() map[string]int {
	items := 0
	for _, w := range d.Watchlists {
		items += len(w.Items)
	}
	return map[string]int{
		TableConfig:          len(d.Config),
		TableUserPreferences: len(d.UserPreferences),
		TableSymbols:         len(d.Symbols),
		TableWatchlists:      len(d.Watchlists),
		TableWatchlistItems:  items,
		TablePriceAlerts:     len(d.PriceAlerts),
		TableAnalyses:        len(d.TradingAnalyses),
		TableJournal:         len(d.TradeJournal),
	}
}

// RestoreRequest selects which tables to restore; a nil flag means true.
type RestoreRequest struct {
	Document           BackupDocument `json:"backup_data"`
	RestoreConfig      *bool          `json:"restore_config"`
	RestorePreferences *bool          `json:"restore_preferences"`
	RestoreSymbols     *bool          `json:"restore_symbols"`
	RestoreWatchlists  *bool          `json:"restore_watchlists"`
	RestoreAlerts      *bool          `json:"restore_alerts"`
	RestoreAnalyses    *bool          `json:"restore_analyses"`
	RestoreJournal     *bool          `json:"restore_journal"`
	ClearExisting      bool           `json:"clear_existing"`
}

// Selected reports whether table takes part in the restore.
func (r *RestoreRequest) Selected(table string) bool {
	var flag *bool
	switch table {
	case TableConfig:
		flag = r.RestoreConfig
	case TableUserPreferences:
		flag = r.RestorePreferences
	case TableSymbols:
		flag = r.RestoreSymbols
	case TableWatchlists, TableWatchlistItems:
		flag = r.RestoreWatchlists
	case TablePriceAlerts:
		flag = r.RestoreAlerts
	case TableAnalyses:
		flag = r.RestoreAnalyses
	case TableJournal:
		flag = r.RestoreJournal
	default:
		return false
	}
	return flag == nil || *flag
}

// SelectOnly turns every table off except the given ones.
func (r *RestoreRequest) SelectOnly(tables ...string) {
	f := false
	r.RestoreConfig, r.RestorePreferences, r.RestoreSymbols = &f, &f, &f
	r.RestoreWatchlists, r.RestoreAlerts, r.RestoreAnalyses, r.RestoreJournal = &f, &f, &f, &f

	t := true
	for _, table := range tables {
		switch table {
		case TableConfig:
			r.RestoreConfig = &t
		case TableUserPreferences:
			r.RestorePreferences = &t
		case TableSymbols:
			r.RestoreSymbols = &t
		case TableWatchlists, TableWatchlistItems:
			r.RestoreWatchlists = &t
		case TablePriceAlerts:
			r.RestoreAlerts = &t
		case TableAnalyses:
			r.RestoreAnalyses = &t
		case TableJournal:
			r.RestoreJournal = &t
		}
	}
}

type TableError struct {
	Table string `json:"table"`
	Error string `json:"error"`
}

type RestoreResult struct {
	Success         bool           `json:"success"`
	RecordsRestored map[string]int `json:"records_restored"`
	Errors          []TableError   `json:"errors"`
}
