package dto

import "trading-dashboard/internal/model"

// Categories in display order.
var Categories = []string{
	model.CategoryForex,
	model.CategoryCrypto,
	model.CategoryStock,
	model.CategoryIndex,
	model.CategoryCommodity,
	model.CategoryETF,
	model.CategoryOther,
}

// Subcategories lists the subcategories each category admits.
var Subcategories = map[string][]string{
	model.CategoryForex:     {"major", "minor", "exotic"},
	model.CategoryCrypto:    {"coin", "token", "defi", "stablecoin", "layer1", "layer2", "meme"},
	model.CategoryStock:     {"tech", "finance", "healthcare", "energy", "consumer", "industrial"},
	model.CategoryIndex:     {"us", "europe", "asia", "global"},
	model.CategoryCommodity: {"metal", "energy", "agriculture"},
	model.CategoryETF:       {"equity", "bond", "commodity", "sector"},
	model.CategoryOther:     {},
}

var SymbolStatuses = []string{
	model.SymbolStatusActive,
	model.SymbolStatusInactive,
	model.SymbolStatusSuspended,
}

func IsValidCategory(category string) bool {
	_, ok := Subcategories[category]
	return ok
}

func IsValidSubcategory(category, subcategory string) bool {
	for _, s := range Subcategories[category] {
		if s == subcategory {
			return true
		}
	}
	return false
}

func IsValidSymbolStatus(status string) bool {
	for _, s := range SymbolStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Textual confidence levels the recommendation service may send instead of a score.
const (
	ConfidenceHigh    = 80
	ConfidenceMedium  = 60
	ConfidenceLow     = 40
	ConfidenceDefault = 50
)

// Backup table names, in restore order.
const (
	TableConfig          = "config"
	TableUserPreferences = "user_preferences"
	TableSymbols         = "symbols"
	TableWatchlists      = "watchlists"
	TableWatchlistItems  = "watchlist_items"
	TablePriceAlerts     = "price_alerts"
	TableAnalyses        = "trading_analyses"
	TableJournal         = "trade_journal"
)

var BackupTables = []string{
	TableConfig,
	TableUserPreferences,
	TableSymbols,
	TableWatchlists,
	TablePriceAlerts,
	TableAnalyses,
	TableJournal,
}
