package dto

import "time"

type CreateSymbolRequest struct {
	Symbol        string   `json:"symbol" validate:"required,symbol_id"`
	DisplayName   string   `json:"display_name" validate:"max=100"`
	Category      string   `json:"category"`
	Subcategory   *string  `json:"subcategory"`
	Status        string   `json:"status"`
	BaseCurrency  *string  `json:"base_currency" validate:"omitempty,max=10"`
	QuoteCurrency *string  `json:"quote_currency" validate:"omitempty,max=10"`
	Description   *string  `json:"description"`
	Notes         *string  `json:"notes"`
	Tags          []string `json:"tags"`
	IsFavorite    bool     `json:"is_favorite"`
}

// UpdateSymbolRequest patches a symbol; nil fields are left untouched and an
// empty Subcategory clears it. Symbol is accepted only to reject renames.
type UpdateSymbolRequest struct {
	Symbol        *string   `json:"symbol"`
	DisplayName   *string   `json:"display_name" validate:"omitempty,max=100"`
	Category      *string   `json:"category"`
	Subcategory   *string   `json:"subcategory"`
	Status        *string   `json:"status"`
	BaseCurrency  *string   `json:"base_currency" validate:"omitempty,max=10"`
	QuoteCurrency *string   `json:"quote_currency" validate:"omitempty,max=10"`
	Description   *string   `json:"description"`
	Notes         *string   `json:"notes"`
	Tags          *[]string `json:"tags"`
	IsFavorite    *bool     `json:"is_favorite"`
}

type SymbolListQuery struct {
	Query         string `query:"q"`
	Category      string `query:"category"`
	Subcategory   string `query:"subcategory"`
	Status        string `query:"status"`
	FavoritesOnly bool   `query:"favorites_only"`
	WithDataOnly  bool   `query:"with_data_only"`
	Limit         int    `query:"limit" validate:"gte=0,lte=1000"`
	Offset        int    `query:"offset" validate:"gte=0"`
}

type SymbolSearchQuery struct {
	Query string `query:"q" validate:"required"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

type SymbolImportResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

type SymbolStats struct {
	Total         int64               `json:"total"`
	Favorites     int64               `json:"favorites"`
	WithData      int64               `json:"with_data"`
	WithModel     int64               `json:"with_model"`
	ByCategory    map[string]int64    `json:"by_category"`
	ByStatus      map[string]int64    `json:"by_status"`
	Subcategories map[string][]string `json:"subcategories"`
}

// InstrumentStats is what the time-series store knows about one identifier.
type InstrumentStats struct {
	Symbol         string
	RecordCount    int64
	FirstTimestamp *time.Time
	LastTimestamp  *time.Time
}
