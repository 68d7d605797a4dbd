package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CategoryForex     = "forex"
	CategoryCrypto    = "crypto"
	CategoryStock     = "stock"
	CategoryIndex     = "index"
	CategoryCommodity = "commodity"
	CategoryETF       = "etf"
	CategoryOther     = "other"
)

const (
	SymbolStatusActive    = "active"
	SymbolStatusInactive  = "inactive"
	SymbolStatusSuspended = "suspended"
)

// Symbol is one tradable instrument in the catalog. Symbol is the immutable key.
type Symbol struct {
	Symbol             string         `gorm:"column:symbol;type:varchar(32);primaryKey" json:"symbol"`
	DisplayName        string         `gorm:"column:display_name;type:varchar(100)" json:"display_name"`
	Category           string         `gorm:"column:category;type:varchar(20);not null;index" json:"category"`
	Subcategory        *string        `gorm:"column:subcategory;type:varchar(30)" json:"subcategory"`
	Status             string         `gorm:"column:status;type:varchar(20);not null" json:"status"`
	BaseCurrency       *string        `gorm:"column:base_currency;type:varchar(10)" json:"base_currency"`
	QuoteCurrency      *string        `gorm:"column:quote_currency;type:varchar(10)" json:"quote_currency"`
	Description        *string        `gorm:"column:description;type:text" json:"description"`
	Notes              *string        `gorm:"column:notes;type:text" json:"notes"`
	Tags               datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	IsFavorite         bool           `gorm:"column:is_favorite;not null;index" json:"is_favorite"`
	HasTimescaleData   bool           `gorm:"column:has_timescale_data;not null" json:"has_timescale_data"`
	HasNHITSModel      bool           `gorm:"column:has_nhits_model;not null" json:"has_nhits_model"`
	TotalRecords       int64          `gorm:"column:total_records;not null" json:"total_records"`
	FirstDataTimestamp *time.Time     `gorm:"column:first_data_timestamp" json:"first_data_timestamp"`
	LastDataTimestamp  *time.Time     `gorm:"column:last_data_timestamp" json:"last_data_timestamp"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Symbol) TableName() string {
	return "managed_symbols"
}

// SymbolFilter narrows a catalog listing; every set field must match.
type SymbolFilter struct {
	Query         string
	Category      string
	Subcategory   string
	Status        string
	FavoritesOnly bool
	WithDataOnly  bool
	Limit         int
	Offset        int
}

// SymbolCount is one row of a GROUP BY over the catalog.
type SymbolCount struct {
	Key   string
	Count int64
}
