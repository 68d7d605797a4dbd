package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Watchlist struct {
	ID          string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Description *string         `gorm:"column:description;type:text" json:"description"`
	IsDefault   bool            `gorm:"column:is_default;not null" json:"is_default"`
	SortOrder   int             `gorm:"column:sort_order;not null" json:"sort_order"`
	Items       []WatchlistItem `gorm:"foreignKey:WatchlistID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Watchlist) TableName() string {
	return "watchlists"
}

func (w *Watchlist) BeforeCreate(_ *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

type WatchlistItem struct {
	ID              string              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	WatchlistID     string              `gorm:"column:watchlist_id;type:uuid;not null;uniqueIndex:uq_watchlist_symbol" json:"watchlist_id"`
	Symbol          string              `gorm:"column:symbol;type:varchar(32);not null;uniqueIndex:uq_watchlist_symbol" json:"symbol"`
	SortOrder       int                 `gorm:"column:sort_order;not null" json:"sort_order"`
	Notes           *string             `gorm:"column:notes;type:text" json:"notes"`
	AlertPriceAbove decimal.NullDecimal `gorm:"column:alert_price_above;type:numeric(20,8)" json:"alert_price_above"`
	AlertPriceBelow decimal.NullDecimal `gorm:"column:alert_price_below;type:numeric(20,8)" json:"alert_price_below"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (WatchlistItem) TableName() string {
	return "watchlist_items"
}

func (i *WatchlistItem) BeforeCreate(_ *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
