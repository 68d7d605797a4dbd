package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TradeStatusOpen      = "open"
	TradeStatusClosed    = "closed"
	TradeStatusCancelled = "cancelled"
)

// TradeJournalEntry is one manually logged trade, optionally linked to the
// saved analysis it was based on.
type TradeJournalEntry struct {
	ID             string              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Symbol         string              `gorm:"column:symbol;type:varchar(32);not null;index" json:"symbol"`
	Direction      string              `gorm:"column:direction;type:varchar(10);not null" json:"direction"`
	EntryPrice     decimal.Decimal     `gorm:"column:entry_price;type:numeric(20,8);not null" json:"entry_price"`
	ExitPrice      decimal.NullDecimal `gorm:"column:exit_price;type:numeric(20,8)" json:"exit_price"`
	PositionSize   decimal.NullDecimal `gorm:"column:position_size;type:numeric(20,8)" json:"position_size"`
	StopLoss       decimal.NullDecimal `gorm:"column:stop_loss;type:numeric(20,8)" json:"stop_loss"`
	TakeProfit     decimal.NullDecimal `gorm:"column:take_profit;type:numeric(20,8)" json:"take_profit"`
	PnL            decimal.NullDecimal `gorm:"column:pnl;type:numeric(20,8)" json:"pnl"`
	PnLPercent     decimal.NullDecimal `gorm:"column:pnl_percent;type:numeric(10,4)" json:"pnl_percent"`
	Status         string              `gorm:"column:status;type:varchar(20);not null" json:"status"`
	EntryReason    *string             `gorm:"column:entry_reason;type:text" json:"entry_reason"`
	ExitReason     *string             `gorm:"column:exit_reason;type:text" json:"exit_reason"`
	AnalysisID     *string             `gorm:"column:analysis_id;type:uuid;index" json:"analysis_id"`
	Screenshots    datatypes.JSON      `gorm:"column:screenshots;type:jsonb" json:"screenshots"`
	LessonsLearned *string             `gorm:"column:lessons_learned;type:text" json:"lessons_learned"`
	Tags           datatypes.JSON      `gorm:"column:tags;type:jsonb" json:"tags"`
	EntryTime      time.Time           `gorm:"column:entry_time;not null" json:"entry_time"`
	ExitTime       *time.Time          `gorm:"column:exit_time" json:"exit_time"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	Analysis *TradingAnalysis `gorm:"foreignKey:AnalysisID;constraint:OnDelete:SET NULL" json:"-"`
}

func (TradeJournalEntry) TableName() string {
	return "trade_journal"
}

func (e *TradeJournalEntry) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// AllModels lists every table AutoMigrate should know about, parents first.
func AllModels() []interface{} {
	return []interface{}{
		&AppConfig{},
		&UserPreferences{},
		&Symbol{},
		&Watchlist{},
		&WatchlistItem{},
		&PriceAlert{},
		&TradingAnalysis{},
		&TradeJournalEntry{},
		&ScheduledAnalysis{},
		&SchedulerRun{},
	}
}
