package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TradingAnalysis is an analysis the user saved from the dashboard.
type TradingAnalysis struct {
	ID              string              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Symbol          string              `gorm:"column:symbol;type:varchar(32);not null;index" json:"symbol"`
	Timeframe       string              `gorm:"column:timeframe;type:varchar(20);not null" json:"timeframe"`
	AnalysisType    string              `gorm:"column:analysis_type;type:varchar(50);not null" json:"analysis_type"`
	Direction       *string             `gorm:"column:direction;type:varchar(10)" json:"direction"`
	ConfidenceScore *int                `gorm:"column:confidence_score" json:"confidence_score"`
	EntryPrice      decimal.NullDecimal `gorm:"column:entry_price;type:numeric(20,8)" json:"entry_price"`
	StopLoss        decimal.NullDecimal `gorm:"column:stop_loss;type:numeric(20,8)" json:"stop_loss"`
	TakeProfit1     decimal.NullDecimal `gorm:"column:take_profit_1;type:numeric(20,8)" json:"take_profit_1"`
	TakeProfit2     decimal.NullDecimal `gorm:"column:take_profit_2;type:numeric(20,8)" json:"take_profit_2"`
	TakeProfit3     decimal.NullDecimal `gorm:"column:take_profit_3;type:numeric(20,8)" json:"take_profit_3"`
	RiskRewardRatio decimal.NullDecimal `gorm:"column:risk_reward_ratio;type:numeric(10,2)" json:"risk_reward_ratio"`
	Rationale       *string             `gorm:"column:rationale;type:text" json:"rationale"`
	KeyLevels       datatypes.JSON      `gorm:"column:key_levels;type:jsonb" json:"key_levels"`
	Risks           datatypes.JSON      `gorm:"column:risks;type:jsonb" json:"risks"`
	RawResponse     datatypes.JSON      `gorm:"column:raw_response;type:jsonb" json:"raw_response"`
	StrategyID      *string             `gorm:"column:strategy_id;type:varchar(100)" json:"strategy_id"`
	IsFavorite      bool                `gorm:"column:is_favorite;not null" json:"is_favorite"`
	Tags            datatypes.JSON      `gorm:"column:tags;type:jsonb" json:"tags"`
	Notes           *string             `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt       time.Time           `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TradingAnalysis) TableName() string {
	return "trading_analyses"
}

func (a *TradingAnalysis) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
