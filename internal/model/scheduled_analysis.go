package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DirectionLong    = "LONG"
	DirectionShort   = "SHORT"
	DirectionNeutral = "NEUTRAL"
)

// ScheduledAnalysis is the latest quick analysis of a favorite symbol; one row per symbol.
type ScheduledAnalysis struct {
	Symbol          string         `gorm:"column:symbol;type:varchar(32);primaryKey" json:"symbol"`
	Category        string         `gorm:"column:category;type:varchar(20)" json:"category"`
	Direction       string         `gorm:"column:direction;type:varchar(10);not null" json:"direction"`
	ConfidenceScore int            `gorm:"column:confidence_score;not null" json:"confidence_score"`
	EntryPrice      *float64       `gorm:"column:entry_price" json:"entry_price"`
	StopLoss        *float64       `gorm:"column:stop_loss" json:"stop_loss"`
	TakeProfit1     *float64       `gorm:"column:take_profit_1" json:"take_profit_1"`
	TakeProfit2     *float64       `gorm:"column:take_profit_2" json:"take_profit_2"`
	TakeProfit3     *float64       `gorm:"column:take_profit_3" json:"take_profit_3"`
	RiskRewardRatio *float64       `gorm:"column:risk_reward_ratio" json:"risk_reward_ratio"`
	Rationale       string         `gorm:"column:rationale;type:text" json:"rationale"`
	KeyLevels       string         `gorm:"column:key_levels;type:text" json:"key_levels"`
	Risks           datatypes.JSON `gorm:"column:risks;type:jsonb" json:"risks"`
	Indicators      datatypes.JSON `gorm:"column:indicators;type:jsonb" json:"indicators"`
	RunID           string         `gorm:"column:run_id;type:varchar(36)" json:"run_id"`
	AnalyzedAt      time.Time      `gorm:"column:analyzed_at;not null" json:"analyzed_at"`
}

func (ScheduledAnalysis) TableName() string {
	return "scheduled_analyses"
}

// IsDirectional reports whether the signal suggests a trade at all.
func (s *ScheduledAnalysis) IsDirectional() bool {
	return s.Direction == DirectionLong || s.Direction == DirectionShort
}
