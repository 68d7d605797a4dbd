package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PriceAlert struct {
	ID               string              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Symbol           string              `gorm:"column:symbol;type:varchar(32);not null;index" json:"symbol"`
	AlertType        string              `gorm:"column:alert_type;type:varchar(20);not null" json:"alert_type"`
	TargetValue      decimal.Decimal     `gorm:"column:target_value;type:numeric(20,8);not null" json:"target_value"`
	CurrentValue     decimal.NullDecimal `gorm:"column:current_value;type:numeric(20,8)" json:"current_value"`
	IsTriggered      bool                `gorm:"column:is_triggered;not null" json:"is_triggered"`
	TriggeredAt      *time.Time          `gorm:"column:triggered_at" json:"triggered_at"`
	IsActive         bool                `gorm:"column:is_active;not null" json:"is_active"`
	NotificationSent bool                `gorm:"column:notification_sent;not null" json:"notification_sent"`
	Notes            *string             `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PriceAlert) TableName() string {
	return "price_alerts"
}

func (a *PriceAlert) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
