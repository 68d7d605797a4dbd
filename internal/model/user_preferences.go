package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserPreferences struct {
	ID                   string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID               string         `gorm:"column:user_id;type:varchar(100);not null;uniqueIndex" json:"user_id"`
	Theme                string         `gorm:"column:theme;type:varchar(20)" json:"theme"`
	Language             string         `gorm:"column:language;type:varchar(10)" json:"language"`
	DefaultTimeframe     string         `gorm:"column:default_timeframe;type:varchar(10)" json:"default_timeframe"`
	DefaultSymbol        string         `gorm:"column:default_symbol;type:varchar(32)" json:"default_symbol"`
	NotificationsEnabled bool           `gorm:"column:notifications_enabled;not null" json:"notifications_enabled"`
	AutoRefreshInterval  int            `gorm:"column:auto_refresh_interval" json:"auto_refresh_interval"`
	ChartSettings        datatypes.JSON `gorm:"column:chart_settings;type:jsonb" json:"chart_settings"`
	DashboardLayout      datatypes.JSON `gorm:"column:dashboard_layout;type:jsonb" json:"dashboard_layout"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserPreferences) TableName() string {
	return "user_preferences"
}

func (p *UserPreferences) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
