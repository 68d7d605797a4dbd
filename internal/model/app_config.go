package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AppConfigSchedulerInterval = "scheduler_interval_minutes"
)

type AppConfig struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Key         string         `gorm:"column:key;type:varchar(100);not null;uniqueIndex" json:"key"`
	Value       datatypes.JSON `gorm:"column:value;type:jsonb;not null" json:"value"`
	Description *string        `gorm:"column:description;type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AppConfig) TableName() string {
	return "app_config"
}

func (c *AppConfig) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
