package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"trading-dashboard/config"
	"trading-dashboard/internal/model"
	"trading-dashboard/pkg/cache"
	"trading-dashboard/pkg/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppConfigRepository interface {
	Get(ctx context.Context, key string, destValue interface{}) error
	Set(ctx context.Context, key string, value interface{}, description string) error
}

type appConfigRepository struct {
	cfg           *config.Config
	inmemoryCache cache.Cache
	db            *gorm.DB
}

func NewAppConfigRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB) AppConfigRepository {
	return &appConfigRepository{cfg: cfg, inmemoryCache: inmemoryCache, db: db}
}

// Get decodes the stored JSON value of key into destValue. It returns
// gorm.ErrRecordNotFound when the key was never set.
func (s *appConfigRepository) Get(ctx context.Context, key string, destValue interface{}) error {
	raw, err := cache.GetOrLoad(s.inmemoryCache, fmt.Sprintf(common.KEY_APP_CONFIG, key), s.cfg.Cache.AppConfigExpDuration, func() ([]byte, error) {
		var row model.AppConfig
		if err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
			return nil, err
		}
		return []byte(row.Value), nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, destValue)
}

func (s *appConfigRepository) Set(ctx context.Context, key string, value interface{}, description string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode config value %s: %w", key, err)
	}

	row := model.AppConfig{Key: key, Value: raw}
	updateColumns := []string{"value", "updated_at"}
	if description != "" {
		row.Description = &description
		updateColumns = append(updateColumns, "description")
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns(updateColumns),
		}).
		Create(&row).Error
	if err != nil {
		return err
	}

	if s.inmemoryCache != nil {
		s.inmemoryCache.Delete(fmt.Sprintf(common.KEY_APP_CONFIG, key))
	}
	return nil
}
