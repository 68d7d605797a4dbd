package repository

import (
	"context"

	"trading-dashboard/internal/model"
	"trading-dashboard/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduledAnalysisRepository interface {
	Upsert(ctx context.Context, analysis *model.ScheduledAnalysis, opts ...utils.DBOption) error
	Get(ctx context.Context, symbol string, opts ...utils.DBOption) (*model.ScheduledAnalysis, error)
	List(ctx context.Context, opts ...utils.DBOption) ([]model.ScheduledAnalysis, error)
	DeleteNotIn(ctx context.Context, symbols []string, opts ...utils.DBOption) (int64, error)
	Count(ctx context.Context, opts ...utils.DBOption) (int64, error)
}

type scheduledAnalysisRepository struct {
	db *gorm.DB
}

func NewScheduledAnalysisRepository(db *gorm.DB) ScheduledAnalysisRepository {
	return &scheduledAnalysisRepository{db: db}
}

// Upsert replaces the stored result for the symbol.
func (r *scheduledAnalysisRepository) Upsert(ctx context.Context, analysis *model.ScheduledAnalysis, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			UpdateAll: true,
		}).
		Create(analysis).Error
}

func (r *scheduledAnalysisRepository) Get(ctx context.Context, symbol string, opts ...utils.DBOption) (*model.ScheduledAnalysis, error) {
	var analysis model.ScheduledAnalysis
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Where("symbol = ?", symbol).First(&analysis).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (r *scheduledAnalysisRepository) List(ctx context.Context, opts ...utils.DBOption) ([]model.ScheduledAnalysis, error) {
	var analyses []model.ScheduledAnalysis
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Order("symbol ASC").Find(&analyses).Error; err != nil {
		return nil, err
	}
	return analyses, nil
}

// DeleteNotIn drops results of symbols that are no longer favorites. An empty
// list removes every stored result.
func (r *scheduledAnalysisRepository) DeleteNotIn(ctx context.Context, symbols []string, opts ...utils.DBOption) (int64, error) {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	var result *gorm.DB
	if len(symbols) == 0 {
		result = db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ScheduledAnalysis{})
	} else {
		result = db.Where("symbol NOT IN ?", symbols).Delete(&model.ScheduledAnalysis{})
	}
	return result.RowsAffected, result.Error
}

func (r *scheduledAnalysisRepository) Count(ctx context.Context, opts ...utils.DBOption) (int64, error) {
	var count int64
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.ScheduledAnalysis{}).Count(&count).Error
	return count, err
}
