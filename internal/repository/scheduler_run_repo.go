package repository

import (
	"context"
	"time"

	"trading-dashboard/internal/model"
	"trading-dashboard/pkg/utils"

	"gorm.io/gorm"
)

type SchedulerRunRepository interface {
	Create(ctx context.Context, run *model.SchedulerRun, opts ...utils.DBOption) error
	Update(ctx context.Context, run *model.SchedulerRun, opts ...utils.DBOption) error
	List(ctx context.Context, limit int, opts ...utils.DBOption) ([]model.SchedulerRun, error)
	Latest(ctx context.Context, opts ...utils.DBOption) (*model.SchedulerRun, error)
	DeleteOlderThan(ctx context.Context, date time.Time, opts ...utils.DBOption) (int64, error)
	FailStale(ctx context.Context, completedAt time.Time, message string, opts ...utils.DBOption) (int64, error)
}

type schedulerRunRepository struct {
	db *gorm.DB
}

func NewSchedulerRunRepository(db *gorm.DB) SchedulerRunRepository {
	return &schedulerRunRepository{db: db}
}

func (r *schedulerRunRepository) Create(ctx context.Context, run *model.SchedulerRun, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(run).Error
}

func (r *schedulerRunRepository) Update(ctx context.Context, run *model.SchedulerRun, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(run).Error
}

// List returns the most recent runs first.
func (r *schedulerRunRepository) List(ctx context.Context, limit int, opts ...utils.DBOption) ([]model.SchedulerRun, error) {
	var runs []model.SchedulerRun
	opts = append(opts, utils.WithOrder("started_at DESC"), utils.WithLimit(limit))
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *schedulerRunRepository) Latest(ctx context.Context, opts ...utils.DBOption) (*model.SchedulerRun, error) {
	var run model.SchedulerRun
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("completed_at IS NOT NULL").
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *schedulerRunRepository) DeleteOlderThan(ctx context.Context, date time.Time, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Where("started_at < ?", date).Delete(&model.SchedulerRun{})
	return result.RowsAffected, result.Error
}

// FailStale marks every run still in running state as failed.
func (r *schedulerRunRepository) FailStale(ctx context.Context, completedAt time.Time, message string, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.SchedulerRun{}).
		Where("status = ?", model.RunStatusRunning).
		Updates(map[string]interface{}{
			"status":        model.RunStatusFailure,
			"completed_at":  completedAt,
			"error_message": message,
		})
	return result.RowsAffected, result.Error
}
