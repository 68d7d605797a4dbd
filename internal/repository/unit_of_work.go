package repository

import (
	"context"

	"trading-dashboard/pkg/utils"

	"gorm.io/gorm"
)

// UnitOfWork groups repository calls into one transaction. Repositories join
// it through the utils.DBOption passed to fn.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(opts ...utils.DBOption) error) error
}

type unitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWork{
		db: db,
	}
}

// Run commits when fn returns nil and rolls back on an error or a panic.
// fn's error is returned unchanged so callers can still match its kind.
func (u *unitOfWork) Run(ctx context.Context, fn func(opts ...utils.DBOption) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(utils.WithTx(tx))
	})
}
