package repository

import (
	"context"
	"strings"

	"trading-dashboard/internal/dto"
	"trading-dashboard/internal/model"
	"trading-dashboard/pkg/utils"

	"gorm.io/gorm"
)

type SymbolRepository interface {
	Create(ctx context.Context, symbol *model.Symbol, opts ...utils.DBOption) error
	Get(ctx context.Context, symbol string, opts ...utils.DBOption) (*model.Symbol, error)
	Save(ctx context.Context, symbol *model.Symbol, opts ...utils.DBOption) error
	UpdateColumns(ctx context.Context, symbol string, values map[string]interface{}, opts ...utils.DBOption) error
	Delete(ctx context.Context, symbol string, opts ...utils.DBOption) (int64, error)
	List(ctx context.Context, filter model.SymbolFilter, opts ...utils.DBOption) ([]model.Symbol, int64, error)
	ListFavorites(ctx context.Context, opts ...utils.DBOption) ([]model.Symbol, error)
	Stats(ctx context.Context) (*dto.SymbolStats, error)
}

type symbolRepository struct {
	db *gorm.DB
}

func NewSymbolRepository(db *gorm.DB) SymbolRepository {
	return &symbolRepository{db: db}
}

func (r *symbolRepository) Create(ctx context.Context, symbol *model.Symbol, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(symbol).Error
}

// Get returns gorm.ErrRecordNotFound when the symbol is unknown.
func (r *symbolRepository) Get(ctx context.Context, symbol string, opts ...utils.DBOption) (*model.Symbol, error) {
	var s model.Symbol
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Where("symbol = ?", symbol).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *symbolRepository) Save(ctx context.Context, symbol *model.Symbol, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(symbol).Error
}

func (r *symbolRepository) UpdateColumns(ctx context.Context, symbol string, values map[string]interface{}, opts ...utils.DBOption) error {
	values["updated_at"] = utils.TimeNowUTC()
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Symbol{}).
		Where("symbol = ?", symbol).
		Updates(values).Error
}

func (r *symbolRepository) Delete(ctx context.Context, symbol string, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Where("symbol = ?", symbol).Delete(&model.Symbol{})
	return result.RowsAffected, result.Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *symbolRepository) List(ctx context.Context, filter model.SymbolFilter, opts ...utils.DBOption) ([]model.Symbol, int64, error) {
	var (
		symbols []model.Symbol
		total   int64
	)

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		qFilter = append(qFilter, `(LOWER(symbol) LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\')`)
		qFilterParam = append(qFilterParam, pattern, pattern)
	}

	if filter.Category != "" {
		qFilter = append(qFilter, "category = ?")
		qFilterParam = append(qFilterParam, filter.Category)
	}

	if filter.Subcategory != "" {
		qFilter = append(qFilter, "subcategory = ?")
		qFilterParam = append(qFilterParam, filter.Subcategory)
	}

	if filter.Status != "" {
		qFilter = append(qFilter, "status = ?")
		qFilterParam = append(qFilterParam, filter.Status)
	}

	if filter.FavoritesOnly {
		qFilter = append(qFilter, "is_favorite = ?")
		qFilterParam = append(qFilterParam, true)
	}

	if filter.WithDataOnly {
		qFilter = append(qFilter, "has_timescale_data = ?")
		qFilterParam = append(qFilterParam, true)
	}

	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.Symbol{})
	if len(qFilter) > 0 {
		db = db.Where(strings.Join(qFilter, " AND "), qFilterParam...)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		db = db.Offset(filter.Offset)
	}

	if err := db.Order("symbol ASC").Find(&symbols).Error; err != nil {
		return nil, 0, err
	}
	return symbols, total, nil
}

func (r *symbolRepository) ListFavorites(ctx context.Context, opts ...utils.DBOption) ([]model.Symbol, error) {
	var symbols []model.Symbol
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("is_favorite = ?", true).
		Order("symbol ASC").
		Find(&symbols).Error
	if err != nil {
		return nil, err
	}
	return symbols, nil
}

func (r *symbolRepository) countBy(ctx context.Context, column string) (map[string]int64, error) {
	var rows []model.SymbolCount
	err := r.db.WithContext(ctx).
		Model(&model.Symbol{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Key] = row.Count
	}
	return counts, nil
}

func (r *symbolRepository) countWhere(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Symbol{})
	if query != "" {
		db = db.Where(query, args...)
	}
	err := db.Count(&count).Error
	return count, err
}

func (r *symbolRepository) Stats(ctx context.Context) (*dto.SymbolStats, error) {
	var (
		stats = &dto.SymbolStats{Subcategories: dto.Subcategories}
		err   error
	)

	if stats.Total, err = r.countWhere(ctx, ""); err != nil {
		return nil, err
	}
	if stats.Favorites, err = r.countWhere(ctx, "is_favorite = ?", true); err != nil {
		return nil, err
	}
	if stats.WithData, err = r.countWhere(ctx, "has_timescale_data = ?", true); err != nil {
		return nil, err
	}
	if stats.WithModel, err = r.countWhere(ctx, "has_nhits_model = ?", true); err != nil {
		return nil, err
	}
	if stats.ByCategory, err = r.countBy(ctx, "category"); err != nil {
		return nil, err
	}
	if stats.ByStatus, err = r.countBy(ctx, "status"); err != nil {
		return nil, err
	}
	return stats, nil
}
