package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/harga-pangan/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProvinceRepositoryImpl implements ProvinceRepository
type ProvinceRepositoryImpl struct {
	*BaseRepository[models.Province, models.ProvinceFilter]
}

// NewProvinceRepository creates a new province repository
func NewProvinceRepository(db *gorm.DB) ProvinceRepository {
	return &ProvinceRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Province, models.ProvinceFilter](db),
	}
}

// UpsertMany merges provinces by id
func (r *ProvinceRepositoryImpl) UpsertMany(ctx context.Context, provinces []models.Province) (int, error) {
	rows := dedupeByID(provinces, func(p models.Province) string { return p.ID })
	if len(rows) == 0 {
		return 0, nil
	}

	err := r.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert provinces: %w", err)
	}

	return len(rows), nil
}

// ListAll returns every province ordered by name
func (r *ProvinceRepositoryImpl) ListAll(ctx context.Context) ([]*models.Province, error) {
	return r.ByFilter(ctx, models.ProvinceFilter{}, "name ASC, id ASC", 0, 0)
}

func (r *ProvinceRepositoryImpl) applyFilter(db *gorm.DB, filter models.ProvinceFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	return db
}

// ByFilter retrieves provinces based on filter criteria
func (r *ProvinceRepositoryImpl) ByFilter(ctx context.Context, filter models.ProvinceFilter, orderBy string, limit, offset int) ([]*models.Province, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.Province{}), filter)

	if orderBy == "" {
		orderBy = "name ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Province
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list provinces: %w", err)
	}
	return rows, nil
}

func (r *ProvinceRepositoryImpl) Count(ctx context.Context, filter models.ProvinceFilter) (int64, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.Province{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count provinces: %w", err)
	}
	return count, nil
}

func (r *ProvinceRepositoryImpl) Exists(ctx context.Context, filter models.ProvinceFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
