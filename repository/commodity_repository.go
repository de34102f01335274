package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/harga-pangan/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommodityRepositoryImpl implements CommodityRepository
type CommodityRepositoryImpl struct {
	*BaseRepository[models.Commodity, models.CommodityFilter]
}

// NewCommodityRepository creates a new commodity repository
func NewCommodityRepository(db *gorm.DB) CommodityRepository {
	return &CommodityRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Commodity, models.CommodityFilter](db),
	}
}

// UpsertMany merges commodities by id. Duplicate ids in the input keep the last name.
func (r *CommodityRepositoryImpl) UpsertMany(ctx context.Context, commodities []models.Commodity) (int, error) {
	rows := dedupeByID(commodities, func(c models.Commodity) string { return c.ID })
	if len(rows) == 0 {
		return 0, nil
	}

	db := r.getDB(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert commodities: %w", err)
	}

	return len(rows), nil
}

// ListAll returns every commodity ordered by name
func (r *CommodityRepositoryImpl) ListAll(ctx context.Context) ([]*models.Commodity, error) {
	return r.ByFilter(ctx, models.CommodityFilter{}, "name ASC, id ASC", 0, 0)
}

// applyFilter applies filter conditions to the GORM query
func (r *CommodityRepositoryImpl) applyFilter(db *gorm.DB, filter models.CommodityFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	return db
}

// ByFilter retrieves commodities based on filter criteria
func (r *CommodityRepositoryImpl) ByFilter(ctx context.Context, filter models.CommodityFilter, orderBy string, limit, offset int) ([]*models.Commodity, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Commodity{}), filter)

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

	var rows []*models.Commodity
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list commodities: %w", err)
	}
	return rows, nil
}

// Count returns the number of commodities matching the filter
func (r *CommodityRepositoryImpl) Count(ctx context.Context, filter models.CommodityFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Commodity{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count commodities: %w", err)
	}
	return count, nil
}

// Exists checks if any commodity matching the filter exists
func (r *CommodityRepositoryImpl) Exists(ctx context.Context, filter models.CommodityFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// dedupeByID keeps the last occurrence of every id, preserving first-seen order
func dedupeByID[T any](items []T, id func(T) string) []T {
	index := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key := id(item)
		if pos, seen := index[key]; seen {
			out[pos] = item
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}
	return out
}
