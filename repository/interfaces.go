// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/harga-pangan/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id any) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CommodityRepository defines operations for the commodity reference list
type CommodityRepository interface {
	Repository[models.Commodity, models.CommodityFilter]
	// UpsertMany inserts missing commodities and overwrites the name of existing ones
	UpsertMany(ctx context.Context, commodities []models.Commodity) (int, error)
	ListAll(ctx context.Context) ([]*models.Commodity, error)
}

// ProvinceRepository defines operations for the province reference list
type ProvinceRepository interface {
	Repository[models.Province, models.ProvinceFilter]
	// UpsertMany inserts missing provinces and overwrites the name of existing ones
	UpsertMany(ctx context.Context, provinces []models.Province) (int, error)
	ListAll(ctx context.Context) ([]*models.Province, error)
}

// PriceMonthlyRepository defines operations for monthly price windows
type PriceMonthlyRepository interface {
	// UpsertMany writes rows with checksum-gated insert-or-update, one transaction per call.
	// A failing row is logged and skipped; it shows up only in the Failed counter.
	UpsertMany(ctx context.Context, rows []models.PriceUpsertRow) (models.UpsertSummary, error)
	// Query returns one page of joined records, latest period_start first, and the total match count
	Query(ctx context.Context, filter models.PriceFilter) ([]*models.PriceRecord, int64, error)
	ByNaturalKey(ctx context.Context, commodityID, provinceID string, levelHargaID int, periodStart, periodEnd time.Time) (*models.PriceMonthly, error)
	CountAll(ctx context.Context) (int64, error)
}
