package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/harga-pangan/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// upsertPriceSQL writes one window. The update branch only fires when the checksum changed, so an
// unchanged row returns nothing; xmax = 0 tells a fresh insert apart from an update.
const upsertPriceSQL = `
	INSERT INTO prices_monthly (
		commodity_id, province_id, level_harga_id, period_start, period_end, price, unit, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (commodity_id, province_id, level_harga_id, period_start, period_end)
	DO UPDATE SET
		price = EXCLUDED.price,
		unit = EXCLUDED.unit,
		checksum = EXCLUDED.checksum,
		updated_at = now()
	WHERE prices_monthly.checksum IS DISTINCT FROM EXCLUDED.checksum
	RETURNING (xmax = 0) AS inserted
`

const priceRecordColumns = `
	p.id, p.commodity_id, c.name AS commodity_name, p.province_id, pr.name AS province_name,
	p.level_harga_id, p.period_start, p.period_end, p.price, p.unit
`

type upsertOutcome int

const (
	outcomeUnchanged upsertOutcome = iota
	outcomeInserted
	outcomeUpdated
)

// PriceMonthlyRepositoryImpl implements PriceMonthlyRepository
type PriceMonthlyRepositoryImpl struct {
	*BaseRepository[models.PriceMonthly, models.PriceFilter]
	logger *zap.Logger
}

// NewPriceMonthlyRepository creates a new price window repository
func NewPriceMonthlyRepository(db *gorm.DB, logger *zap.Logger) PriceMonthlyRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceMonthlyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PriceMonthly, models.PriceFilter](db),
		logger:         logger.Named("price_repository"),
	}
}

// UpsertMany writes the batch inside one transaction. Every row runs in its own savepoint so a
// constraint violation on one row is rolled back alone and the loop moves on.
func (r *PriceMonthlyRepositoryImpl) UpsertMany(ctx context.Context, rows []models.PriceUpsertRow) (models.UpsertSummary, error) {
	var summary models.UpsertSummary
	if len(rows) == 0 {
		return summary, nil
	}

	err := WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		tx := r.getDB(txCtx)
		for i, row := range rows {
			outcome, err := r.upsertRow(tx, i, row)
			if err != nil {
				summary.Failed++
				r.logger.Warn("price row upsert failed",
					zap.Int("row", i),
					zap.String("commodity_id", row.CommodityID),
					zap.String("province_id", row.ProvinceID),
					zap.Int("level_harga_id", row.LevelHargaID),
					zap.Time("period_start", row.PeriodStart),
					zap.Error(err),
				)
				continue
			}

			switch outcome {
			case outcomeInserted:
				summary.Inserted++
			case outcomeUpdated:
				summary.Updated++
			default:
				summary.Unchanged++
			}
		}
		return nil
	})
	if err != nil {
		return models.UpsertSummary{}, err
	}

	return summary, nil
}

func (r *PriceMonthlyRepositoryImpl) upsertRow(tx *gorm.DB, index int, row models.PriceUpsertRow) (upsertOutcome, error) {
	var result []struct {
		Inserted bool `gorm:"column:inserted"`
	}

	err := withSavepoint(tx, fmt.Sprintf("price_row_%d", index), func(db *gorm.DB) error {
		return db.Raw(upsertPriceSQL,
			row.CommodityID,
			row.ProvinceID,
			row.LevelHargaID,
			row.PeriodStart,
			row.PeriodEnd,
			row.Price,
			row.Unit,
			row.Checksum,
		).Scan(&result).Error
	})
	if err != nil {
		return outcomeUnchanged, err
	}

	if len(result) == 0 {
		return outcomeUnchanged, nil
	}
	if result[0].Inserted {
		return outcomeInserted, nil
	}
	return outcomeUpdated, nil
}

// Query returns one page of joined price records ordered by period_start descending, plus the
// number of records matching the filter regardless of limit and offset
func (r *PriceMonthlyRepositoryImpl) Query(ctx context.Context, filter models.PriceFilter) ([]*models.PriceRecord, int64, error) {
	var total int64
	if err := r.filteredQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count prices: %w", err)
	}

	query := r.filteredQuery(ctx, filter).
		Select(priceRecordColumns).
		Order("p.period_start DESC, p.commodity_id ASC, p.province_id ASC, p.id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	records := make([]*models.PriceRecord, 0)
	if err := query.Scan(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query prices: %w", err)
	}

	return records, total, nil
}

func (r *PriceMonthlyRepositoryImpl) filteredQuery(ctx context.Context, filter models.PriceFilter) *gorm.DB {
	query := r.getDB(ctx).
		Table("prices_monthly AS p").
		Joins("JOIN commodities c ON c.id = p.commodity_id").
		Joins("JOIN provinces pr ON pr.id = p.province_id").
		Where("p.level_harga_id = ?", filter.LevelHargaID)

	if filter.CommodityID != nil {
		query = query.Where("p.commodity_id = ?", *filter.CommodityID)
	}
	if filter.ProvinceID != nil {
		query = query.Where("p.province_id = ?", *filter.ProvinceID)
	}
	if filter.PeriodStart != nil {
		query = query.Where("p.period_start >= ?", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		query = query.Where("p.period_end <= ?", *filter.PeriodEnd)
	}
	return query
}

// ByNaturalKey loads one window by its unique key; nil when absent
func (r *PriceMonthlyRepositoryImpl) ByNaturalKey(ctx context.Context, commodityID, provinceID string, levelHargaID int, periodStart, periodEnd time.Time) (*models.PriceMonthly, error) {
	var row models.PriceMonthly
	err := r.getDB(ctx).
		Where("commodity_id = ? AND province_id = ? AND level_harga_id = ? AND period_start = ? AND period_end = ?",
			commodityID, provinceID, levelHargaID, periodStart, periodEnd).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find price window: %w", err)
	}
	return &row, nil
}

// CountAll returns the number of stored price windows
func (r *PriceMonthlyRepositoryImpl) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.getDB(ctx).Model(&models.PriceMonthly{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count prices: %w", err)
	}
	return count, nil
}
