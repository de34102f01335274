package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/shopspring/decimal"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateCommodity inserts a commodity reference entry
func (tf *TestFixtures) CreateCommodity(id, name string) (*models.Commodity, error) {
	c := &models.Commodity{ID: id, Name: name}
	if err := tf.DB.DB.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create commodity %s: %w", id, err)
	}
	return c, nil
}

// CreateProvince inserts a province reference entry
func (tf *TestFixtures) CreateProvince(id, name string) (*models.Province, error) {
	p := &models.Province{ID: id, Name: name}
	if err := tf.DB.DB.Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create province %s: %w", id, err)
	}
	return p, nil
}

// CreatePrice inserts one monthly price window for the given month.
// The commodity and province must already exist.
func (tf *TestFixtures) CreatePrice(commodityID, provinceID string, level int, year int, month time.Month, price string) (*models.PriceMonthly, error) {
	start, end := utils.MonthEdges(year, month)
	row := &models.PriceMonthly{
		CommodityID:  commodityID,
		ProvinceID:   provinceID,
		LevelHargaID: level,
		PeriodStart:  start,
		PeriodEnd:    end,
		Price:        decimal.RequireFromString(price),
		Unit:         "Rp./Kg",
		InsertedAt:   utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create price for %s: %w", commodityID, err)
	}
	return row, nil
}

// NormalizedRow builds an in-memory row for the given month, useful for upsert tests
func NormalizedRow(commodityID, provinceID string, level int, year int, month time.Month, price string) models.NormalizedPriceRow {
	start, end := utils.MonthEdges(year, month)
	return models.NormalizedPriceRow{
		CommodityID:  commodityID,
		ProvinceID:   provinceID,
		LevelHargaID: level,
		PeriodStart:  start,
		PeriodEnd:    end,
		Price:        decimal.RequireFromString(price),
		Unit:         "Rp./Kg",
	}
}
