package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceMonthly is one monthly price window for a commodity, province and price level.
// (commodity_id, province_id, level_harga_id, period_start, period_end) is unique.
// Table: prices_monthly
type PriceMonthly struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CommodityID  string          `gorm:"type:text;not null;uniqueIndex:uq_prices_monthly_unique_window,priority:1;index:idx_prices_monthly_commodity" json:"commodity_id"`
	ProvinceID   string          `gorm:"type:text;not null;uniqueIndex:uq_prices_monthly_unique_window,priority:2;index:idx_prices_monthly_province" json:"province_id"`
	LevelHargaID int             `gorm:"column:level_harga_id;not null;uniqueIndex:uq_prices_monthly_unique_window,priority:3" json:"level_harga_id"`
	PeriodStart  time.Time       `gorm:"type:date;not null;uniqueIndex:uq_prices_monthly_unique_window,priority:4" json:"period_start"`
	PeriodEnd    time.Time       `gorm:"type:date;not null;uniqueIndex:uq_prices_monthly_unique_window,priority:5" json:"period_end"`
	Price        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	Unit         string          `gorm:"type:text;not null" json:"unit"`
	Checksum     string          `gorm:"type:text" json:"checksum"`
	InsertedAt   time.Time       `gorm:"type:timestamptz;not null;default:now()" json:"inserted_at"`
	UpdatedAt    time.Time       `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`

	Commodity *Commodity `gorm:"foreignKey:CommodityID" json:"commodity,omitempty"`
	Province  *Province  `gorm:"foreignKey:ProvinceID" json:"province,omitempty"`
}

func (PriceMonthly) TableName() string {
	return "prices_monthly"
}

// PriceFilter selects price windows. LevelHargaID is mandatory, the rest are optional and combined with AND.
// PeriodStart keeps windows starting on or after it, PeriodEnd keeps windows ending on or before it.
type PriceFilter struct {
	LevelHargaID int        `json:"level_harga_id"`
	CommodityID  *string    `json:"commodity_id,omitempty"`
	ProvinceID   *string    `json:"province_id,omitempty"`
	PeriodStart  *time.Time `json:"period_start,omitempty"`
	PeriodEnd    *time.Time `json:"period_end,omitempty"`
	Limit        int        `json:"limit"`
	Offset       int        `json:"offset"`
}

// PriceRecord is a price window joined with its commodity and province names
type PriceRecord struct {
	ID            int64           `json:"id"`
	CommodityID   string          `json:"commodity_id"`
	CommodityName string          `json:"commodity_name"`
	ProvinceID    string          `json:"province_id"`
	ProvinceName  string          `json:"province_name"`
	LevelHargaID  int             `gorm:"column:level_harga_id" json:"level_harga_id"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	Price         decimal.Decimal `json:"price"`
	Unit          string          `json:"unit"`
}

// NormalizedPriceRow is one month of one commodity's price as read from an upstream payload
type NormalizedPriceRow struct {
	CommodityID  string
	ProvinceID   string
	LevelHargaID int
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Price        decimal.Decimal
	Unit         string
}

// PriceUpsertRow is a normalized row carrying its change-detection checksum
type PriceUpsertRow struct {
	NormalizedPriceRow
	Checksum string
}

// UpsertSummary counts the outcome of one upsert batch.
// Failed rows are not part of Inserted, Updated or Unchanged.
type UpsertSummary struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Persisted returns the number of rows stored after the batch, unchanged rows included
func (s UpsertSummary) Persisted() int {
	return s.Inserted + s.Updated + s.Unchanged
}

// Written returns the number of rows the batch inserted or updated
func (s UpsertSummary) Written() int {
	return s.Inserted + s.Updated
}

// Add accumulates another summary into s
func (s *UpsertSummary) Add(other UpsertSummary) {
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Unchanged += other.Unchanged
	s.Failed += other.Failed
}
