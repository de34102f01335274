package dto

import "time"

// PriceQueryRequest carries the filters of GET /prices
// LevelHargaID is required; the other filters are optional and combined with AND
// Limit defaults to 50 when nil; PeriodStart/PeriodEnd are inclusive window bounds
type PriceQueryRequest struct {
	LevelHargaID int        `json:"level_harga_id" validate:"required,min=1,max=5"`
	CommodityID  *string    `json:"commodity_id,omitempty" validate:"omitempty,max=64"`
	ProvinceID   *string    `json:"province_id,omitempty" validate:"omitempty,max=64"`
	PeriodStart  *time.Time `json:"period_start,omitempty" validate:"omitempty"`
	PeriodEnd    *time.Time `json:"period_end,omitempty" validate:"omitempty"`
	Limit        *int       `json:"limit,omitempty" validate:"omitempty,min=1,max=1000"`
	Offset       int        `json:"offset" validate:"min=0"`
}

// PriceItem is one monthly price window in API responses
type PriceItem struct {
	ID            int64   `json:"id"`
	CommodityID   string  `json:"commodity_id"`
	CommodityName string  `json:"commodity_name"`
	ProvinceID    string  `json:"province_id"`
	ProvinceName  string  `json:"province_name"`
	LevelHargaID  int     `json:"level_harga_id"`
	PeriodStart   string  `json:"period_start"`
	PeriodEnd     string  `json:"period_end"`
	Price         float64 `json:"price"`
	Unit          string  `json:"unit"`
}

// PaginatedPriceResponse is one page of price windows
// Total counts all matches regardless of limit/offset
type PaginatedPriceResponse struct {
	Data   []PriceItem `json:"data"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
