package models

import (
	"time"
)

// FetchParams describes one upstream fetch: the year span sent upstream, the date window rows are
// clipped to, the price level and an optional province (empty means the national aggregate).
type FetchParams struct {
	StartYear    int       `json:"start_year" validate:"required,gte=1900"`
	EndYear      int       `json:"end_year" validate:"required,gte=1900"`
	PeriodStart  time.Time `json:"period_start" validate:"required"`
	PeriodEnd    time.Time `json:"period_end" validate:"required"`
	LevelHargaID int       `json:"level_harga_id" validate:"required,min=1,max=5"`
	ProvinceID   string    `json:"province_id,omitempty"`
}

// IsNational reports whether the params target the national aggregate
func (p FetchParams) IsNational() bool {
	return p.ProvinceID == "" || p.ProvinceID == "NATIONAL"
}
