// Package models contains the gorm models persisted by the price service
package models

// Commodity is a reference entry for a tracked commodity, keyed by the upstream id.
// Table: commodities
type Commodity struct {
	ID   string `gorm:"type:text;primaryKey" json:"id"`
	Name string `gorm:"type:text;not null" json:"name"`
}

func (Commodity) TableName() string {
	return "commodities"
}

type CommodityFilter struct {
	ID   *string `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}
