package models

// Province is a reference entry for a province, or the NATIONAL aggregate.
// Table: provinces
type Province struct {
	ID   string `gorm:"type:text;primaryKey" json:"id"`
	Name string `gorm:"type:text;not null" json:"name"`
}

func (Province) TableName() string {
	return "provinces"
}

type ProvinceFilter struct {
	ID   *string `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}
