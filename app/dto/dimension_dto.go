package dto

// DimensionItem is a commodity or province reference entry
type DimensionItem struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// SeedDimensionsResponse reports how many entries were merged
type SeedDimensionsResponse struct {
	Commodities int `json:"commodities"`
	Provinces   int `json:"provinces"`
}

// HealthResponse is returned by the liveness and readiness probes
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Detail    string `json:"detail,omitempty"`
}
