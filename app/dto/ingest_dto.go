package dto

import (
	"github.com/amirphl/harga-pangan/models"
	"github.com/google/uuid"
)

// IngestRunOptions tunes a single ingestion cycle
// SeedCommodities merges the payload's commodities before rows are written
// DryRun stops after checksums; nothing is written
// SaveDir, when set, receives the raw payload as payload-YYYY-MM.json
type IngestRunOptions struct {
	SeedCommodities bool   `json:"seed_commodities"`
	DryRun          bool   `json:"dry_run"`
	SaveDir         string `json:"save_dir,omitempty"`
}

// StageDurations holds per-stage wall time in milliseconds
type StageDurations struct {
	FetchMs     float64 `json:"fetch_ms"`
	NormalizeMs float64 `json:"normalize_ms"`
	ChecksumMs  float64 `json:"checksum_ms"`
	UpsertMs    float64 `json:"upsert_ms"`
	TotalMs     float64 `json:"total_ms"`
}

// IngestResult describes one completed ingestion cycle
type IngestResult struct {
	RunID             uuid.UUID            `json:"run_id"`
	Params            models.FetchParams   `json:"params"`
	NormalizedRows    int                  `json:"normalized_rows"`
	SeededCommodities int                  `json:"seeded_commodities"`
	DryRun            bool                 `json:"dry_run"`
	Summary           models.UpsertSummary `json:"summary"`
	Durations         StageDurations       `json:"durations"`
	SavedPayload      string               `json:"saved_payload,omitempty"`
}

// IngestRangeRequest asks for one ingestion cycle per month in [Start, End]
// Start and End are YYYY-MM; ProvinceID empty or NATIONAL means the national aggregate
type IngestRangeRequest struct {
	Start        string           `json:"start" validate:"required"`
	End          string           `json:"end" validate:"required"`
	LevelHargaID int              `json:"level_harga_id" validate:"required,min=1,max=5"`
	ProvinceID   string           `json:"province_id,omitempty"`
	Options      IngestRunOptions `json:"options"`
}

// IngestMonthFailure records a month whose cycle failed
type IngestMonthFailure struct {
	Month string `json:"month"`
	Error string `json:"error"`
}

// IngestRangeResult accumulates a month-by-month run
type IngestRangeResult struct {
	RunID          uuid.UUID            `json:"run_id"`
	Start          string               `json:"start"`
	End            string               `json:"end"`
	LevelHargaID   int                  `json:"level_harga_id"`
	ProvinceID     string               `json:"province_id"`
	Months         int                  `json:"months"`
	NormalizedRows int                  `json:"normalized_rows"`
	Summary        models.UpsertSummary `json:"summary"`
	Results        []*IngestResult      `json:"results"`
	Failures       []IngestMonthFailure `json:"failures,omitempty"`
	DryRun         bool                 `json:"dry_run"`
}

// OK reports whether every month succeeded and, unless dry-running, something was persisted
func (r *IngestRangeResult) OK() bool {
	if len(r.Failures) > 0 {
		return false
	}
	if r.DryRun {
		return true
	}
	return r.Summary.Persisted() > 0
}
