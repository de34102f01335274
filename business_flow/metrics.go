package businessflow

import (
	"github.com/amirphl/harga-pangan/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion stages
const (
	StageValidate  = "validate"
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageChecksum  = "checksum"
	StageUpsert    = "upsert"
	StageTotal     = "total"
)

var (
	// Duration of each ingestion stage
	ingestStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_stage_duration_seconds",
			Help:    "Duration of ingestion stages in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	// Ingestion runs partitioned by result
	ingestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"result"},
	)

	// Upserted rows partitioned by outcome
	ingestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Total number of price rows handled by ingestion",
		},
		[]string{"outcome"},
	)
)

func observeSummary(summary models.UpsertSummary) {
	ingestRowsTotal.WithLabelValues("inserted").Add(float64(summary.Inserted))
	ingestRowsTotal.WithLabelValues("updated").Add(float64(summary.Updated))
	ingestRowsTotal.WithLabelValues("unchanged").Add(float64(summary.Unchanged))
	ingestRowsTotal.WithLabelValues("failed").Add(float64(summary.Failed))
}
