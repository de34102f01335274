package businessflow

import (
	"time"

	"github.com/amirphl/harga-pangan/app/services"
	"github.com/amirphl/harga-pangan/config"
	"github.com/amirphl/harga-pangan/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Flows bundles every use case wired against one database
type Flows struct {
	Ingest     IngestFlow
	PriceQuery PriceQueryFlow
	Export     PriceExportFlow
	Dimensions DimensionFlow
}

// Dependencies are the shared collaborators of the flows. RC may be nil.
type Dependencies struct {
	DB          *gorm.DB
	RC          *redis.Client
	Client      services.UpstreamClient
	CacheConfig *config.CacheConfig
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// NewFlows builds the repositories and flows
func NewFlows(deps Dependencies) *Flows {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	priceRepo := repository.NewPriceMonthlyRepository(deps.DB, logger)
	commodityRepo := repository.NewCommodityRepository(deps.DB)
	provinceRepo := repository.NewProvinceRepository(deps.DB)

	return &Flows{
		Ingest:     NewIngestFlow(deps.Client, priceRepo, commodityRepo, logger),
		PriceQuery: NewPriceQueryFlow(priceRepo, commodityRepo, provinceRepo, deps.RC, deps.CacheConfig, deps.CacheTTL, logger),
		Export:     NewPriceExportFlow(priceRepo, logger),
		Dimensions: NewDimensionFlow(commodityRepo, provinceRepo, deps.DB, logger),
	}
}
