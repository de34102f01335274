// Package scheduler runs the periodic upstream ingestion
package scheduler

import (
	"context"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	businessflow "github.com/amirphl/harga-pangan/business_flow"
	"github.com/amirphl/harga-pangan/config"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// IngestScheduler ingests the previous calendar month on a cron schedule
type IngestScheduler struct {
	flow     businessflow.IngestFlow
	rc       *redis.Client
	cacheCfg config.CacheConfig
	cfg      config.SchedulerConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewIngestScheduler creates a scheduler. rc may be nil when the query cache is disabled.
func NewIngestScheduler(
	flow businessflow.IngestFlow,
	rc *redis.Client,
	cacheCfg config.CacheConfig,
	cfg config.SchedulerConfig,
	logger *zap.Logger,
) *IngestScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CronSpec == "" {
		cfg.CronSpec = "0 0 3 5 * *"
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = []int{utils.DefaultLevelHargaID}
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	return &IngestScheduler{
		flow:     flow,
		rc:       rc,
		cacheCfg: cacheCfg,
		cfg:      cfg,
		logger:   logger.Named("scheduler"),
		now:      utils.UTCNow,
	}
}

// Start registers the cron job and returns a stop function that waits for a running tick to finish
func (s *IngestScheduler) Start(parent context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(parent)
	cronLogger := zapCronLogger{logger: s.logger}

	// Seconds field, optional
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := c.AddFunc(s.cfg.CronSpec, func() {
		// keep each run bounded
		rctx, rcancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer rcancel()
		s.RunOnce(rctx)
	}); err != nil {
		cancel()
		return nil, err
	}

	c.Start()
	s.logger.Info("Ingest scheduler started",
		zap.String("cron_spec", s.cfg.CronSpec),
		zap.Ints("levels", s.cfg.Levels),
		zap.String("province_id", utils.ProvinceOrNational(s.cfg.ProvinceID)))

	return func() {
		cancel()
		<-c.Stop().Done()
		s.logger.Info("Ingest scheduler stopped")
	}, nil
}

// RunOnce ingests the month before now for every configured level and returns the combined summary.
// A failing level is logged and the remaining levels still run.
func (s *IngestScheduler) RunOnce(ctx context.Context) dto.IngestRangeResult {
	month := utils.PreviousMonth(s.now())
	label := month.Format(utils.MonthLayout)

	total := dto.IngestRangeResult{
		Start:      label,
		End:        label,
		ProvinceID: utils.ProvinceOrNational(s.cfg.ProvinceID),
		Months:     1,
	}

	for _, level := range s.cfg.Levels {
		if err := ctx.Err(); err != nil {
			total.Failures = append(total.Failures, dto.IngestMonthFailure{Month: label, Error: err.Error()})
			break
		}

		params := businessflow.MonthFetchParams(month, level, s.cfg.ProvinceID)
		result, err := s.flow.Run(ctx, params, dto.IngestRunOptions{SeedCommodities: true})
		if err != nil {
			s.logger.Error("Scheduled ingestion failed",
				zap.String("month", label),
				zap.Int("level_harga_id", level),
				zap.Error(err))
			total.Failures = append(total.Failures, dto.IngestMonthFailure{Month: label, Error: err.Error()})
			continue
		}

		total.Results = append(total.Results, result)
		total.NormalizedRows += result.NormalizedRows
		total.Summary.Add(result.Summary)
	}

	if total.Summary.Written() > 0 {
		n, err := businessflow.InvalidatePriceCache(ctx, s.rc, s.cacheCfg)
		if err != nil {
			s.logger.Warn("Price cache invalidation failed", zap.Error(err))
		} else if n > 0 {
			s.logger.Info("Price cache invalidated", zap.Int("keys", n))
		}
	}

	s.logger.Info("Scheduled ingestion finished",
		zap.String("month", label),
		zap.Int("inserted", total.Summary.Inserted),
		zap.Int("updated", total.Summary.Updated),
		zap.Int("unchanged", total.Summary.Unchanged),
		zap.Int("failed", total.Summary.Failed),
		zap.Int("failed_levels", len(total.Failures)))

	return total
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
