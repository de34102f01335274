// Command hargactl is the operator CLI: dimension seeding, upstream shape checks and month-range ingestion
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	"github.com/amirphl/harga-pangan/app/services"
	businessflow "github.com/amirphl/harga-pangan/business_flow"
	"github.com/amirphl/harga-pangan/config"
	"github.com/amirphl/harga-pangan/logging"
	"github.com/amirphl/harga-pangan/repository"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const usage = `usage: hargactl <command> [flags]

commands:
  seed-dimensions  --commodities FILE --provinces FILE
  scrape-test      [--start YYYY-MM] [--end YYYY-MM] [--level N] [--province ID] [--mock] [--save DIR]
  ingest           --start YYYY-MM --end YYYY-MM [--level N] [--province ID] [--dry-run] [--save-dir DIR] [--mock]
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	switch args[0] {
	case "seed-dimensions":
		return seedDimensions(ctx, cfg, logger, args[1:], stdout, stderr)
	case "scrape-test":
		return scrapeTest(ctx, cfg, logger, args[1:], stdout, stderr)
	case "ingest":
		return ingest(ctx, cfg, logger, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func seedDimensions(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("seed-dimensions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	commodities := fs.String("commodities", "", "JSON file with [{id, name}] commodities")
	provinces := fs.String("provinces", "", "JSON file with [{id, name}] provinces; NATIONAL only when omitted")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	db, err := repository.OpenDatabase(cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	flows := businessflow.NewFlows(businessflow.Dependencies{DB: db, Logger: logger})
	resp, err := flows.Dimensions.SeedFromFiles(ctx, *commodities, *provinces)
	if err != nil {
		fmt.Fprintf(stderr, "seed failed: %v\n", err)
		return 1
	}
	if err := flows.Dimensions.EnsureDefaultProvince(ctx); err != nil {
		fmt.Fprintf(stderr, "seed failed: %v\n", err)
		return 1
	}

	return printJSON(stdout, stderr, resp)
}

func scrapeTest(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scrape-test", flag.ContinueOnError)
	fs.SetOutput(stderr)
	start := fs.String("start", "2025-01", "first month (YYYY-MM)")
	end := fs.String("end", "", "last month (YYYY-MM); defaults to --start")
	level := fs.Int("level", utils.DefaultLevelHargaID, "price level (1-5)")
	province := fs.String("province", utils.NationalProvinceID, "province id")
	mock := fs.Bool("mock", false, "use the offline fixture instead of the upstream API")
	saveDir := fs.String("save", "", "directory that receives each raw payload")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *end == "" {
		*end = *start
	}

	from, err := utils.ParseMonth(*start)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	to, err := utils.ParseMonth(*end)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}
	if to.Before(from) {
		fmt.Fprintln(stderr, "--end must not be before --start")
		return 2
	}

	cfg.Upstream.UseMock = cfg.Upstream.UseMock || *mock
	client := services.NewUpstreamClientFromConfig(&cfg.Upstream, logger)

	if !cfg.Upstream.UseMock && !client.TestConnection(ctx) {
		return printReport(stdout, stderr, businessflow.ScrapeReport{
			ExitCode: businessflow.ScrapeFetchFailed,
			Message:  "upstream endpoint is not accessible",
		})
	}

	total := businessflow.ScrapeReport{OK: true, ExitCode: businessflow.ScrapeOK, Message: "payload shape ok"}
	for _, month := range utils.MonthsBetween(from, to) {
		params := businessflow.MonthFetchParams(month, *level, *province)
		payload, err := client.Fetch(ctx, params)
		if err != nil {
			return printReport(stdout, stderr, businessflow.ScrapeReport{
				ExitCode: businessflow.ScrapeFetchFailed,
				Message:  fmt.Sprintf("%s: %v", month.Format(utils.MonthLayout), err),
			})
		}

		if *saveDir != "" {
			path, err := businessflow.SavePayload(*saveDir, month, payload)
			if err != nil {
				logger.Warn("Failed to save payload", zap.Error(err))
			} else {
				logger.Info("Payload saved", zap.String("path", path))
			}
		}

		report := businessflow.CheckPayloadShape(payload)
		if !report.OK {
			report.Message = fmt.Sprintf("%s: %s", month.Format(utils.MonthLayout), report.Message)
			return printReport(stdout, stderr, report)
		}
		total.Records += report.Records
		total.Unit = report.Unit
		total.Years = append(total.Years, report.Years...)
	}

	return printReport(stdout, stderr, total)
}

func ingest(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	start := fs.String("start", "", "first month (YYYY-MM)")
	end := fs.String("end", "", "last month (YYYY-MM)")
	level := fs.Int("level", utils.DefaultLevelHargaID, "price level (1-5)")
	province := fs.String("province", utils.NationalProvinceID, "province id")
	dryRun := fs.Bool("dry-run", false, "fetch, normalize and checksum without writing")
	saveDir := fs.String("save-dir", "", "directory that receives each raw payload")
	mock := fs.Bool("mock", false, "use the offline fixture instead of the upstream API")
	timeout := fs.Duration("timeout", time.Hour, "overall run timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *start == "" || *end == "" {
		fmt.Fprintln(stderr, "--start and --end are required")
		return 2
	}

	cfg.Upstream.UseMock = cfg.Upstream.UseMock || *mock
	client := services.NewUpstreamClientFromConfig(&cfg.Upstream, logger)

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var (
		flow businessflow.IngestFlow
		rc   *redis.Client
	)
	if *dryRun {
		// dry runs never touch the database
		flow = businessflow.NewIngestFlow(client, nil, nil, logger)
	} else {
		db, err := repository.OpenDatabase(cfg.Database, logger)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		rc = openCache(ctx, cfg.Cache, logger)
		if rc != nil {
			defer rc.Close()
		}
		flows := businessflow.NewFlows(businessflow.Dependencies{DB: db, RC: rc, Client: client, CacheConfig: &cfg.Cache, Logger: logger})
		if err := flows.Dimensions.EnsureDefaultProvince(ctx); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		flow = flows.Ingest
	}

	result, err := flow.RunRange(ctx, &dto.IngestRangeRequest{
		Start:        *start,
		End:          *end,
		LevelHargaID: *level,
		ProvinceID:   *province,
		Options: dto.IngestRunOptions{
			SeedCommodities: true,
			DryRun:          *dryRun,
			SaveDir:         *saveDir,
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "ingest failed: %v\n", err)
		if businessflow.IsValidationError(err) {
			return 2
		}
		return 1
	}

	if result.Summary.Written() > 0 {
		if n, err := businessflow.InvalidatePriceCache(ctx, rc, cfg.Cache); err != nil {
			logger.Warn("Price cache invalidation failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("Price cache invalidated", zap.Int("keys", n))
		}
	}

	if code := printJSON(stdout, stderr, result); code != 0 {
		return code
	}
	if !result.OK() {
		if len(result.Failures) == 0 {
			fmt.Fprintln(stderr, "no rows were persisted")
		}
		return 1
	}
	return 0
}

// openCache returns nil when the cache is disabled or unreachable
func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) *redis.Client {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("Invalid redis url, cache invalidation skipped", zap.Error(err))
		return nil
	}
	opt.DB = cfg.RedisDB
	rc := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, cache invalidation skipped", zap.Error(err))
		_ = rc.Close()
		return nil
	}
	return rc
}

func printReport(stdout, stderr io.Writer, report businessflow.ScrapeReport) int {
	if code := printJSON(stdout, stderr, report); code != 0 {
		return code
	}
	return report.ExitCode
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "failed to write output: %v\n", err)
		return 1
	}
	return 0
}
