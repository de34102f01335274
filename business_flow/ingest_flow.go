package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	"github.com/amirphl/harga-pangan/app/services"
	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/repository"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestFlow fetches upstream payloads and stores them as monthly price windows
type IngestFlow interface {
	// FetchAndUpsert runs validate, fetch, normalize, checksum and upsert for one request.
	// Errors from the fetch, normalize and upsert stages are returned unchanged.
	FetchAndUpsert(ctx context.Context, params models.FetchParams) (models.UpsertSummary, error)
	// Run is FetchAndUpsert with seeding, dry-run and payload capture options
	Run(ctx context.Context, params models.FetchParams, opts dto.IngestRunOptions) (*dto.IngestResult, error)
	// RunRange runs one cycle per calendar month. A failing month is recorded and the loop continues.
	RunRange(ctx context.Context, req *dto.IngestRangeRequest) (*dto.IngestRangeResult, error)
}

// IngestFlowImpl implements IngestFlow
type IngestFlowImpl struct {
	client        services.UpstreamClient
	priceRepo     repository.PriceMonthlyRepository
	commodityRepo repository.CommodityRepository
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewIngestFlow creates a new ingestion flow. commodityRepo may be nil when seeding is never requested.
func NewIngestFlow(
	client services.UpstreamClient,
	priceRepo repository.PriceMonthlyRepository,
	commodityRepo repository.CommodityRepository,
	logger *zap.Logger,
) IngestFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestFlowImpl{
		client:        client,
		priceRepo:     priceRepo,
		commodityRepo: commodityRepo,
		validator:     validator.New(),
		logger:        logger.Named("ingest"),
	}
}

// FetchAndUpsert runs one full ingestion cycle and returns its upsert summary
func (f *IngestFlowImpl) FetchAndUpsert(ctx context.Context, params models.FetchParams) (models.UpsertSummary, error) {
	result, err := f.Run(ctx, params, dto.IngestRunOptions{})
	if err != nil {
		return models.UpsertSummary{}, err
	}
	return result.Summary, nil
}

// Run executes one ingestion cycle
func (f *IngestFlowImpl) Run(ctx context.Context, params models.FetchParams, opts dto.IngestRunOptions) (*dto.IngestResult, error) {
	runStart := time.Now()
	result := &dto.IngestResult{
		RunID:  uuid.New(),
		Params: params,
		DryRun: opts.DryRun,
	}
	logger := f.logger.With(
		zap.String("run_id", result.RunID.String()),
		zap.Int("level_harga_id", params.LevelHargaID),
		zap.String("province_id", utils.ProvinceOrNational(params.ProvinceID)),
		zap.String("period_start", params.PeriodStart.Format(utils.DateLayout)),
		zap.String("period_end", params.PeriodEnd.Format(utils.DateLayout)),
	)

	stageStart := time.Now()
	if err := f.validateParams(params); err != nil {
		ingestRunsTotal.WithLabelValues("invalid").Inc()
		logger.Warn("Ingestion rejected", zap.Error(err))
		return nil, err
	}
	observeStage(StageValidate, stageStart)

	stageStart = time.Now()
	payload, err := f.client.Fetch(ctx, params)
	result.Durations.FetchMs = observeStage(StageFetch, stageStart)
	if err != nil {
		f.fail(logger, StageFetch, err)
		return nil, err
	}

	if opts.SaveDir != "" {
		path, saveErr := SavePayload(opts.SaveDir, params.PeriodStart, payload)
		if saveErr != nil {
			logger.Warn("Failed to save payload", zap.String("dir", opts.SaveDir), zap.Error(saveErr))
		} else {
			result.SavedPayload = path
		}
	}

	stageStart = time.Now()
	rows, err := NormalizePayload(payload, params)
	result.Durations.NormalizeMs = observeStage(StageNormalize, stageStart)
	if err != nil {
		f.fail(logger, StageNormalize, err)
		return nil, err
	}
	result.NormalizedRows = len(rows)

	if opts.SeedCommodities && !opts.DryRun {
		result.SeededCommodities = f.seedCommodities(ctx, logger, payload)
	}

	stageStart = time.Now()
	upsertRows := ChecksumRows(rows)
	result.Durations.ChecksumMs = observeStage(StageChecksum, stageStart)

	if opts.DryRun {
		result.Durations.TotalMs = observeStage(StageTotal, runStart)
		ingestRunsTotal.WithLabelValues("dry_run").Inc()
		logger.Info("Dry-run ingestion completed",
			zap.Int("normalized_rows", len(rows)),
			zap.Float64("fetch_duration_ms", result.Durations.FetchMs),
			zap.Float64("normalize_duration_ms", result.Durations.NormalizeMs),
			zap.Float64("checksum_duration_ms", result.Durations.ChecksumMs),
		)
		return result, nil
	}

	stageStart = time.Now()
	summary, err := f.priceRepo.UpsertMany(ctx, upsertRows)
	result.Durations.UpsertMs = observeStage(StageUpsert, stageStart)
	if err != nil {
		f.fail(logger, StageUpsert, err)
		return nil, err
	}
	result.Summary = summary
	result.Durations.TotalMs = observeStage(StageTotal, runStart)

	observeSummary(summary)
	ingestRunsTotal.WithLabelValues("success").Inc()
	logger.Info("Ingestion completed",
		zap.Float64("fetch_duration_ms", result.Durations.FetchMs),
		zap.Float64("normalize_duration_ms", result.Durations.NormalizeMs),
		zap.Float64("checksum_duration_ms", result.Durations.ChecksumMs),
		zap.Float64("upsert_duration_ms", result.Durations.UpsertMs),
		zap.Float64("total_duration_ms", result.Durations.TotalMs),
		zap.Int("normalized_rows", len(rows)),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("failed", summary.Failed),
	)

	return result, nil
}

// RunRange ingests every month from req.Start to req.End inclusive, one month per upstream request
func (f *IngestFlowImpl) RunRange(ctx context.Context, req *dto.IngestRangeRequest) (*dto.IngestRangeResult, error) {
	if err := f.validator.Struct(req); err != nil {
		return nil, NewBusinessError(CodeIngestInvalidParams, describeValidationErrors(err), ErrInvalidFetchParams)
	}
	start, err := utils.ParseMonth(req.Start)
	if err != nil {
		return nil, NewBusinessError(CodeIngestInvalidParams, "Invalid start month", fmt.Errorf("%w: %v", ErrInvalidMonthRange, err))
	}
	end, err := utils.ParseMonth(req.End)
	if err != nil {
		return nil, NewBusinessError(CodeIngestInvalidParams, "Invalid end month", fmt.Errorf("%w: %v", ErrInvalidMonthRange, err))
	}
	if end.Before(start) {
		return nil, NewBusinessError(CodeIngestInvalidParams, "End month must not be before start month", ErrInvalidMonthRange)
	}

	result := &dto.IngestRangeResult{
		RunID:        uuid.New(),
		Start:        req.Start,
		End:          req.End,
		LevelHargaID: req.LevelHargaID,
		ProvinceID:   utils.ProvinceOrNational(req.ProvinceID),
		DryRun:       req.Options.DryRun,
		Results:      make([]*dto.IngestResult, 0),
	}

	for _, month := range utils.MonthsBetween(start, end) {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, dto.IngestMonthFailure{
				Month: month.Format(utils.MonthLayout),
				Error: err.Error(),
			})
			break
		}

		params := MonthFetchParams(month, req.LevelHargaID, req.ProvinceID)
		monthResult, err := f.Run(ctx, params, req.Options)
		result.Months++
		if err != nil {
			f.logger.Error("Month ingestion failed",
				zap.String("range_run_id", result.RunID.String()),
				zap.String("month", month.Format(utils.MonthLayout)),
				zap.Error(err))
			result.Failures = append(result.Failures, dto.IngestMonthFailure{
				Month: month.Format(utils.MonthLayout),
				Error: err.Error(),
			})
			continue
		}

		result.Results = append(result.Results, monthResult)
		result.NormalizedRows += monthResult.NormalizedRows
		result.Summary.Add(monthResult.Summary)
	}

	f.logger.Info("Range ingestion finished",
		zap.String("range_run_id", result.RunID.String()),
		zap.String("start", req.Start),
		zap.String("end", req.End),
		zap.Int("months", result.Months),
		zap.Int("failures", len(result.Failures)),
		zap.Int("normalized_rows", result.NormalizedRows),
		zap.Int("inserted", result.Summary.Inserted),
		zap.Int("updated", result.Summary.Updated),
		zap.Int("unchanged", result.Summary.Unchanged),
	)

	return result, nil
}

// MonthFetchParams builds the request for a single calendar month.
// NATIONAL is sent upstream as an empty province.
func MonthFetchParams(month time.Time, levelHargaID int, provinceID string) models.FetchParams {
	start, end := utils.MonthEdges(month.Year(), month.Month())
	if provinceID == utils.NationalProvinceID {
		provinceID = ""
	}
	return models.FetchParams{
		StartYear:    start.Year(),
		EndYear:      end.Year(),
		PeriodStart:  start,
		PeriodEnd:    end,
		LevelHargaID: levelHargaID,
		ProvinceID:   provinceID,
	}
}

func (f *IngestFlowImpl) validateParams(params models.FetchParams) error {
	if err := f.validator.Struct(params); err != nil {
		return NewBusinessError(CodeIngestInvalidParams, describeValidationErrors(err), ErrInvalidFetchParams)
	}
	if params.StartYear > params.EndYear {
		return NewBusinessError(CodeIngestInvalidParams, "start_year must be <= end_year", ErrInvalidFetchParams)
	}
	if params.PeriodStart.After(params.PeriodEnd) {
		return NewBusinessError(CodeIngestInvalidParams, "period_start must be <= period_end", ErrInvalidFetchParams)
	}
	return nil
}

func (f *IngestFlowImpl) seedCommodities(ctx context.Context, logger *zap.Logger, payload services.Payload) int {
	if f.commodityRepo == nil {
		return 0
	}
	commodities, err := ExtractCommodities(payload)
	if err != nil {
		logger.Warn("Failed to read commodities from payload", zap.Error(err))
		return 0
	}
	n, err := f.commodityRepo.UpsertMany(ctx, commodities)
	if err != nil {
		logger.Warn("Failed to seed commodities from payload", zap.Error(err))
		return 0
	}
	return n
}

func (f *IngestFlowImpl) fail(logger *zap.Logger, stage string, err error) {
	ingestRunsTotal.WithLabelValues("error").Inc()
	logger.Error("Ingestion failed", zap.String("stage", stage), zap.Error(err))
}

// observeStage records the stage duration and returns it in milliseconds
func observeStage(stage string, start time.Time) float64 {
	elapsed := time.Since(start)
	ingestStageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	return float64(elapsed.Microseconds()) / 1000
}

// SavePayload writes the raw payload to dir as payload-YYYY-MM.json and returns the file path
func SavePayload(dir string, month time.Time, payload services.Payload) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create payload directory: %w", err)
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("payload-%s.json", month.Format(utils.MonthLayout)))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write payload: %w", err)
	}
	return path, nil
}
