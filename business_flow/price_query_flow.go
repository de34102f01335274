package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	"github.com/amirphl/harga-pangan/config"
	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/repository"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PriceQueryFlow serves filtered, paginated reads of monthly price windows
type PriceQueryFlow interface {
	QueryPrices(ctx context.Context, req *dto.PriceQueryRequest) (*dto.PaginatedPriceResponse, error)
}

// PriceQueryFlowImpl implements PriceQueryFlow
type PriceQueryFlowImpl struct {
	priceRepo     repository.PriceMonthlyRepository
	commodityRepo repository.CommodityRepository
	provinceRepo  repository.ProvinceRepository
	rc            *redis.Client
	cacheConfig   *config.CacheConfig
	cacheTTL      time.Duration
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewPriceQueryFlow creates a new price query flow. rc may be nil, which disables caching.
func NewPriceQueryFlow(
	priceRepo repository.PriceMonthlyRepository,
	commodityRepo repository.CommodityRepository,
	provinceRepo repository.ProvinceRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	cacheTTL time.Duration,
	logger *zap.Logger,
) PriceQueryFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheConfig == nil {
		cacheConfig = &config.CacheConfig{}
	}
	return &PriceQueryFlowImpl{
		priceRepo:     priceRepo,
		commodityRepo: commodityRepo,
		provinceRepo:  provinceRepo,
		rc:            rc,
		cacheConfig:   cacheConfig,
		cacheTTL:      cacheTTL,
		validator:     validator.New(),
		logger:        logger.Named("price_query"),
		now:           utils.UTCNow,
	}
}

// QueryPrices validates the request and returns one page of price windows, latest first
func (s *PriceQueryFlowImpl) QueryPrices(ctx context.Context, req *dto.PriceQueryRequest) (*dto.PaginatedPriceResponse, error) {
	filter, err := buildPriceFilter(s.validator, req, s.now())
	if err != nil {
		return nil, err
	}

	s.warnUnknownDimensions(ctx, filter)

	cacheKey := s.cacheKey(filter)
	if cached := s.readCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	records, total, err := s.priceRepo.Query(ctx, filter)
	if err != nil {
		s.logger.Error("Price query failed",
			zap.Int("level_harga_id", filter.LevelHargaID),
			zap.Int("limit", filter.Limit),
			zap.Int("offset", filter.Offset),
			zap.Error(err))
		return nil, NewBusinessError(CodePriceQueryFailed, "Failed to query prices", err)
	}

	resp := &dto.PaginatedPriceResponse{
		Data:   ToPriceItems(records),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	s.logger.Debug("Price query executed",
		zap.Int("level_harga_id", filter.LevelHargaID),
		zap.Int("results_count", len(resp.Data)),
		zap.Int64("total_count", total))

	s.writeCache(ctx, cacheKey, resp)
	return resp, nil
}

// buildPriceFilter checks a query and converts it into a repository filter.
// Struct rules come from validator tags; the date window and blank id rules are checked here.
func buildPriceFilter(v *validator.Validate, req *dto.PriceQueryRequest, now time.Time) (models.PriceFilter, error) {
	if req == nil {
		return models.PriceFilter{}, NewBusinessError(CodePriceQueryInvalid, "Query is required", ErrInvalidQuery)
	}
	if err := v.Struct(req); err != nil {
		return models.PriceFilter{}, NewBusinessError(CodePriceQueryInvalid, describeValidationErrors(err), ErrInvalidQuery)
	}

	filter := models.PriceFilter{
		LevelHargaID: req.LevelHargaID,
		Limit:        utils.DefaultQueryLimit,
		Offset:       req.Offset,
	}
	if req.Limit != nil {
		filter.Limit = *req.Limit
	}

	if req.CommodityID != nil {
		if utils.IsBlank(*req.CommodityID) {
			return models.PriceFilter{}, NewBusinessError(CodePriceQueryInvalid, "commodity_id cannot be empty", ErrInvalidQuery)
		}
		filter.CommodityID = utils.ToPtr(strings.TrimSpace(*req.CommodityID))
	}
	if req.ProvinceID != nil {
		if utils.IsBlank(*req.ProvinceID) {
			return models.PriceFilter{}, NewBusinessError(CodePriceQueryInvalid, "province_id cannot be empty", ErrInvalidQuery)
		}
		filter.ProvinceID = utils.ToPtr(strings.TrimSpace(*req.ProvinceID))
	}

	minDate := utils.Date(utils.MinQueryYear, time.January, 1)
	maxDate := utils.Date(now.Year()+1, time.December, 31)
	if req.PeriodStart != nil {
		start := utils.TruncateToDate(*req.PeriodStart)
		if start.Before(minDate) || start.After(maxDate) {
			return models.PriceFilter{}, NewBusinessErrorf(CodePriceQueryInvalid,
				"period_start must be between %d and next year", ErrInvalidQuery, utils.MinQueryYear)
		}
		filter.PeriodStart = &start
	}
	if req.PeriodEnd != nil {
		end := utils.TruncateToDate(*req.PeriodEnd)
		if end.Before(minDate) || end.After(maxDate) {
			return models.PriceFilter{}, NewBusinessErrorf(CodePriceQueryInvalid,
				"period_end must be between %d and next year", ErrInvalidQuery, utils.MinQueryYear)
		}
		filter.PeriodEnd = &end
	}
	if filter.PeriodStart != nil && filter.PeriodEnd != nil && filter.PeriodEnd.Before(*filter.PeriodStart) {
		return models.PriceFilter{}, NewBusinessError(CodePriceQueryInvalid,
			"period_end must be after or equal to period_start", ErrInvalidQuery)
	}

	return filter, nil
}

// ToPriceItems converts repository records to API items
func ToPriceItems(records []*models.PriceRecord) []dto.PriceItem {
	items := make([]dto.PriceItem, 0, len(records))
	for _, r := range records {
		items = append(items, dto.PriceItem{
			ID:            r.ID,
			CommodityID:   r.CommodityID,
			CommodityName: r.CommodityName,
			ProvinceID:    r.ProvinceID,
			ProvinceName:  r.ProvinceName,
			LevelHargaID:  r.LevelHargaID,
			PeriodStart:   r.PeriodStart.Format(utils.DateLayout),
			PeriodEnd:     r.PeriodEnd.Format(utils.DateLayout),
			Price:         r.Price.InexactFloat64(),
			Unit:          r.Unit,
		})
	}
	return items
}

// warnUnknownDimensions logs filters that reference ids missing from the reference tables.
// Such queries still run and simply match nothing.
func (s *PriceQueryFlowImpl) warnUnknownDimensions(ctx context.Context, filter models.PriceFilter) {
	if filter.CommodityID != nil && s.commodityRepo != nil {
		exists, err := s.commodityRepo.Exists(ctx, models.CommodityFilter{ID: filter.CommodityID})
		if err == nil && !exists {
			s.logger.Warn("Price query references unknown commodity", zap.String("commodity_id", *filter.CommodityID))
		}
	}
	if filter.ProvinceID != nil && s.provinceRepo != nil {
		exists, err := s.provinceRepo.Exists(ctx, models.ProvinceFilter{ID: filter.ProvinceID})
		if err == nil && !exists {
			s.logger.Warn("Price query references unknown province", zap.String("province_id", *filter.ProvinceID))
		}
	}
}

func (s *PriceQueryFlowImpl) cacheKey(filter models.PriceFilter) string {
	if s.rc == nil {
		return ""
	}
	bs, err := json.Marshal(filter)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(bs)
	return redisKey(*s.cacheConfig, utils.PriceQueryCacheKey, hex.EncodeToString(sum[:16]))
}

func (s *PriceQueryFlowImpl) readCache(ctx context.Context, key string) *dto.PaginatedPriceResponse {
	if key == "" {
		return nil
	}
	bs, err := s.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Price cache read failed", zap.Error(err))
		}
		return nil
	}
	var out dto.PaginatedPriceResponse
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil
	}
	return &out
}

func (s *PriceQueryFlowImpl) writeCache(ctx context.Context, key string, resp *dto.PaginatedPriceResponse) {
	if key == "" || s.cacheTTL <= 0 {
		return
	}
	bs, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.rc.Set(ctx, key, bs, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("Price cache write failed", zap.Error(err))
	}
}

// redisKey namespaces a cache key with the configured prefix
func redisKey(cfg config.CacheConfig, parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if cfg.RedisPrefix != "" {
		all = append(all, cfg.RedisPrefix)
	}
	all = append(all, parts...)
	return strings.Join(all, ":")
}

// PriceCachePattern returns the key pattern of cached price queries
func PriceCachePattern(cfg config.CacheConfig) string {
	return fmt.Sprintf("%s:*", redisKey(cfg, utils.PriceQueryCacheKey))
}

// InvalidatePriceCache drops every cached price query and returns the number of keys removed
func InvalidatePriceCache(ctx context.Context, rc *redis.Client, cfg config.CacheConfig) (int, error) {
	if rc == nil {
		return 0, nil
	}

	var keys []string
	iter := rc.Scan(ctx, 0, PriceCachePattern(cfg), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan price cache: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := rc.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to drop price cache: %w", err)
	}
	return int(n), nil
}
