package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/amirphl/harga-pangan/app/dto"
	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/repository"
	"github.com/amirphl/harga-pangan/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DimensionFlow manages the commodity and province reference lists
type DimensionFlow interface {
	ListCommodities(ctx context.Context) ([]dto.DimensionItem, error)
	ListProvinces(ctx context.Context) ([]dto.DimensionItem, error)
	// SeedDimensions merges both lists by id. A nil province list seeds the NATIONAL aggregate only.
	SeedDimensions(ctx context.Context, commodities, provinces []dto.DimensionItem) (*dto.SeedDimensionsResponse, error)
	// SeedFromFiles reads JSON arrays of {id, name}; an empty path means no entries for that list
	SeedFromFiles(ctx context.Context, commoditiesPath, provincesPath string) (*dto.SeedDimensionsResponse, error)
	EnsureDefaultProvince(ctx context.Context) error
}

// DimensionFlowImpl implements DimensionFlow
type DimensionFlowImpl struct {
	commodityRepo repository.CommodityRepository
	provinceRepo  repository.ProvinceRepository
	db            *gorm.DB
	logger        *zap.Logger
}

// NewDimensionFlow creates a new dimension flow
func NewDimensionFlow(
	commodityRepo repository.CommodityRepository,
	provinceRepo repository.ProvinceRepository,
	db *gorm.DB,
	logger *zap.Logger,
) DimensionFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DimensionFlowImpl{
		commodityRepo: commodityRepo,
		provinceRepo:  provinceRepo,
		db:            db,
		logger:        logger.Named("dimensions"),
	}
}

func (f *DimensionFlowImpl) ListCommodities(ctx context.Context) ([]dto.DimensionItem, error) {
	rows, err := f.commodityRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError(CodeDimensionFailed, "Failed to list commodities", err)
	}
	items := make([]dto.DimensionItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.DimensionItem{ID: r.ID, Name: r.Name})
	}
	return items, nil
}

func (f *DimensionFlowImpl) ListProvinces(ctx context.Context) ([]dto.DimensionItem, error) {
	rows, err := f.provinceRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError(CodeDimensionFailed, "Failed to list provinces", err)
	}
	items := make([]dto.DimensionItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.DimensionItem{ID: r.ID, Name: r.Name})
	}
	return items, nil
}

func (f *DimensionFlowImpl) SeedDimensions(ctx context.Context, commodities, provinces []dto.DimensionItem) (*dto.SeedDimensionsResponse, error) {
	commodityRows, err := toCommodities(commodities)
	if err != nil {
		return nil, err
	}

	var provinceRows []models.Province
	if provinces == nil {
		provinceRows = []models.Province{defaultProvince()}
	} else if provinceRows, err = toProvinces(provinces); err != nil {
		return nil, err
	}

	resp := &dto.SeedDimensionsResponse{}
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		n, err := f.commodityRepo.UpsertMany(txCtx, commodityRows)
		if err != nil {
			return err
		}
		resp.Commodities = n

		n, err = f.provinceRepo.UpsertMany(txCtx, provinceRows)
		if err != nil {
			return err
		}
		resp.Provinces = n
		return nil
	})
	if err != nil {
		return nil, NewBusinessError(CodeDimensionFailed, "Failed to seed dimensions", err)
	}

	f.logger.Info("Dimensions seeded",
		zap.Int("commodities", resp.Commodities),
		zap.Int("provinces", resp.Provinces))
	return resp, nil
}

func (f *DimensionFlowImpl) SeedFromFiles(ctx context.Context, commoditiesPath, provincesPath string) (*dto.SeedDimensionsResponse, error) {
	commodities, err := readDimensionFile(commoditiesPath)
	if err != nil {
		return nil, err
	}
	provinces, err := readDimensionFile(provincesPath)
	if err != nil {
		return nil, err
	}
	return f.SeedDimensions(ctx, commodities, provinces)
}

func (f *DimensionFlowImpl) EnsureDefaultProvince(ctx context.Context) error {
	if _, err := f.provinceRepo.UpsertMany(ctx, []models.Province{defaultProvince()}); err != nil {
		return NewBusinessError(CodeDimensionFailed, "Failed to seed national province", err)
	}
	return nil
}

func defaultProvince() models.Province {
	return models.Province{ID: utils.NationalProvinceID, Name: utils.NationalProvinceName}
}

func toCommodities(items []dto.DimensionItem) ([]models.Commodity, error) {
	out := make([]models.Commodity, 0, len(items))
	for i, it := range items {
		id, name, err := cleanDimension(i, it)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Commodity{ID: id, Name: name})
	}
	return out, nil
}

func toProvinces(items []dto.DimensionItem) ([]models.Province, error) {
	out := make([]models.Province, 0, len(items))
	for i, it := range items {
		id, name, err := cleanDimension(i, it)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Province{ID: id, Name: name})
	}
	return out, nil
}

func cleanDimension(index int, it dto.DimensionItem) (string, string, error) {
	id := strings.TrimSpace(it.ID)
	name := strings.TrimSpace(it.Name)
	if id == "" || name == "" {
		return "", "", NewBusinessErrorf(CodeDimensionInvalid, "entry %d must have a non-empty id and name", ErrInvalidDimension, index)
	}
	return id, name, nil
}

// readDimensionFile loads [{id, name}] from path. Numeric ids are accepted and kept as strings.
// An empty path yields nil.
func readDimensionFile(path string) ([]dto.DimensionItem, error) {
	if path == "" {
		return nil, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, NewBusinessErrorf(CodeDimensionInvalid, "failed to read %s", err, path)
	}

	var raw []struct {
		ID   flexString `json:"id"`
		Name string     `json:"name"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, NewBusinessErrorf(CodeDimensionInvalid, "%s must be a JSON array of {id, name}",
			fmt.Errorf("%w: %v", ErrInvalidDimension, err), path)
	}

	items := make([]dto.DimensionItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, dto.DimensionItem{ID: r.ID.Value, Name: r.Name})
	}
	return items, nil
}
