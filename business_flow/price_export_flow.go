package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	"github.com/amirphl/harga-pangan/repository"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const priceSheetName = "prices"

var priceExportHeader = []string{
	"id", "commodity_id", "commodity_name", "province_id", "province_name",
	"level_harga_id", "period_start", "period_end", "price", "unit",
}

// PriceExportFlow renders price query results as a spreadsheet
type PriceExportFlow interface {
	ExportPrices(ctx context.Context, req *dto.PriceQueryRequest) (string, []byte, error)
}

// PriceExportFlowImpl implements PriceExportFlow
type PriceExportFlowImpl struct {
	priceRepo repository.PriceMonthlyRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPriceExportFlow creates a new price export flow
func NewPriceExportFlow(priceRepo repository.PriceMonthlyRepository, logger *zap.Logger) PriceExportFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceExportFlowImpl{
		priceRepo: priceRepo,
		validator: validator.New(),
		logger:    logger.Named("price_export"),
		now:       utils.UTCNow,
	}
}

// ExportPrices runs the query with the same rules as QueryPrices and writes one row per record,
// up to the requested limit. It returns the attachment file name and the xlsx bytes.
func (f *PriceExportFlowImpl) ExportPrices(ctx context.Context, req *dto.PriceQueryRequest) (string, []byte, error) {
	filter, err := buildPriceFilter(f.validator, req, f.now())
	if err != nil {
		return "", nil, err
	}

	records, _, err := f.priceRepo.Query(ctx, filter)
	if err != nil {
		return "", nil, NewBusinessError(CodePriceQueryFailed, "Failed to query prices", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	xl.SetSheetName(xl.GetSheetName(0), priceSheetName)
	header := priceExportHeader
	if err := xl.SetSheetRow(priceSheetName, "A1", &header); err != nil {
		return "", nil, NewBusinessError(CodePriceExportFailed, "Failed to write export header", err)
	}

	for i, item := range ToPriceItems(records) {
		row := []any{
			item.ID,
			item.CommodityID,
			item.CommodityName,
			item.ProvinceID,
			item.ProvinceName,
			item.LevelHargaID,
			item.PeriodStart,
			item.PeriodEnd,
			records[i].Price.StringFixed(2),
			item.Unit,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(priceSheetName, cellRef, &row); err != nil {
			return "", nil, NewBusinessError(CodePriceExportFailed, "Failed to write export row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError(CodePriceExportFailed, "Failed to write Excel file", err)
	}

	f.logger.Info("Price export generated",
		zap.Int("level_harga_id", filter.LevelHargaID),
		zap.Int("rows", len(records)))

	return exportFileName(req), buf.Bytes(), nil
}

func exportFileName(req *dto.PriceQueryRequest) string {
	parts := []string{"prices", fmt.Sprintf("level%d", req.LevelHargaID)}
	if req.CommodityID != nil {
		parts = append(parts, sanitizeFileToken(*req.CommodityID))
	}
	if req.ProvinceID != nil {
		parts = append(parts, sanitizeFileToken(*req.ProvinceID))
	}
	if req.PeriodStart != nil {
		parts = append(parts, req.PeriodStart.Format(utils.DateLayout))
	}
	if req.PeriodEnd != nil {
		parts = append(parts, req.PeriodEnd.Format(utils.DateLayout))
	}
	return strings.Join(parts, "_") + ".xlsx"
}

func sanitizeFileToken(s string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\"", "", " ", "-")
	return replacer.Replace(strings.TrimSpace(s))
}
