package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	businessflow "github.com/amirphl/harga-pangan/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PriceHandlerInterface defines the contract for price handlers
type PriceHandlerInterface interface {
	QueryPrices(c fiber.Ctx) error
	ExportPrices(c fiber.Ctx) error
}

// PriceHandler handles price query and export requests
type PriceHandler struct {
	baseHandler
	queryFlow  businessflow.PriceQueryFlow
	exportFlow businessflow.PriceExportFlow
	logger     *zap.Logger
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(queryFlow businessflow.PriceQueryFlow, exportFlow businessflow.PriceExportFlow, timeout time.Duration, logger *zap.Logger) *PriceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceHandler{
		baseHandler: baseHandler{timeout: timeout},
		queryFlow:   queryFlow,
		exportFlow:  exportFlow,
		logger:      logger.Named("price_handler"),
	}
}

// QueryPrices handles the monthly price query
// @Summary Query monthly prices
// @Description Filtered, paginated monthly price windows, latest period_start first
// @Tags Prices
// @Produce json
// @Param level_harga_id query int true "Price level (1-5)"
// @Param commodity_id query string false "Commodity id"
// @Param province_id query string false "Province id (NATIONAL for the aggregate)"
// @Param period_start query string false "Window start lower bound (YYYY-MM-DD)"
// @Param period_end query string false "Window end upper bound (YYYY-MM-DD)"
// @Param limit query int false "Page size (1-1000, default 50)"
// @Param offset query int false "Page offset (default 0)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedPriceResponse} "Price page"
// @Failure 400 {object} dto.APIResponse "Invalid query"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/prices [get]
func (h *PriceHandler) QueryPrices(c fiber.Ctx) error {
	req, err := parsePriceQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), businessflow.CodePriceQueryInvalid, nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/prices")
	defer cancel()

	result, err := h.queryFlow.QueryPrices(ctx, req)
	if err != nil {
		return h.flowError(c, err, "Failed to query prices")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Prices retrieved successfully", result)
}

// ExportPrices handles the spreadsheet export of a price query
// @Summary Export monthly prices
// @Description Same filters as the price query, returned as an xlsx attachment
// @Tags Prices
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param level_harga_id query int true "Price level (1-5)"
// @Param commodity_id query string false "Commodity id"
// @Param province_id query string false "Province id"
// @Param period_start query string false "Window start lower bound (YYYY-MM-DD)"
// @Param period_end query string false "Window end upper bound (YYYY-MM-DD)"
// @Param limit query int false "Row limit (1-1000, default 50)"
// @Param offset query int false "Row offset"
// @Success 200 {file} file "Excel file"
// @Failure 400 {object} dto.APIResponse "Invalid query"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/prices/export [get]
func (h *PriceHandler) ExportPrices(c fiber.Ctx) error {
	req, err := parsePriceQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), businessflow.CodePriceQueryInvalid, nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/prices/export")
	defer cancel()

	filename, data, err := h.exportFlow.ExportPrices(ctx, req)
	if err != nil {
		return h.flowError(c, err, "Failed to export prices")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

func (h *PriceHandler) flowError(c fiber.Ctx, err error, fallback string) error {
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, nil)
		}
		h.logger.Error(fallback, zap.String("code", be.Code), zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, fallback, be.Code, nil)
	}
	h.logger.Error(fallback, zap.Error(err))
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallback, businessflow.CodePriceQueryFailed, nil)
}

// parsePriceQuery reads the query string into a request. Range checks are left to the flow.
func parsePriceQuery(c fiber.Ctx) (*dto.PriceQueryRequest, error) {
	level, ok, err := queryInt(c, "level_harga_id")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("level_harga_id is required")
	}

	req := &dto.PriceQueryRequest{
		LevelHargaID: level,
		CommodityID:  queryString(c, "commodity_id"),
		ProvinceID:   queryString(c, "province_id"),
	}

	if req.PeriodStart, err = queryDate(c, "period_start"); err != nil {
		return nil, err
	}
	if req.PeriodEnd, err = queryDate(c, "period_end"); err != nil {
		return nil, err
	}

	limit, ok, err := queryInt(c, "limit")
	if err != nil {
		return nil, err
	}
	if ok {
		req.Limit = &limit
	}

	offset, _, err := queryInt(c, "offset")
	if err != nil {
		return nil, err
	}
	req.Offset = offset

	return req, nil
}
