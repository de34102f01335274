package handlers

import (
	"time"

	businessflow "github.com/amirphl/harga-pangan/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// DimensionHandlerInterface defines the contract for reference list handlers
type DimensionHandlerInterface interface {
	ListCommodities(c fiber.Ctx) error
	ListProvinces(c fiber.Ctx) error
}

// DimensionHandler serves the commodity and province lists
type DimensionHandler struct {
	baseHandler
	flow   businessflow.DimensionFlow
	logger *zap.Logger
}

// NewDimensionHandler creates a new dimension handler
func NewDimensionHandler(flow businessflow.DimensionFlow, timeout time.Duration, logger *zap.Logger) *DimensionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DimensionHandler{
		baseHandler: baseHandler{timeout: timeout},
		flow:        flow,
		logger:      logger.Named("dimension_handler"),
	}
}

// ListCommodities returns every known commodity
// @Summary List commodities
// @Tags Dimensions
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.DimensionItem} "Commodities"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/commodities [get]
func (h *DimensionHandler) ListCommodities(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/commodities")
	defer cancel()

	items, err := h.flow.ListCommodities(ctx)
	if err != nil {
		h.logger.Error("List commodities failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list commodities", businessflow.CodeDimensionFailed, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Commodities retrieved successfully", items)
}

// ListProvinces returns every known province, including the national aggregate
// @Summary List provinces
// @Tags Dimensions
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.DimensionItem} "Provinces"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/provinces [get]
func (h *DimensionHandler) ListProvinces(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/provinces")
	defer cancel()

	items, err := h.flow.ListProvinces(ctx)
	if err != nil {
		h.logger.Error("List provinces failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list provinces", businessflow.CodeDimensionFailed, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Provinces retrieved successfully", items)
}
