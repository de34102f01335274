package handlers

import (
	"context"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandlerInterface defines the contract for liveness and readiness probes
type HealthHandlerInterface interface {
	Live(c fiber.Ctx) error
	Ready(c fiber.Ctx) error
}

// HealthHandler serves the probes
type HealthHandler struct {
	baseHandler
	db     Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		baseHandler: baseHandler{timeout: 3 * time.Second},
		db:          db,
		logger:      logger.Named("health_handler"),
	}
}

// Live always reports ok while the process serves requests
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse} "Service is alive"
// @Router /api/v1/health [get]
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "Service is healthy", dto.HealthResponse{
		Status:    "ok",
		Timestamp: utils.UTCNow().Format(time.RFC3339),
	})
}

// Ready pings the database
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse} "Service is ready"
// @Failure 503 {object} dto.APIResponse "Database unreachable"
// @Router /api/v1/health/ready [get]
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/health/ready")
	defer cancel()

	if h.db == nil {
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Service is not ready", "NOT_READY", dto.HealthResponse{
			Status:    "unavailable",
			Timestamp: utils.UTCNow().Format(time.RFC3339),
			Detail:    "database not configured",
		})
	}

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Service is not ready", "NOT_READY", dto.HealthResponse{
			Status:    "unavailable",
			Timestamp: utils.UTCNow().Format(time.RFC3339),
			Detail:    "database unreachable",
		})
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Service is ready", dto.HealthResponse{
		Status:    "ok",
		Timestamp: utils.UTCNow().Format(time.RFC3339),
	})
}
