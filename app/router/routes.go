// Package router provides HTTP routing, middleware configuration, and server setup for the price API
package router

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	"github.com/amirphl/harga-pangan/app/handlers"
	"github.com/amirphl/harga-pangan/app/middleware"
	"github.com/amirphl/harga-pangan/config"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	healthPath      = "/api/v1/health"
	readinessPath   = "/api/v1/health/ready"
	defaultMetrics  = "/metrics"
	accessLogFormat = `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups the endpoint handlers mounted by the router
type Handlers struct {
	Price     handlers.PriceHandlerInterface
	Dimension handlers.DimensionHandlerInterface
	Health    handlers.HealthHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	handlers Handlers
	server   config.ServerConfig
	metrics  config.MetricsConfig
	logger   *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(h Handlers, server config.ServerConfig, metrics config.MetricsConfig, log *zap.Logger) *FiberRouter {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("router")

	bodyLimit := server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "Harga Pangan API",
		ServerHeader: "harga-pangan",
		ErrorHandler: errorHandler(log),
		BodyLimit:    bodyLimit,
		ReadTimeout:  server.ReadTimeout,
		WriteTimeout: server.WriteTimeout,
		IdleTimeout:  server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:      app,
		handlers: h,
		server:   server,
		metrics:  metrics,
		logger:   log,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.metrics.Enabled {
		path := r.metrics.Path
		if path == "" {
			path = defaultMetrics
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Probes are not rate limited
	api.Get("/health", r.handlers.Health.Live)
	api.Get("/health/ready", r.handlers.Health.Ready)

	rateLimit := r.server.GlobalRateLimit
	if rateLimit <= 0 {
		rateLimit = 600
	}
	api.Use(limiter.New(limiter.Config{
		Max:        rateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: isProbe,
	}))

	api.Get("/prices", r.handlers.Price.QueryPrices)
	api.Get("/prices/export", r.handlers.Price.ExportPrices)
	api.Get("/commodities", r.handlers.Dimension.ListCommodities)
	api.Get("/provinces", r.handlers.Dimension.ListProvinces)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured", zap.Bool("metrics_enabled", r.metrics.Enabled))
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: fiber.HeaderXRequestID,
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	origins := r.server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge: utils.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// xlsx is already zip-compressed
			return strings.HasSuffix(c.Path(), "/export")
		},
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     accessLogFormat,
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next:       isProbe,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("Panic recovered",
				zap.String("request_id", requestid.FromContext(c)),
				zap.Any("error", e),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()))
		},
	}))

	if r.metrics.Enabled {
		path := r.metrics.Path
		if path == "" {
			path = defaultMetrics
		}
		r.app.Use(middleware.Metrics(path, healthPath, readinessPath))
	}
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "An internal server error occurred"
		errCode := "INTERNAL_ERROR"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			if code < fiber.StatusInternalServerError {
				message = fe.Message
				errCode = "REQUEST_ERROR"
			}
		}

		requestID := requestid.FromContext(c)
		log.Error("Request failed",
			zap.Int("status", code),
			zap.String("request_id", requestID),
			zap.String("path", c.Path()),
			zap.Error(err))

		return c.Status(code).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error: dto.ErrorDetail{
				Code: errCode,
				Details: fiber.Map{
					"timestamp":  utils.UTCNowUnix(),
					"request_id": requestID,
				},
			},
		})
	}
}

func isProbe(c fiber.Ctx) bool {
	return c.Path() == healthPath || c.Path() == readinessPath
}
