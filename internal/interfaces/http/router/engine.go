package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/labels/internal/infrastructure/config"
	"github.com/erp/labels/internal/infrastructure/logger"
	"github.com/erp/labels/internal/interfaces/http/middleware"
)

// EngineOptions configures the gin engine shared by every route group
type EngineOptions struct {
	Env     string
	HTTP    config.HTTPConfig
	Logger  *zap.Logger
	Health  gin.HandlerFunc
	Metrics http.Handler
	Tracing middleware.TracingConfig
}

// NewEngine creates the gin engine with tracing, request ID, logging,
// recovery, CORS and body limit middleware, plus /health and /metrics outside
// the API prefix
func NewEngine(opts EngineOptions) *gin.Engine {
	if opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		middleware.Tracing(opts.Tracing),
		logger.RequestID(),
		middleware.SpanAttributes(),
		logger.GinMiddleware(opts.Logger),
		logger.Recovery(opts.Logger),
	)
	if cors := middleware.CORS(opts.HTTP); cors != nil {
		engine.Use(cors)
	}
	engine.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))

	if opts.Health != nil {
		engine.GET("/health", opts.Health)
	}
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return engine
}
