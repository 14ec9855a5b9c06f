package delivery

import (
	"adpipe/internal/delivery/middleware"
	"adpipe/pkg/logger"
	"adpipe/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type HTTPRouter struct {
	handlers *HTTPHandlers
	limiter  *rate.Limiter
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewHTTPRouter(handlers *HTTPHandlers, limiter *rate.Limiter, logger *logger.Logger, metrics *metrics.Metrics) *HTTPRouter {
	return &HTTPRouter{
		handlers: handlers,
		limiter:  limiter,
		logger:   logger,
		metrics:  metrics,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	router.Use(cors.New(config))

	// Health endpoint
	router.GET("/health", r.handlers.HealthCheck)

	// Ingestion endpoints, rate limited
	ingest := router.Group("/")
	ingest.Use(middleware.RateLimit(r.limiter))
	{
		ingest.POST("/click", r.handlers.IngestClick)
		ingest.GET("/pixel", r.handlers.Pixel)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/stats", r.handlers.GetStats)
		v1.GET("/metrics/detailed", r.handlers.GetDetailedMetrics)
		v1.GET("/budgets", r.handlers.GetBudgets)
		v1.GET("/history", r.handlers.GetHistory)
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	return router
}
