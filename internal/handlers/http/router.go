package http

import (
	"context"
	"net/http"
	"time"

	"streamqa/internal/core/ports"
	"streamqa/internal/infrastructure/middleware"
	"streamqa/internal/infrastructure/monitoring"
	"streamqa/pkg/config"
	"streamqa/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps carries everything the mock server router is built from.
// Collector, Gatherer and Health are optional.
type RouterDeps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Network   ports.NetworkService
	Assets    ports.AssetService
	Collector *monitoring.PrometheusCollector
	Gatherer  prometheus.Gatherer
	Health    *monitoring.HealthChecker
	StartTime time.Time
}

// NewRouter wires middleware and the mock streaming endpoints.
func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sugar := log.Sugar()
	if deps.StartTime.IsZero() {
		deps.StartTime = time.Now()
	}

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(sugar))
	router.Use(middleware.RequestIDMiddleware())
	if deps.Config.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	var recorder middleware.RequestRecorder
	var segments SegmentRecorder
	if deps.Collector != nil {
		recorder = deps.Collector
		segments = deps.Collector
	}
	router.Use(middleware.RequestLoggerMiddleware(logger.NewContextLogger(log), recorder))
	router.Use(middleware.NewHTTPRateLimitMiddleware(deps.Config))
	router.Use(middleware.ErrorHandlerMiddleware(sugar))

	router.GET("/ready", readyHandler(deps.Health, deps.StartTime))
	if deps.Config.Monitoring.PrometheusEnabled && deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	NewStreamHandler(deps.Network, deps.Assets, segments, sugar).SetupRoutes(router)
	NewControlHandler(deps.Network, sugar).SetupRoutes(router)

	return router
}

func readyHandler(health *monitoring.HealthChecker, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health == nil {
			c.JSON(http.StatusOK, gin.H{
				"status":    "ready",
				"timestamp": time.Now(),
				"uptime":    time.Since(startTime).String(),
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := health.CheckAll(ctx)
		code := http.StatusOK
		ready := "ready"
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
			ready = "not_ready"
		}
		c.JSON(code, gin.H{
			"status":       ready,
			"timestamp":    status.Timestamp,
			"uptime":       time.Since(startTime).String(),
			"dependencies": status.Checks,
		})
	}
}
