package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/fileflows-bridge/internal/api/handlers"
	"github.com/frostdev-ops/fileflows-bridge/internal/api/middleware"
	"github.com/frostdev-ops/fileflows-bridge/internal/config"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/metrics"
	"github.com/frostdev-ops/fileflows-bridge/internal/websocket"
	"github.com/frostdev-ops/fileflows-bridge/pkg/logger"
	"github.com/frostdev-ops/fileflows-bridge/pkg/utils"
)

// Dependencies are the collaborators the router mounts. Collector, Gatherer
// and Requests may be nil; Hub is required only for /ws.
type Dependencies struct {
	Handlers  *handlers.Handlers
	Hub       *websocket.Hub
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
	Requests  *logger.BatchLogger
}

func ginMode(mode string) string {
	switch strings.ToLower(mode) {
	case "debug", "development":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, deps Dependencies, log *logrus.Logger) *gin.Engine {
	gin.SetMode(ginMode(cfg.Server.Mode))

	if deps.Collector == nil {
		deps.Collector = metrics.NopCollector{}
	}
	if deps.Requests == nil {
		deps.Requests = logger.NewBatchLogger(log, 50)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ErrorHandlingMiddleware(log))
	router.Use(middleware.LoggingMiddleware(deps.Requests))
	router.Use(middleware.MetricsMiddleware(deps.Collector))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.ErrorResponseMiddleware())

	h := deps.Handlers

	// Public routes
	router.GET("/health", h.Health)
	if cfg.Monitoring.Enabled && deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if deps.Hub != nil {
		router.GET("/ws", websocket.HandleWebSocketGin(deps.Hub))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/status", h.GetStatus)
		api.GET("/snapshot", h.GetSnapshot)
		api.GET("/snapshot/:resource", h.GetResource)
		api.GET("/metrics", h.GetMetrics)
		api.GET("/entities", h.GetEntities)
		api.GET("/entities/:id", h.GetEntity)
		api.GET("/control", h.ListCommands)
		api.GET("/websocket/stats", h.GetWebSocketStats)

		// Routes that reach FileFlows on demand
		protected := api.Group("")
		if cfg.Auth.Enabled {
			protected.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
		}
		{
			protected.POST("/refresh", h.Refresh)
			protected.POST("/control/:command", h.ExecuteCommand)
			protected.POST("/entities/:id/action", h.ExecuteEntityAction)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		utils.SendError(c, http.StatusNotFound, "Endpoint not found")
	})

	return router
}
