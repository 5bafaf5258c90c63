package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/fileflows-bridge/internal/core/metrics"
)

// MetricsMiddleware creates middleware for collecting HTTP metrics
func MetricsMiddleware(collector metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Unmatched routes share one label to bound cardinality
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		if collector != nil {
			collector.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
		}
	}
}
