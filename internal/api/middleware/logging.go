package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/fileflows-bridge/pkg/logger"
)

// LoggingMiddleware logs every request through a BatchLogger, so successful
// polling traffic ends up in periodic summaries.
func LoggingMiddleware(batch *logger.BatchLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := logrus.Fields{
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"request_id": c.GetString(requestIDKey),
		}
		if len(c.Errors) > 0 {
			fields["error_message"] = c.Errors.String()
		}

		batch.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), fields)
	}
}
