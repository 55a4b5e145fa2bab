package server

import (
	"time"

	"farmfuzion/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLoggingMiddleware logs each HTTP request after it completes.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		logger.Infof("%s %s -> %d (%dms) from %s",
			c.Request.Method,
			path,
			c.Writer.Status(),
			latency.Milliseconds(),
			c.ClientIP(),
		)
	}
}
