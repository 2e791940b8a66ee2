package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/internal/metrics"
)

// MetricsMiddleware counts requests by method, matched route and status.
// Unmatched paths are grouped under "unmatched" to keep label cardinality
// bounded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.Get().HTTPRequests.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Inc()
	}
}
