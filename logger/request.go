package logger

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var redactedHeaders = []string{"authorization", "cookie", "token", "key", "secret"}

// LogHTTPError logs a failed request with its status, request ID and
// redacted headers. Outside production the stack is attached.
func LogHTTPError(c *gin.Context, err error, statusCode int, message string) {
	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status_code", statusCode),
	}
	if id := c.GetString("request_id"); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if c.Request != nil {
		fields = append(fields,
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip_address", c.ClientIP()),
			zap.Any("headers", filterSensitiveHeaders(c.Request.Header)),
		)
	}
	if !isProduction() {
		fields = append(fields, zap.Stack("stack_trace"))
	}

	GetLogger().Desugar().WithOptions(zap.AddCallerSkip(1)).Error(message, fields...)
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitiveHeader(name) {
			filtered[name] = "[REDACTED]"
		} else if len(values) > 0 {
			filtered[name] = values[0]
		}
	}
	return filtered
}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range redactedHeaders {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
