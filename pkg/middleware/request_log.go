package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insideadapt/kb-portal/pkg/logger"
)

// RequestLogger logs one structured line per request. The query string is
// left out so search terms are not written to the log.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if id, ok := IdentityFromContext(c); ok {
			fields = append(fields, "email", id.Email, "role", string(id.Role))
		}
		logger.With(fields...).Info("request")
	}
}
