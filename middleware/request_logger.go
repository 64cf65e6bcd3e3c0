package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/podbrah/podbrah-backend/logger"
)

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if uid := UserID(c); uid != "" {
			kv = append(kv, "user_id", uid)
		}
		switch {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}
