package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger журнал запросов. Приватные ошибки обработчиков попадают только в лог.
func Logger(l *logrus.Logger) gin.HandlerFunc {
	entry := l.WithField("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			entry.WithFields(fields).WithError(c.Errors.Last()).Warn("request failed")
			return
		}
		entry.WithFields(fields).Info("request")
	}
}
