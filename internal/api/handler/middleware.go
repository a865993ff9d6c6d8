package handler

import (
	"chatlounge/backend/internal/metrics"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger пише один рядок logrus на кожен запит.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(latency.Seconds())

		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   latency.String(),
			"client_ip": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Info("request")
	}
}

// housekeep запускає прибирання неактивних сесій перед операціями випадкового чату.
func (h *Handler) housekeep() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.Chat.Housekeep(c.Request.Context())
		c.Next()
	}
}

// throttle застосовує abuse guard до запитів, що змінюють стан.
func (h *Handler) throttle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Guard == nil {
			c.Next()
			return
		}
		if err := h.Guard.Check(c.Request.Context(), requestActor(c)); err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
