package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/coffee-club/internal/auth"
)

const callerKey = "caller_id"

// requestLogger пишет одну строку slog на запрос.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		c.Writer.Header().Set("X-Response-Time", latency.String())

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", latency,
			"ip", c.ClientIP(),
		}
		if caller := c.GetString(callerKey); caller != "" {
			attrs = append(attrs, "caller_id", caller)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			attrs = append(attrs, "errors", errs)
		}
		log.Info("http request", attrs...)
	}
}

// authenticate пропускает только запросы с валидным bearer-токеном.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID, err := h.gate.Authenticate(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			h.fail(c, err)
			c.Abort()
			return
		}
		c.Set(callerKey, callerID)
		c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), callerID))
		c.Next()
	}
}

// requireStaff: проверка возможности до любого вызова сценария.
func (h *Handler) requireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := h.staff.RequireStaff(c.Request.Context(), caller(c)); err != nil {
			h.fail(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func caller(c *gin.Context) string {
	return auth.CallerFromContext(c.Request.Context())
}
