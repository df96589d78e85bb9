package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/oggyb/talenthub/internal/http/response"
)

// Logging logs one line per request and exposes a request-scoped logger to
// handlers. The request id comes from chi's RequestID middleware wrapping
// the engine.
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := chimiddleware.GetReqID(c.Request.Context())
		c.Header("X-Request-ID", reqID)
		c.Set(response.LoggerKey, logger.With("request_id", reqID))

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", reqID),
			slog.String("user_id", UserID(c)),
		)
	}
}
