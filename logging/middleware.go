package logging

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Middleware attaches a request-scoped logger carrying a request id to the
// request context. Handlers retrieve it with From(ctx).
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
			c.Writer.Header().Set("X-Request-ID", rid)
		}

		reqLog := slog.Default().With(
			slog.String("request_id", rid),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		ctx := Inject(c.Request.Context(), reqLog)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
