package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"uconnect/internal/session"
)

const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware tags each request with an id and logs it once it is served.
func LoggingMiddleware(log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(RequestIDHeader, reqID)

		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request served")
	}
}

// Timeout bounds the request context handed to the handlers.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Session resolves the signed-in student from the cookie and refreshes the
// cookie so that active sessions keep rolling forward.
func Session(m *session.Manager, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, ok := m.Load(c)
		if !ok {
			c.Next()
			return
		}

		session.SetViewer(c, data.Viewer())
		if err := m.Commit(c, data); err != nil {
			log.Warn().Err(err).Int64("student_id", data.ID).Msg("failed to refresh session")
		}
		c.Next()
	}
}
