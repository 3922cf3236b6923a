package middleware

import (
	"time"

	"streamqa/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
}

// RequestIDMiddleware propagates X-Request-ID, generating one when absent.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}

// RequestLoggerMiddleware logs every request and feeds the recorder, if any.
func RequestLoggerMiddleware(log *logger.ContextLogger, recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		log.LogRequest(c.Request.Context(), c.Request.Method, c.Request.URL.Path, status, duration.Milliseconds())
		if recorder != nil {
			recorder.RecordRequest(c.Request.Method, routeOf(c), status, duration)
		}
	}
}
