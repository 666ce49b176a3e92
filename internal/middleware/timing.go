package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Recorder is the slice of the monitor that request instrumentation needs.
type Recorder interface {
	RecordResponseTime(operation string, durationMS float64)
	RecordError(errType, detail string)
}

// RequestTimingMiddleware feeds every request's latency into the monitor so
// the agent's own API traffic shows up in the aggregates. Server errors
// count as error occurrences too.
func RequestTimingMiddleware(recorder Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		operation := c.Request.Method + " " + c.FullPath()
		if c.FullPath() == "" {
			operation = c.Request.Method + " unmatched"
		}
		elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)
		recorder.RecordResponseTime(operation, elapsedMS)

		if c.Writer.Status() >= 500 {
			recorder.RecordError("http_server_error", operation)
		}
	}
}
