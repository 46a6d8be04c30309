package log

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware attaches a request-scoped logger to the request context
// and writes one entry per completed request. The request id is taken
// from X-Request-ID when present and echoed back in the response.
//
// Probes and long-poll drains are logged at debug level, client errors
// at warn and server errors at error. A websocket upgrade is logged once
// the handler hands the connection over to its pumps.
func GinMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(headerRequestID, reqID)

		reqLogger := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = reqLogger.Error()
		case status >= http.StatusBadRequest:
			evt = reqLogger.Warn()
		case isQuiet(c):
			evt = reqLogger.Debug()
		default:
			evt = reqLogger.Info()
		}

		// Set by the auth middleware.
		if userID := c.GetString(FieldUserID); userID != "" {
			evt = evt.Str(FieldUserID, userID)
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.Int(FieldStatus, status).
			Dur(FieldLatency, time.Since(start)).
			Msg("request completed")
	}
}

func isQuiet(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet {
		return false
	}
	switch c.FullPath() {
	case "/health", "/metrics", "/socket/poll/:id":
		return true
	}
	return false
}
