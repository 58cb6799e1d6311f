package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is the context and header key carrying the request id.
const RequestIDKey = "X-Request-ID"

// FromContext returns the request-scoped logger stored by Middleware.
// When the request carries no logger yet, the global one is annotated
// with whatever request id can be found so log lines stay correlated.
func FromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get("logger").(*zap.Logger); ok {
		return l
	}

	requestID, _ := c.Get(RequestIDKey).(string)
	if requestID == "" {
		requestID = c.Request().Header.Get(RequestIDKey)
	}
	if requestID == "" {
		requestID = "unknown"
	}
	return GetLogger().With(zap.String("request_id", requestID))
}
