package logger

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader is the HTTP header carrying the request ID
const RequestIDHeader = "X-Request-ID"

// RequestLoggerMiddleware assigns a request ID, stores a request-scoped logger in
// the request context and logs one line per request.
func RequestLoggerMiddleware(log Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Set(string(ContextKeyRequestID), requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)

			reqLog := log.WithRequestID(requestID).WithFields(
				Method(req.Method),
				Path(req.URL.Path),
				RemoteIP(c.RealIP()),
			)

			ctx := WithRequestIDContext(req.Context(), requestID)
			ctx = WithLoggerContext(ctx, reqLog)
			c.SetRequest(req.WithContext(ctx))

			reqLog.Debug("Request started")

			err := next(c)

			status := c.Response().Status
			fields := []Field{
				Status(status),
				Duration("duration_ms", time.Since(start)),
				Int64("bytes_out", c.Response().Size),
			}
			if userID, ok := c.Get(string(ContextKeyUserID)).(string); ok {
				fields = append(fields, UserID(userID))
			}

			switch {
			case err != nil:
				reqLog.Error("Request failed", err, fields...)
			case status >= 500:
				reqLog.Error("Server error response", nil, fields...)
			case status >= 400:
				reqLog.Warn("Client error response", fields...)
			default:
				reqLog.Info("Request completed", fields...)
			}

			return err
		}
	}
}

// RecoveryMiddleware recovers from panics and answers with an opaque 500.
func RecoveryMiddleware(log Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					requestID := GetRequestIDFromContext(c)
					log.WithRequestID(requestID).Error("Panic recovered",
						nil,
						Any("panic", r),
						Method(c.Request().Method),
						Path(c.Request().URL.Path),
					)
					err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"success":    false,
						"error":      "An unexpected error occurred",
						"code":       "INTERNAL_SERVER_ERROR",
						"timestamp":  time.Now().UTC().Format(time.RFC3339),
						"request_id": requestID,
					})
				}
			}()
			return next(c)
		}
	}
}

// GetRequestIDFromContext gets the request ID from the echo context
func GetRequestIDFromContext(c echo.Context) string {
	if requestID, ok := c.Get(string(ContextKeyRequestID)).(string); ok {
		return requestID
	}
	return ""
}
