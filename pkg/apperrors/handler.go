package apperrors

import (
	"net/http"
	"time"

	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	Timestamp string      `json:"timestamp"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// HTTPErrorHandler returns an Echo error handler that renders ErrorResponse bodies.
func HTTPErrorHandler(log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		requestID := logger.GetRequestIDFromContext(c)
		reqLog := log.WithRequestID(requestID)

		var status int
		var response ErrorResponse

		if appErr, ok := AsAppError(err); ok {
			status = appErr.HTTPStatus
			response = newResponse(appErr.Code, appErr.Message, requestID)
			response.Details = appErr.Details
			if status >= 500 {
				reqLog.Error("Internal error", appErr.Err, logger.String("error_code", appErr.Code))
			} else {
				reqLog.Warn("Client error", logger.String("error_code", appErr.Code), logger.String("message", appErr.Message))
			}
		} else if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(status)
			}
			response = newResponse(codeForStatus(status), msg, requestID)
			if status == http.StatusRequestEntityTooLarge {
				// Oversized uploads are a validation failure like the service's own size check.
				status = http.StatusBadRequest
				response = newResponse(ErrCodeFileTooLarge, "File exceeds the maximum allowed size", requestID)
				reqLog.Warn("Client error", logger.String("error_code", ErrCodeFileTooLarge))
			}
			if status >= 500 {
				reqLog.Error("HTTP error", he.Internal, logger.Status(status))
			}
		} else {
			status = http.StatusInternalServerError
			response = newResponse(ErrCodeInternal, "An unexpected error occurred", requestID)
			reqLog.Error("Unhandled error", err)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, response)
	}
}

// RespondWithError writes an AppError response directly.
func RespondWithError(c echo.Context, err *AppError) error {
	response := newResponse(err.Code, err.Message, logger.GetRequestIDFromContext(c))
	response.Details = err.Details
	return c.JSON(err.HTTPStatus, response)
}

func newResponse(code, message, requestID string) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeInsufficientPermissions
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusTooManyRequests:
		return ErrCodeRateLimitExceeded
	case http.StatusRequestEntityTooLarge:
		return ErrCodeFileTooLarge
	}
	if status >= 500 {
		return ErrCodeInternal
	}
	return ErrCodeValidation
}
