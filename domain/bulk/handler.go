package bulk

import (
	"context"
	"net/http"

	"github.com/Triaksa-Space/be-admin-console/middleware"
	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/labstack/echo/v4"
)

// Executor is the service surface used by the HTTP handler.
type Executor interface {
	Execute(ctx context.Context, actor Actor, req Request) (*Result, error)
	Progress(ctx context.Context, operationID string) (*Progress, error)
}

type Handler struct {
	svc Executor
}

func NewHandler(svc Executor) *Handler {
	return &Handler{svc: svc}
}

// ExecuteHandler handles POST /bulk-operations.
func (h *Handler) ExecuteHandler(c echo.Context) error {
	var actor Actor
	if a, ok := middleware.ActorFromContext(c); ok {
		actor = a
	}

	var req Request
	if err := c.Bind(&req); err != nil {
		return apperrors.RespondWithError(c, apperrors.NewBadRequest(apperrors.ErrCodeValidation, "Invalid request payload"))
	}

	result, err := h.svc.Execute(c.Request().Context(), actor, req)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return apperrors.RespondWithError(c, appErr)
		}
		return err
	}

	status := result.HTTPStatus()
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request().Context()).Warn("Bulk operation failed for every target",
			logger.Operation(string(result.Operation)), logger.Int("failed", result.Failed))
		return apperrors.RespondWithError(c, apperrors.New(status, apperrors.ErrCodeBulkOperationFailed, result.Message).
			WithDetails(result))
	}
	return c.JSON(status, result)
}

// ProgressHandler handles GET /bulk-operations/:id.
func (h *Handler) ProgressHandler(c echo.Context) error {
	p, err := h.svc.Progress(c.Request().Context(), c.Param("id"))
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return apperrors.RespondWithError(c, appErr)
		}
		return err
	}
	return c.JSON(http.StatusOK, p)
}
