package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/Triaksa-Space/be-admin-console/config"
	"github.com/Triaksa-Space/be-admin-console/middleware"
	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/labstack/echo/v4"
)

type Lister interface {
	List(ctx context.Context, f ListFilter) (*ListResult, error)
	Roles(ctx context.Context) ([]Role, error)
}

type Handler struct {
	svc        Lister
	lastActive *config.LastActiveStore
}

// NewHandler builds the user handlers. lastActive may be nil.
func NewHandler(svc Lister, lastActive *config.LastActiveStore) *Handler {
	return &Handler{svc: svc, lastActive: lastActive}
}

// ListUsersHandler handles GET /users.
func (h *Handler) ListUsersHandler(c echo.Context) error {
	var f ListFilter
	if err := c.Bind(&f); err != nil {
		return apperrors.RespondWithError(c, apperrors.NewBadRequest(apperrors.ErrCodeValidation, "Invalid query parameters"))
	}
	if len(f.Search) > 255 {
		return apperrors.RespondWithError(c, apperrors.NewBadRequest(apperrors.ErrCodeValidation, "search parameter too long"))
	}

	res, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListRolesHandler handles GET /roles.
func (h *Handler) ListRolesHandler(c echo.Context) error {
	roles, err := h.svc.Roles(c.Request().Context())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"roles": roles})
}

// HeartbeatHandler handles POST /users/me/heartbeat and records the caller as active.
func (h *Handler) HeartbeatHandler(c echo.Context) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return apperrors.RespondWithError(c, apperrors.NewUnauthorized("Authentication required"))
	}
	if err := h.lastActive.Touch(c.Request().Context(), actor.ID); err != nil {
		logger.FromContext(c.Request().Context()).Warn("Failed to record heartbeat", logger.Err(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func respondErr(c echo.Context, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.RespondWithError(c, appErr)
	}
	return err
}
