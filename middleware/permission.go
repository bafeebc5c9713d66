package middleware

import (
	"context"
	"fmt"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
)

const actorKey = "actor"

// Permission is a single (action, subject) grant. "manage" matches every
// action and "all" matches every subject.
type Permission struct {
	Action  string `db:"action" json:"action"`
	Subject string `db:"subject" json:"subject"`
}

// Actor is the authenticated caller with its resolved capability set.
type Actor struct {
	ID          string
	Email       string
	RoleID      string
	Permissions []Permission
}

func (a *Actor) UserID() string {
	return a.ID
}

// Can reports whether any grant covers action on subject.
func (a *Actor) Can(action, subject string) bool {
	for _, p := range a.Permissions {
		if (p.Action == "manage" || p.Action == action) && (p.Subject == "all" || p.Subject == subject) {
			return true
		}
	}
	return false
}

// PermissionLoader resolves the grants attached to a role.
type PermissionLoader interface {
	PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error)
}

// PermissionStore reads grants from the role_permissions table.
type PermissionStore struct {
	db *sqlx.DB
}

func NewPermissionStore(db *sqlx.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

func (s *PermissionStore) PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error) {
	var perms []Permission
	query := s.db.Rebind(`SELECT action, subject FROM role_permissions WHERE role_id = ?`)
	if err := s.db.SelectContext(ctx, &perms, query, roleID); err != nil {
		return nil, fmt.Errorf("load permissions for role %s: %w", roleID, err)
	}
	return perms, nil
}

// ActorMiddleware builds an Actor from the JWT claims and the role's grants.
// It must run after JWTMiddleware.
func ActorMiddleware(loader PermissionLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(string(logger.ContextKeyUserID)).(string)
			if userID == "" {
				return apperrors.RespondWithError(c, apperrors.NewUnauthorized("Authentication required"))
			}
			email, _ := c.Get("email").(string)
			roleID, _ := c.Get("role_id").(string)

			perms, err := loader.PermissionsForRole(c.Request().Context(), roleID)
			if err != nil {
				return apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to resolve permissions", err)
			}

			c.Set(actorKey, &Actor{ID: userID, Email: email, RoleID: roleID, Permissions: perms})
			return next(c)
		}
	}
}

// RequirePermission rejects callers whose actor lacks action on subject.
func RequirePermission(action, subject string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c)
			if !ok {
				return apperrors.RespondWithError(c, apperrors.NewUnauthorized("Authentication required"))
			}
			if !actor.Can(action, subject) {
				return apperrors.RespondWithError(c, apperrors.NewForbidden(
					fmt.Sprintf("Missing permission: %s %s", action, subject),
				))
			}
			return next(c)
		}
	}
}

// ActorFromContext returns the actor stored by ActorMiddleware.
func ActorFromContext(c echo.Context) (*Actor, bool) {
	actor, ok := c.Get(actorKey).(*Actor)
	return actor, ok && actor != nil
}

// SetActor stores an actor directly; used by handlers under test.
func SetActor(c echo.Context, actor *Actor) {
	c.Set(actorKey, actor)
}
