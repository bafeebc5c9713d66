package routes

import (
	"net/http"
	"strconv"

	"github.com/Triaksa-Space/be-admin-console/config"
	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/domain/health"
	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/middleware"
	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health   *health.Handler
	Users    *user.Handler
	Bulk     *bulk.Handler
	Importer *importer.Handler
}

// Deps are the cross-cutting pieces the middleware chain needs.
type Deps struct {
	Config      *config.Config
	Log         logger.Logger
	Redis       *redis.Client
	Permissions middleware.PermissionLoader
}

// NewServer builds the echo instance with the global middleware chain and
// every route registered.
func NewServer(d Deps, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler(d.Log)

	e.Use(logger.RecoveryMiddleware(d.Log))
	e.Use(logger.RequestLoggerMiddleware(d.Log))
	e.Use(middleware.MetricsMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderContentLength, echo.HeaderContentDisposition, echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	RegisterRoutes(e, d, h)
	return e
}

func RegisterRoutes(e *echo.Echo, d Deps, h Handlers) {
	// Health and metrics (public)
	e.GET("/health", h.Health.HealthHandler)
	e.GET("/health/live", h.Health.LivenessHandler)
	e.GET("/health/ready", h.Health.ReadinessHandler)
	e.GET("/health/stats", h.Health.StatsHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limit := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		Client:    d.Redis,
		PerMinute: d.Config.RateLimitPerMinute,
		Log:       d.Log,
	})

	auth := func(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		return append([]echo.MiddlewareFunc{
			middleware.JWTMiddleware(d.Config.JWTSecret),
			middleware.ActorMiddleware(d.Permissions),
		}, extra...)
	}

	// Users
	e.GET("/users", h.Users.ListUsersHandler, auth(middleware.RequirePermission("read", "User"))...)
	e.GET("/roles", h.Users.ListRolesHandler, auth(middleware.RequirePermission("read", "User"))...)
	e.POST("/users/me/heartbeat", h.Users.HeartbeatHandler, auth()...)

	// Bulk operations; the required grant depends on the operation and is checked by the service.
	e.POST("/bulk-operations", h.Bulk.ExecuteHandler, auth(limit)...)
	e.GET("/bulk-operations/:id", h.Bulk.ProgressHandler, auth()...)

	// Import. Uploads get a little headroom over the file limit for the other form fields.
	bodyLimit := echomw.BodyLimitWithConfig(echomw.BodyLimitConfig{
		Limit: formatBytes(d.Config.ImportMaxFileSize + 1<<20),
	})
	canCreate := middleware.RequirePermission("create", "User")
	e.POST("/users/import/preview", h.Importer.PreviewHandler, auth(canCreate, bodyLimit, limit)...)
	e.POST("/users/import", h.Importer.CommitHandler, auth(canCreate, bodyLimit, limit)...)
	e.GET("/users/import/template", h.Importer.TemplateHandler, auth(canCreate)...)
}

// formatBytes renders n in the "<n>B" form echo's body limit parser accepts.
func formatBytes(n int64) string {
	if n <= 0 {
		n = 11 << 20
	}
	return strconv.FormatInt(n, 10) + "B"
}
