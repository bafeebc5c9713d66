package middleware

import (
	"strings"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware validates the bearer token and stores the caller's identity
// (user_id, email, role_id) in the echo context.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return apperrors.RespondWithError(c, apperrors.NewUnauthorized("Missing or invalid token"))
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.FromContext(c.Request().Context()).Debug("Rejected token", logger.Err(err))
				return apperrors.RespondWithError(c, apperrors.NewUnauthorized("Invalid or expired token"))
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return apperrors.RespondWithError(c, apperrors.NewUnauthorized("Invalid token claims"))
			}

			userID, _ := claims["user_id"].(string)
			if userID == "" {
				userID, _ = claims["sub"].(string)
			}
			if userID == "" {
				return apperrors.RespondWithError(c, apperrors.NewUnauthorized("Invalid token claims"))
			}
			email, _ := claims["email"].(string)
			roleID, _ := claims["role_id"].(string)

			c.Set(string(logger.ContextKeyUserID), userID)
			c.Set("email", email)
			c.Set("role_id", roleID)

			ctx := logger.WithUserIDContext(c.Request().Context(), userID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
