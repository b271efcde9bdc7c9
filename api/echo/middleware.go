package echo

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/edustack/authserver/errors"
	"github.com/edustack/authserver/services"
)

// principalContextKey carries the authenticated user's id through the echo
// context.
const principalContextKey = "auth.principal.user_id"

// PrincipalUserID returns the user id set by RequireBearerToken, or "" when
// the route is unauthenticated.
func PrincipalUserID(c echo.Context) string {
	if v, ok := c.Get(principalContextKey).(string); ok {
		return v
	}
	return ""
}

// RequireBearerToken authenticates the request via the Authorization header.
// Only live access tokens pass; refresh and ID tokens are rejected.
func (oa *OAuth2API) RequireBearerToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return writeAuthError(c, errors.ErrUnauthorized)
			}

			claims, err := oa.jwtService.ParseToken(c.Request().Context(), token)
			if err != nil {
				return writeAuthError(c, err)
			}
			if claims.TokenType != services.TokenTypeAccess {
				return writeAuthError(c, errors.ErrTokenInvalid)
			}

			c.Set(principalContextKey, claims.UserID)
			return next(c)
		}
	}
}
