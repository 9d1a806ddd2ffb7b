package handler

import (
	"context"
	"net/http"

	"github.com/haltia/matrix-ci/internal/store"
	"github.com/labstack/echo/v4"
)

type SessionCookieReader interface {
	GetSessionID(echo.Context) (string, error)
}

type SessionUserReader interface {
	GetUserBySessionID(ctx context.Context, sessionID string) (*store.User, error)
}

// SessionMiddleware resolves the session cookie into the signed in
// user. Requests without a valid session continue anonymously.
func SessionMiddleware(
	userService SessionUserReader,
	cookieService SessionCookieReader,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID, err := cookieService.GetSessionID(c)
			if err != nil {
				return next(c)
			}
			u, err := userService.GetUserBySessionID(c.Request().Context(), sessionID)
			if err != nil {
				return next(c)
			}
			c.Set("user", u)
			return next(c)
		}
	}
}

// HasSession requires a signed in user without checking whether the
// initial password has been changed yet.
func HasSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if getCtxUser(c) == nil {
			return newError(nil, http.StatusUnauthorized, "authentication required")
		}
		return next(c)
	}
}

func IsAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := getCtxUser(c)
		if user == nil {
			return newError(nil, http.StatusUnauthorized, "authentication required")
		}
		if user.PasswordChangedOn == nil || user.PasswordChangedOn.IsZero() {
			return newError(nil, http.StatusForbidden, "password change required")
		}
		return next(c)
	}
}

func RoleMiddleware(requiredRole store.Role) func(next echo.HandlerFunc) echo.HandlerFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := getCtxUser(c)
			if u == nil || int64(u.UserRoleID) < int64(requiredRole) {
				return newError(nil, http.StatusForbidden, "invalid permissions")
			}
			return next(c)
		}
	}
}
