package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/haltia/matrix-ci/internal/store"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type AuthCookieServicer interface {
	SetSessionCookie(echo.Context, string) error
	RemoveSessionCookie(echo.Context)
}

type UserAuthServicer interface {
	CreateAuthSession(
		ctx context.Context,
		userID int64,
	) (*store.AuthSession, error)
	GetUserByUsernameAndPassword(
		ctx context.Context,
		username, password string,
	) (*store.User, error)
	ChangeUserPassword(
		ctx context.Context,
		userID int64,
		oldPassword, newPassword string,
	) error
}

func SetupAuthRoutes(
	g *echo.Group,
	userService UserAuthServicer,
	cookieService AuthCookieServicer,
) {
	h := NewAuthHandler(userService, cookieService)
	g.POST("/auth/login", h.PostLogin)
	g.GET("/auth/logout", h.GetLogOut)
	// reachable before the initial password change
	g.POST("/auth/set-password", h.PostSetPassword, HasSession)
}

type AuthHandler struct {
	userService   UserAuthServicer
	cookieService AuthCookieServicer
}

func NewAuthHandler(
	userService UserAuthServicer,
	cookieService AuthCookieServicer,
) *AuthHandler {
	return &AuthHandler{userService, cookieService}
}

func (h *AuthHandler) PostLogin(c echo.Context) error {
	lp := new(LoginParams)
	if err := c.Bind(lp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid login data")
	}

	u, err := h.userService.GetUserByUsernameAndPassword(
		c.Request().Context(),
		lp.Username,
		lp.Password,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) ||
			errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return newError(err, http.StatusUnauthorized, "invalid username or password")
		}
		return newError(err, http.StatusInternalServerError, "unable to sign in")
	}

	s, err := h.userService.CreateAuthSession(c.Request().Context(), u.UserID)
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to create session")
	}

	if err := h.cookieService.SetSessionCookie(c, s.AuthSessionID); err != nil {
		return newError(err, http.StatusInternalServerError, "unable to set session cookie")
	}

	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) GetLogOut(c echo.Context) error {
	h.cookieService.RemoveSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// PostSetPassword rotates the password of the signed in user. The
// session cookie is removed so the client signs in again with the new
// password.
func (h *AuthHandler) PostSetPassword(c echo.Context) error {
	sp := new(SetPasswordParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid password data")
	}

	if sp.Password != sp.PasswordConfirm {
		return newError(nil, http.StatusBadRequest, "passwords do not match")
	}

	u := getCtxUser(c)
	if err := h.userService.ChangeUserPassword(
		c.Request().Context(), u.UserID, sp.OldPassword, sp.Password,
	); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return newError(err, http.StatusBadRequest, "old password does not match")
		}
		return newError(err, http.StatusInternalServerError, "unable to set password")
	}

	h.cookieService.RemoveSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}
