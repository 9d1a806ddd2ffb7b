package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/haltia/matrix-ci/internal/store"
	"github.com/labstack/echo/v4"
)

type SecretServicer interface {
	CreateSecret(
		ctx context.Context,
		name, description, value string,
	) (*store.Secret, error)
	GetSecretByID(ctx context.Context, secretID int64) (*store.Secret, error)
	ListSecrets(ctx context.Context) ([]*store.Secret, error)
	UpdateSecretValue(ctx context.Context, secretID int64, value string) error
	DeleteSecret(ctx context.Context, secretID int64) error
}

func SetupSecretRoutes(g *echo.Group, secretService SecretServicer) {
	h := NewSecretHandler(secretService)
	secretsGroup := g.Group("/api/secrets", IsAuthenticated, RoleMiddleware(store.Admin))
	secretsGroup.GET("", h.GetSecrets)
	secretsGroup.POST("", h.PostSecret)
	secretsGroup.GET("/:secret_id", h.GetSecret)
	// values are write-only over HTTP, decryption stays internal
	secretsGroup.PATCH("/:secret_id/value", h.PatchSecretValue)
	secretsGroup.DELETE("/:secret_id", h.DeleteSecret)
}

type SecretHandler struct {
	secretService SecretServicer
}

func NewSecretHandler(secretService SecretServicer) *SecretHandler {
	return &SecretHandler{secretService}
}

func (h *SecretHandler) GetSecrets(c echo.Context) error {
	secrets, err := h.secretService.ListSecrets(c.Request().Context())
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to list secrets")
	}
	return c.JSON(http.StatusOK, secrets)
}

func (h *SecretHandler) PostSecret(c echo.Context) error {
	sp := new(SecretParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid secret data")
	}
	if sp.Name == "" {
		return newError(nil, http.StatusBadRequest, "secret name is required")
	}

	sec, err := h.secretService.CreateSecret(
		c.Request().Context(),
		sp.Name,
		sp.Description,
		sp.Value,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return newError(
				err,
				http.StatusConflict,
				fmt.Sprintf("a secret named '%s' already exists", sp.Name),
			)
		}
		return newError(err, http.StatusInternalServerError, "unable to create secret")
	}

	return c.JSON(http.StatusCreated, sec)
}

func (h *SecretHandler) GetSecret(c echo.Context) error {
	sp := new(SecretParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid secret data")
	}

	sec, err := h.secretService.GetSecretByID(c.Request().Context(), sp.SecretID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(err, http.StatusNotFound, "secret not found")
		}
		return newError(err, http.StatusInternalServerError, "something went wrong")
	}

	return c.JSON(http.StatusOK, sec)
}

func (h *SecretHandler) PatchSecretValue(c echo.Context) error {
	sp := new(SecretParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid secret data")
	}

	if err := h.secretService.UpdateSecretValue(
		c.Request().Context(), sp.SecretID, sp.Value,
	); err != nil {
		return newError(err, http.StatusInternalServerError, "unable to update secret value")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *SecretHandler) DeleteSecret(c echo.Context) error {
	sp := new(SecretParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid secret data")
	}

	if err := h.secretService.DeleteSecret(c.Request().Context(), sp.SecretID); err != nil {
		return newError(err, http.StatusInternalServerError, "unable to delete secret")
	}

	return c.NoContent(http.StatusNoContent)
}
