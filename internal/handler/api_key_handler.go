package handler

import (
	"context"
	"net/http"

	"github.com/haltia/matrix-ci/internal/store"
	"github.com/labstack/echo/v4"
)

type APIKeyServicer interface {
	CreateAPIKey(ctx context.Context, description string) (*store.APIKey, error)
	DeleteAPIKey(ctx context.Context, id int64) error
	ListAPIKeys(ctx context.Context) ([]*store.APIKey, error)
}

func SetupAPIKeyRoutes(g *echo.Group, apiKeyService APIKeyServicer) {
	h := NewAPIKeyHandler(apiKeyService)
	keysGroup := g.Group("/api/api-keys", IsAuthenticated, RoleMiddleware(store.Admin))
	keysGroup.GET("", h.GetAPIKeys)
	keysGroup.POST("", h.PostAPIKey)
	keysGroup.DELETE("/:id", h.DeleteAPIKey)
}

type APIKeyHandler struct {
	apiKeyService APIKeyServicer
}

func NewAPIKeyHandler(apiKeyService APIKeyServicer) *APIKeyHandler {
	return &APIKeyHandler{apiKeyService}
}

func (h *APIKeyHandler) GetAPIKeys(c echo.Context) error {
	keys, err := h.apiKeyService.ListAPIKeys(c.Request().Context())
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to list api keys")
	}
	return c.JSON(http.StatusOK, keys)
}

func (h *APIKeyHandler) PostAPIKey(c echo.Context) error {
	akp := new(APIKeyParams)
	if err := c.Bind(akp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid api key data")
	}

	key, err := h.apiKeyService.CreateAPIKey(c.Request().Context(), akp.Description)
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to create api key")
	}

	return c.JSON(http.StatusCreated, key)
}

func (h *APIKeyHandler) DeleteAPIKey(c echo.Context) error {
	akp := new(APIKeyParams)
	if err := c.Bind(akp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid api key data")
	}

	if err := h.apiKeyService.DeleteAPIKey(c.Request().Context(), akp.ID); err != nil {
		return newError(err, http.StatusInternalServerError, "unable to delete api key")
	}

	return c.NoContent(http.StatusNoContent)
}
