package handler

import (
	"net/http"
	"time"

	"github.com/haltia/matrix-ci/internal"
	"github.com/haltia/matrix-ci/internal/store"
	"github.com/labstack/echo/v4"
)

func SetupAppRoutes(g *echo.Group) {
	g.GET("/healthz", GetHealthz)
	configGroup := g.Group("/api/config", IsAuthenticated, RoleMiddleware(store.Admin))
	configGroup.GET("", GetConfig)
	configGroup.POST("", PostConfig)
}

func GetHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, internal.Config)
}

// PostConfig replaces the runtime configuration and persists it.
// Queue sizes of existing event queues are unaffected until restart.
func PostConfig(c echo.Context) error {
	cp := new(ConfigParams)
	if err := c.Bind(cp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid config data")
	}

	config := &internal.Configuration{
		SessionExpiresHours: internal.HoursDuration(
			time.Duration(cp.SessionExpiresHours) * time.Hour,
		),
		QueueSize:   cp.QueueSize,
		SkipMarkers: cp.SkipMarkers,
	}

	if err := internal.UpdateConfiguration(config); err != nil {
		return newError(
			err,
			http.StatusInternalServerError,
			"unable to update configuration file",
		)
	}

	return c.JSON(http.StatusOK, internal.Config)
}
