package main

import (
	"context"
	"log"

	"github.com/haltia/matrix-ci/internal"
	"github.com/haltia/matrix-ci/internal/handler"
	"github.com/haltia/matrix-ci/internal/security"
	"github.com/haltia/matrix-ci/internal/service"
	"github.com/haltia/matrix-ci/internal/settings"
	"github.com/haltia/matrix-ci/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	internal.InitializeConfiguration()
	settings.ReadDotenv(internal.DotEnvPath)
	settings.Settings = settings.NewSettings()
	hashKey, blockKey := security.NewKeys()

	rdb := store.InitDatabase(true)
	defer rdb.Close()
	rwdb := store.InitDatabase(false)
	defer rwdb.Close()
	store.RunMigrations(rwdb, migrationDialect())

	scheduler := service.NewScheduler()
	defer scheduler.Shutdown()

	userStore := store.NewUserSQLiteStore(rdb, rwdb)
	apiKeyStore := store.NewAPIKeySQLiteStore(rdb, rwdb)
	secretStore := store.NewSecretSQLiteStore(rdb, rwdb)
	workflowStore := store.NewWorkflowSQLiteStore(rdb, rwdb)
	eventStore := store.NewEventSQLiteStore(rdb, rwdb)
	checkStore := store.NewCheckSQLiteStore(rdb, rwdb)
	deliveryStore := store.NewDeliveryStore()
	deliveryStore.ScheduleDailyCleanUp(scheduler)

	cookieSvc := service.NewCookieService(hashKey, blockKey)
	userSvc := service.NewUserService(userStore)
	apiKeySvc := service.NewAPIKeyService(apiKeyStore, service.NewUUIDGen())
	secretSvc := service.NewSecretService(
		secretStore,
		security.NewAESEncrypter(hashKey),
	)
	workflowSvc := service.NewWorkflowService(
		workflowStore,
		eventStore,
		checkStore,
		secretStore,
		apiKeyStore,
		deliveryStore,
		scheduler,
	)
	if err := workflowSvc.InitializeEventQueues(context.Background()); err != nil {
		log.Fatal(err)
	}
	if err := workflowSvc.InitializeSchedules(context.Background()); err != nil {
		log.Fatal(err)
	}
	defer workflowSvc.ShutdownAll()
	scheduler.Start()

	userSvc.InitializeSuperuser(context.Background())

	e := setupEcho()
	router := e.Group("", handler.SessionMiddleware(userSvc, cookieSvc))

	handler.SetupAppRoutes(router)
	handler.SetupAuthRoutes(router, userSvc, cookieSvc)
	handler.SetupUserRoutes(router, userSvc, cookieSvc)
	handler.SetupAPIKeyRoutes(router, apiKeySvc)
	handler.SetupSecretRoutes(router, secretSvc)
	handler.SetupWorkflowRoutes(router, workflowSvc)

	internal.GracefulShutdown(e, settings.Settings.Port)
}

func setupEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(
		middleware.CORSWithConfig(internal.GetCORSConfig()),
		middleware.RateLimiterWithConfig(internal.GetRateLimiterConfig()),
	)
	return e
}

func migrationDialect() string {
	driver, _ := settings.Settings.DatabaseDSN(false)
	if driver == "pgx" {
		return "postgres"
	}
	return "sqlite"
}
