package store

import (
	"database/sql"
	"log"

	assets "github.com/haltia/matrix-ci"
	"github.com/haltia/matrix-ci/internal"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded migrations with the given goose
// dialect, "sqlite" or "postgres".
func RunMigrations(db *sql.DB, dialect string) {
	goose.SetBaseFS(assets.MigrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		log.Fatal(err)
	}
	if err := goose.Up(db, internal.MigrationsDir); err != nil {
		log.Fatal(err)
	}
}
