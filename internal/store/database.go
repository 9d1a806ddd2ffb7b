package store

import (
	"database/sql"
	"log"
	"runtime"
	"time"

	"github.com/haltia/matrix-ci/internal"
	"github.com/haltia/matrix-ci/internal/settings"
	"github.com/haltia/matrix-ci/internal/util"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// InitDatabase opens the configured database. sqlite writers are capped
// at a single connection so the WAL never sees concurrent writes; the
// postgres driver manages its own pool.
func InitDatabase(readonly bool) *sql.DB {
	driver, dsn := settings.Settings.DatabaseDSN(readonly)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Fatal("fatal error opening database:", err)
	}

	if driver != "sqlite" {
		return db
	}

	if readonly {
		db.SetMaxOpenConns(max(4, runtime.NumCPU()))
	} else {
		if _, err := db.Exec("PRAGMA temp_store=memory"); err != nil {
			log.Fatal(err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			log.Fatal(err)
		}
		db.SetMaxOpenConns(1)
	}

	return db
}

// Timestamps are bound as text in the same layout current_timestamp
// produces, so comparisons inside sql stay lexicographic-safe.
func formatTime(t time.Time) string {
	return t.UTC().Format(internal.DBTimestampLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return util.AsPtr(formatTime(*t))
}
