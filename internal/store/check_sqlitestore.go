package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/haltia/matrix-ci/internal/workflow"
)

type CheckSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewCheckSQLiteStore(rdb, rwdb *sql.DB) *CheckSQLiteStore {
	return &CheckSQLiteStore{rdb, rwdb}
}

// CreateChecks inserts all checks of a plan in a single transaction, so
// an event never ends up with a partial set.
func (store *CheckSQLiteStore) CreateChecks(ctx context.Context, checks []*Check) error {
	tx, err := store.rwdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `insert into checks (
		check_event_id,
		job_id,
		name,
		runs_on,
		combination,
		status,
		reason
	)
	values ($1, $2, $3, $4, $5, $6, $7)
	returning check_id, created_on`
	for _, c := range checks {
		if err := sqlscan.Get(
			ctx, tx, c, query,
			c.CheckEventID,
			c.JobID,
			c.Name,
			c.RunsOn,
			string(c.Combination),
			c.Status,
			c.Reason,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (store *CheckSQLiteStore) ListEventChecks(
	ctx context.Context,
	eventID int64,
) ([]Check, error) {
	query := `select * from checks
	where check_event_id = $1
	order by check_id`
	checks := make([]Check, 0)
	err := sqlscan.Select(ctx, store.rdb, &checks, query, eventID)
	return checks, err
}

func (store *CheckSQLiteStore) CountEventChecks(
	ctx context.Context,
	eventID int64,
	status workflow.CheckStatus,
) (int64, error) {
	var count int64
	query := `select count(*) from checks
	where check_event_id = $1 and status = $2`
	err := sqlscan.Get(ctx, store.rdb, &count, query, eventID, status)
	return count, err
}
