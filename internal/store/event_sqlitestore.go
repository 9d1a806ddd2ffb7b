package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type EventSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewEventSQLiteStore(rdb, rwdb *sql.DB) *EventSQLiteStore {
	return &EventSQLiteStore{rdb, rwdb}
}

func (store *EventSQLiteStore) CreateEvent(
	ctx context.Context,
	workflowID int64,
	kind string,
	branch, commitSHA, commitMessage, cron, deliveryID *string,
) (*Event, error) {
	e := &Event{
		EventWorkflowID: workflowID,
		Kind:            kind,
		Branch:          branch,
		CommitSHA:       commitSHA,
		CommitMessage:   commitMessage,
		Cron:            cron,
		DeliveryID:      deliveryID,
		Status:          EventQueued,
	}
	query := `insert into events (
		event_workflow_id,
		kind,
		branch,
		commit_sha,
		commit_message,
		cron,
		delivery_id,
		status
	)
	values ($1, $2, $3, $4, $5, $6, $7, $8)
	returning event_id, created_on`
	if err := sqlscan.Get(
		ctx, store.rwdb, e, query,
		e.EventWorkflowID,
		e.Kind,
		e.Branch,
		e.CommitSHA,
		e.CommitMessage,
		e.Cron,
		e.DeliveryID,
		e.Status,
	); err != nil {
		return nil, err
	}
	return e, nil
}

func (store *EventSQLiteStore) ReadEventByID(ctx context.Context, id int64) (*Event, error) {
	e := &Event{EventID: id}
	query := `select
		e.*,
		w.name as workflow_name
	from events e
	join workflows w
	on e.event_workflow_id = w.workflow_id
	where e.event_id = $1`
	if err := sqlscan.Get(ctx, store.rdb, e, query, e.EventID); err != nil {
		return nil, err
	}
	return e, nil
}

func (store *EventSQLiteStore) UpdateEventPlanned(
	ctx context.Context,
	id int64,
	status EventStatus,
	triggered bool,
	reason *string,
	plannedOn *time.Time,
) error {
	query := `update events
	set status = $1,
		triggered = $2,
		reason = $3,
		planned_on = $4
	where event_id = $5`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		status,
		triggered,
		reason,
		formatTimePtr(plannedOn),
		id,
	)
	return err
}

func (store *EventSQLiteStore) DeleteEvent(ctx context.Context, id int64) error {
	query := "delete from events where event_id = $1"
	_, err := store.rwdb.ExecContext(ctx, query, id)
	return err
}

func (store *EventSQLiteStore) ListWorkflowEventsPaginated(
	ctx context.Context,
	workflowID, limit, offset int64,
) ([]Event, error) {
	query := `select
		e.*,
		w.name as workflow_name
	from events e
	join workflows w
	on e.event_workflow_id = w.workflow_id
	where e.event_workflow_id = $1
	order by e.created_on desc, e.event_id desc limit $2 offset $3`
	events := make([]Event, 0)
	err := sqlscan.Select(ctx, store.rdb, &events, query, workflowID, limit, offset)
	return events, err
}

func (store *EventSQLiteStore) CountWorkflowEvents(
	ctx context.Context,
	workflowID int64,
) (int64, error) {
	var count int64
	query := `select count(*) from events where event_workflow_id = $1`
	err := sqlscan.Get(ctx, store.rdb, &count, query, workflowID)
	return count, err
}
