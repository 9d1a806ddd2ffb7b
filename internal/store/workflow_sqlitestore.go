package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type WorkflowSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewWorkflowSQLiteStore(rdb, rwdb *sql.DB) *WorkflowSQLiteStore {
	return &WorkflowSQLiteStore{rdb, rwdb}
}

func (store *WorkflowSQLiteStore) CreateWorkflow(
	ctx context.Context,
	name, repository, path, description, source string,
) (*Workflow, error) {
	w := &Workflow{
		Name:        name,
		Repository:  repository,
		Path:        path,
		Description: description,
		Source:      source,
	}
	query := `insert into workflows (
		name,
		repository,
		path,
		description,
		source
	)
	values ($1, $2, $3, $4, $5)
	returning workflow_id, created_on, updated_on`
	if err := sqlscan.Get(
		ctx, store.rwdb, w, query,
		w.Name,
		w.Repository,
		w.Path,
		w.Description,
		w.Source,
	); err != nil {
		return nil, err
	}
	return w, nil
}

func (store *WorkflowSQLiteStore) ReadWorkflowByID(
	ctx context.Context,
	id int64,
) (*Workflow, error) {
	w := &Workflow{WorkflowID: id}
	query := "select * from workflows where workflow_id = $1"
	if err := sqlscan.Get(ctx, store.rdb, w, query, w.WorkflowID); err != nil {
		return nil, err
	}
	return w, nil
}

func (store *WorkflowSQLiteStore) UpdateWorkflow(
	ctx context.Context,
	id int64,
	name, repository, path, description, source string,
) error {
	query := `update workflows
	set name = $1,
		repository = $2,
		path = $3,
		description = $4,
		source = $5,
		updated_on = current_timestamp
	where workflow_id = $6`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		name,
		repository,
		path,
		description,
		source,
		id,
	)
	return err
}

func (store *WorkflowSQLiteStore) DeleteWorkflow(ctx context.Context, id int64) error {
	query := "delete from workflows where workflow_id = $1"
	_, err := store.rwdb.ExecContext(ctx, query, id)
	return err
}

func (store *WorkflowSQLiteStore) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	query := "select * from workflows order by repository, path"
	workflows := make([]*Workflow, 0)
	err := sqlscan.Select(ctx, store.rdb, &workflows, query)
	return workflows, err
}
