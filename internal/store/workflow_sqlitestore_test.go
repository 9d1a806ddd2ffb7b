package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const testManifest = `
name: CI
on:
  push:
    branches: [main]
jobs:
  tests:
    runs-on: ubuntu-latest
    steps:
      - run: echo ok
`

func TestWorkflowSQLiteStore_CreateWorkflow(t *testing.T) {
	t.Run("success - workflow is stored", func(t *testing.T) {
		// arrange
		name := "CI"
		repository := "haltia/website"
		path := ".ci/ci.yaml"
		description := "lint and test matrix"

		// act
		w, err := workflowStore.CreateWorkflow(
			context.Background(),
			name,
			repository,
			path,
			description,
			testManifest,
		)

		// assert
		assert.NoError(t, err)
		assert.NotNil(t, w)
		assert.NotEqual(t, 0, w.WorkflowID)
		assert.Equal(t, name, w.Name)
		assert.Equal(t, repository, w.Repository)
		assert.Equal(t, path, w.Path)
		assert.Equal(t, description, w.Description)
		assert.Equal(t, testManifest, w.Source)
		assert.False(t, w.CreatedOn.IsZero())
		assert.False(t, w.UpdatedOn.IsZero())
	})
	t.Run("failure - repository and path already exist", func(t *testing.T) {
		// arrange
		expectedWorkflow := createWorkflow(t)

		// act
		w, err := workflowStore.CreateWorkflow(
			context.Background(),
			"another name",
			expectedWorkflow.Repository,
			expectedWorkflow.Path,
			"",
			testManifest,
		)

		// assert
		assert.Error(t, err)
		sqliteErr, ok := err.(*sqlite.Error)
		assert.True(t, ok)
		assert.Equal(t, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqliteErr.Code())
		assert.Nil(t, w)
	})
}

func TestWorkflowSQLiteStore_ReadWorkflowByID(t *testing.T) {
	t.Run("success - workflow is found", func(t *testing.T) {
		// arrange
		expectedWorkflow := createWorkflow(t)

		// act
		w, err := workflowStore.ReadWorkflowByID(context.Background(), expectedWorkflow.WorkflowID)

		// assert
		assert.NoError(t, err)
		assert.NotNil(t, w)
		assert.Equal(t, expectedWorkflow.WorkflowID, w.WorkflowID)
		assert.Equal(t, expectedWorkflow.Name, w.Name)
		assert.Equal(t, expectedWorkflow.Source, w.Source)
	})
	t.Run("failure - workflow is not found", func(t *testing.T) {
		// arrange
		var id int64 = 99999

		// act
		w, err := workflowStore.ReadWorkflowByID(context.Background(), id)

		// assert
		assert.Error(t, err)
		assert.True(t, errors.Is(err, sql.ErrNoRows))
		assert.Nil(t, w)
	})
}

func TestWorkflowSQLiteStore_UpdateWorkflow(t *testing.T) {
	t.Run("success - workflow updates", func(t *testing.T) {
		// arrange
		expectedWorkflow := createWorkflow(t)
		updatedSource := testManifest + "\n# revised\n"

		// act
		updateErr := workflowStore.UpdateWorkflow(
			context.Background(),
			expectedWorkflow.WorkflowID,
			"CI revised",
			expectedWorkflow.Repository,
			expectedWorkflow.Path,
			"revised description",
			updatedSource,
		)
		w, readErr := workflowStore.ReadWorkflowByID(
			context.Background(),
			expectedWorkflow.WorkflowID,
		)

		// assert
		assert.NoError(t, updateErr)
		assert.NoError(t, readErr)
		assert.NotNil(t, w)
		assert.Equal(t, "CI revised", w.Name)
		assert.Equal(t, "revised description", w.Description)
		assert.Equal(t, updatedSource, w.Source)
	})
}

func TestWorkflowSQLiteStore_DeleteWorkflow(t *testing.T) {
	t.Run("success - workflow and its events are deleted", func(t *testing.T) {
		// arrange
		expectedWorkflow := createWorkflow(t)
		expectedEvent := createEvent(t, expectedWorkflow)

		// act
		deleteErr := workflowStore.DeleteWorkflow(context.Background(), expectedWorkflow.WorkflowID)
		w, readWorkflowErr := workflowStore.ReadWorkflowByID(
			context.Background(),
			expectedWorkflow.WorkflowID,
		)
		e, readEventErr := eventStore.ReadEventByID(context.Background(), expectedEvent.EventID)

		// assert
		assert.NoError(t, deleteErr)
		assert.Error(t, readWorkflowErr)
		assert.True(t, errors.Is(readWorkflowErr, sql.ErrNoRows))
		assert.Nil(t, w)
		assert.Error(t, readEventErr)
		assert.True(t, errors.Is(readEventErr, sql.ErrNoRows))
		assert.Nil(t, e)
	})
}

func TestWorkflowSQLiteStore_ListWorkflows(t *testing.T) {
	t.Run("success - workflows found", func(t *testing.T) {
		// arrange
		expectedWorkflow := createWorkflow(t)

		// act
		workflows, err := workflowStore.ListWorkflows(context.Background())

		// assert
		assert.NoError(t, err)
		assert.NotNil(t, workflows)
		assert.True(t, len(workflows) >= 1)
		assert.True(t, slices.ContainsFunc(workflows, func(w *Workflow) bool {
			return w.WorkflowID == expectedWorkflow.WorkflowID
		}))
	})
}

func createWorkflow(t *testing.T) *Workflow {
	w, err := workflowStore.CreateWorkflow(
		context.Background(),
		"CI",
		fmt.Sprintf("haltia/repo%d", time.Now().UnixNano()),
		".ci/ci.yaml",
		"test workflow",
		testManifest,
	)
	assert.NoError(t, err)
	return w
}
