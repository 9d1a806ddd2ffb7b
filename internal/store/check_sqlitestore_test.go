package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haltia/matrix-ci/internal/util"
	"github.com/haltia/matrix-ci/internal/workflow"
	"github.com/stretchr/testify/assert"
)

func TestCheckSQLiteStore_CreateChecks(t *testing.T) {
	t.Run("success - all checks of a plan are stored", func(t *testing.T) {
		// arrange
		w := createWorkflow(t)
		e := createEvent(t, w)
		checks := []*Check{
			{
				CheckEventID: e.EventID,
				JobID:        "tests",
				Name:         "tests (ubuntu-latest, 3.9)",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{"os":"ubuntu-latest","python":"3.9"}`),
				Status:       workflow.CheckEligible,
			},
			{
				CheckEventID: e.EventID,
				JobID:        "tests",
				Name:         "tests (ubuntu-latest, 3.10)",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{"os":"ubuntu-latest","python":"3.10"}`),
				Status:       workflow.CheckSkipped,
				Reason:       util.AsPtr(`commit message contains "[skip ci]"`),
			},
		}

		// act
		err := checkStore.CreateChecks(context.Background(), checks)

		// assert
		assert.NoError(t, err)
		assert.NotEqual(t, 0, checks[0].CheckID)
		assert.NotEqual(t, 0, checks[1].CheckID)
		assert.False(t, checks[0].CreatedOn.IsZero())
	})
	t.Run("success - empty plan stores nothing", func(t *testing.T) {
		// act
		err := checkStore.CreateChecks(context.Background(), nil)

		// assert
		assert.NoError(t, err)
	})
	t.Run("failure - event is not found and nothing is stored", func(t *testing.T) {
		// arrange
		w := createWorkflow(t)
		e := createEvent(t, w)
		checks := []*Check{
			{
				CheckEventID: e.EventID,
				JobID:        "tests",
				Name:         "tests",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{}`),
				Status:       workflow.CheckEligible,
			},
			{
				CheckEventID: 848484,
				JobID:        "tests",
				Name:         "tests 2",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{}`),
				Status:       workflow.CheckEligible,
			},
		}

		// act
		err := checkStore.CreateChecks(context.Background(), checks)
		stored, listErr := checkStore.ListEventChecks(context.Background(), e.EventID)

		// assert
		assert.Error(t, err)
		assert.NoError(t, listErr)
		assert.Len(t, stored, 0)
	})
}

func TestCheckSQLiteStore_ListEventChecks(t *testing.T) {
	t.Run("success - checks keep their insertion order", func(t *testing.T) {
		// arrange
		w := createWorkflow(t)
		e := createEvent(t, w)
		checks := []*Check{
			{
				CheckEventID: e.EventID,
				JobID:        "docs",
				Name:         "docs",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{}`),
				Status:       workflow.CheckSkipped,
				Reason:       util.AsPtr(`if condition "github.event_name == 'schedule'" is false`),
			},
			{
				CheckEventID: e.EventID,
				JobID:        "tests",
				Name:         "tests (ubuntu-latest, 3.9)",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{"os":"ubuntu-latest","python":"3.9"}`),
				Status:       workflow.CheckEligible,
			},
		}
		assert.NoError(t, checkStore.CreateChecks(context.Background(), checks))

		// act
		stored, err := checkStore.ListEventChecks(context.Background(), e.EventID)

		// assert
		assert.NoError(t, err)
		assert.Len(t, stored, 2)
		assert.Equal(t, "docs", stored[0].JobID)
		assert.Equal(t, "tests", stored[1].JobID)
		assert.Equal(t, workflow.CheckSkipped, stored[0].Status)
		assert.NotNil(t, stored[0].Reason)
		assert.JSONEq(t, `{"os":"ubuntu-latest","python":"3.9"}`, string(stored[1].Combination))
	})
}

func TestCheckSQLiteStore_CountEventChecks(t *testing.T) {
	t.Run("success - counts by status", func(t *testing.T) {
		// arrange
		w := createWorkflow(t)
		e := createEvent(t, w)
		checks := []*Check{
			{
				CheckEventID: e.EventID,
				JobID:        "tests",
				Name:         "tests (3.9)",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{"python":"3.9"}`),
				Status:       workflow.CheckEligible,
			},
			{
				CheckEventID: e.EventID,
				JobID:        "tests",
				Name:         "tests (3.10)",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{"python":"3.10"}`),
				Status:       workflow.CheckEligible,
			},
			{
				CheckEventID: e.EventID,
				JobID:        "docs",
				Name:         "docs",
				RunsOn:       "ubuntu-latest",
				Combination:  json.RawMessage(`{}`),
				Status:       workflow.CheckSkipped,
			},
		}
		assert.NoError(t, checkStore.CreateChecks(context.Background(), checks))

		// act
		eligible, eligibleErr := checkStore.CountEventChecks(
			context.Background(),
			e.EventID,
			workflow.CheckEligible,
		)
		skipped, skippedErr := checkStore.CountEventChecks(
			context.Background(),
			e.EventID,
			workflow.CheckSkipped,
		)

		// assert
		assert.NoError(t, eligibleErr)
		assert.NoError(t, skippedErr)
		assert.Equal(t, int64(2), eligible)
		assert.Equal(t, int64(1), skipped)
	})
}
