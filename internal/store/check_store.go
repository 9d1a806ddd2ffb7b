package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/haltia/matrix-ci/internal/workflow"
)

type Check struct {
	CheckID      int64  `json:"check_id"`
	CheckEventID int64  `json:"check_event_id"`
	JobID        string `json:"job_id"`
	Name         string `json:"name"`
	RunsOn       string `json:"runs_on"`
	// Axis assignments of the instantiation as a JSON object
	Combination json.RawMessage      `json:"combination"`
	Status      workflow.CheckStatus `json:"status"`
	Reason      *string              `json:"reason"`
	CreatedOn   time.Time            `json:"created_on"`
}

type CheckStore interface {
	CreateChecks(context.Context, []*Check) error
	ListEventChecks(context.Context, int64) ([]Check, error)
	CountEventChecks(context.Context, int64, workflow.CheckStatus) (int64, error)
}
