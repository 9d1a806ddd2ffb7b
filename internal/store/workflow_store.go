package store

import (
	"context"
	"time"
)

type Workflow struct {
	WorkflowID int64 `json:"workflow_id"`
	// Display name, denormalized from the manifest for listings.
	Name string `json:"name"`
	// Git repository the manifest belongs to
	Repository string `json:"repository"`
	// Manifest path within the repository
	Path        string `json:"path"`
	Description string `json:"description"`
	// Raw manifest document
	Source    string    `json:"source"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

type WorkflowStore interface {
	CreateWorkflow(
		context.Context,
		string,
		string,
		string,
		string,
		string,
	) (*Workflow, error)
	ReadWorkflowByID(context.Context, int64) (*Workflow, error)
	UpdateWorkflow(context.Context, int64, string, string, string, string, string) error
	DeleteWorkflow(context.Context, int64) error
	ListWorkflows(context.Context) ([]*Workflow, error)
}
