package store

import (
	"context"
	"time"
)

type EventStatus string

const (
	EventQueued  EventStatus = "queued"
	EventPlanned EventStatus = "planned"
	EventFailed  EventStatus = "failed"
)

type Event struct {
	EventID         int64 `json:"event_id" param:"event_id"`
	EventWorkflowID int64 `json:"event_workflow_id"`
	// push, pull_request, schedule or workflow_dispatch
	Kind          string      `json:"kind"`
	Branch        *string     `json:"branch"`
	CommitSHA     *string     `json:"commit_sha"`
	CommitMessage *string     `json:"commit_message"`
	Cron          *string     `json:"cron"`
	DeliveryID    *string     `json:"delivery_id"`
	Status        EventStatus `json:"status"`
	Triggered     bool        `json:"triggered"`
	Reason        *string     `json:"reason"`
	CreatedOn     time.Time   `json:"created_on"`
	PlannedOn     *time.Time  `json:"planned_on"`

	WorkflowName string `json:"workflow_name"`
}

type EventStore interface {
	CreateEvent(
		context.Context,
		int64,
		string,
		*string,
		*string,
		*string,
		*string,
		*string,
	) (*Event, error)
	ReadEventByID(context.Context, int64) (*Event, error)
	UpdateEventPlanned(context.Context, int64, EventStatus, bool, *string, *time.Time) error
	DeleteEvent(context.Context, int64) error
	ListWorkflowEventsPaginated(context.Context, int64, int64, int64) ([]Event, error)
	CountWorkflowEvents(context.Context, int64) (int64, error)
}
