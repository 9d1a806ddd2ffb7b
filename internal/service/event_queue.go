package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/haltia/matrix-ci/internal"
	"github.com/haltia/matrix-ci/internal/store"
	"github.com/haltia/matrix-ci/internal/util"
	"github.com/haltia/matrix-ci/internal/workflow"
)

func NewEventQueue(
	workflowStore WorkflowReader,
	eventStore EventStore,
	checkStore CheckStore,
	size int64,
) *EventQueue {
	return &EventQueue{
		workflowStore:    workflowStore,
		eventStore:       eventStore,
		checkStore:       checkStore,
		StatusSSEClients: NewSSEClientMap[store.Event](),
		CheckSSEClients:  NewSSEClientMap[store.Check](),
		queue:            make(chan *store.Event, size),
		done:             make(chan struct{}),
	}
}

// EventQueue turns queued events into recorded plans, one event at a
// time. Status transitions and planned checks are fanned out to SSE
// subscribers as they happen.
type EventQueue struct {
	workflowStore WorkflowReader
	eventStore    EventStore
	checkStore    CheckStore

	StatusSSEClients *SSEClientMap[store.Event]
	CheckSSEClients  *SSEClientMap[store.Check]

	queue chan *store.Event
	done  chan struct{}
	mu    sync.Mutex
}

func (eq *EventQueue) Enqueue(e *store.Event) error {
	select {
	case eq.queue <- e:
		return nil
	default:
		return NewErrEventQueueFull()
	}
}

func (eq *EventQueue) Run() {
	for {
		select {
		case event := <-eq.queue:
			if err := eq.processEvent(context.Background(), event); err != nil {
				now := time.Now().UTC()
				if sqlErr := eq.eventStore.UpdateEventPlanned(
					context.Background(),
					event.EventID,
					store.EventFailed,
					false,
					util.AsPtr(err.Error()),
					&now,
				); sqlErr != nil {
					log.Println("err updating event status to failed:", errors.Join(err, sqlErr))
				}
				log.Println("err planning event:", err)
				if e, readErr := eq.eventStore.ReadEventByID(
					context.Background(),
					event.EventID,
				); readErr == nil {
					eq.StatusSSEClients.SendToClients(*e)
				}
			}
		case <-eq.done:
			// the queue channel stays open, a late Enqueue must not
			// hit a closed channel
			return
		}
	}
}

func (eq *EventQueue) Shutdown() {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	select {
	case <-eq.done:
	default:
		close(eq.done)
	}
}

func (eq *EventQueue) processEvent(ctx context.Context, event *store.Event) error {
	w, err := eq.workflowStore.ReadWorkflowByID(ctx, event.EventWorkflowID)
	if err != nil {
		return err
	}
	wf, err := workflow.Parse([]byte(w.Source))
	if err != nil {
		return err
	}

	plan, err := wf.Evaluate(planEvent(event), workflow.PlanOptions{
		SkipMarkers: internal.Config.SkipMarkers,
	})
	if err != nil {
		return err
	}

	checks := make([]*store.Check, 0, len(plan.Checks))
	for _, pc := range plan.Checks {
		combination, err := json.Marshal(combinationObject(pc.Instance.Combination))
		if err != nil {
			return err
		}
		check := &store.Check{
			CheckEventID: event.EventID,
			JobID:        pc.Instance.JobID,
			Name:         pc.Instance.Name,
			RunsOn:       pc.Instance.RunsOn,
			Combination:  combination,
			Status:       pc.Status,
		}
		if pc.Reason != "" {
			check.Reason = util.AsPtr(pc.Reason)
		}
		checks = append(checks, check)
	}
	if err := eq.checkStore.CreateChecks(ctx, checks); err != nil {
		return err
	}

	var reason *string
	if plan.Reason != "" {
		reason = util.AsPtr(plan.Reason)
	}
	now := time.Now().UTC()
	if err := eq.eventStore.UpdateEventPlanned(
		ctx,
		event.EventID,
		store.EventPlanned,
		plan.Triggered,
		reason,
		&now,
	); err != nil {
		return err
	}

	e, err := eq.eventStore.ReadEventByID(ctx, event.EventID)
	if err != nil {
		return err
	}
	eq.StatusSSEClients.SendToClients(*e)
	for _, c := range checks {
		eq.CheckSSEClients.SendToClients(*c)
	}
	return nil
}

func planEvent(event *store.Event) workflow.Event {
	e := workflow.Event{Kind: workflow.EventKind(event.Kind)}
	if event.Branch != nil {
		e.Branch = *event.Branch
	}
	if event.CommitSHA != nil {
		e.CommitSHA = *event.CommitSHA
	}
	if event.CommitMessage != nil {
		e.CommitMessage = *event.CommitMessage
	}
	if event.Cron != nil {
		e.Cron = *event.Cron
	}
	return e
}

func combinationObject(combination workflow.Combination) map[string]string {
	obj := make(map[string]string, len(combination))
	for _, av := range combination {
		obj[av.Axis] = av.Value
	}
	return obj
}
