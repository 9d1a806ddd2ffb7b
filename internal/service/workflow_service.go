package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/haltia/matrix-ci/internal"
	"github.com/haltia/matrix-ci/internal/store"
	"github.com/haltia/matrix-ci/internal/workflow"
)

type WorkflowWriter interface {
	CreateWorkflow(
		context.Context,
		string,
		string, string, string, string,
	) (*store.Workflow, error)
	UpdateWorkflow(context.Context, int64, string, string, string, string, string) error
	DeleteWorkflow(context.Context, int64) error
}

type WorkflowReader interface {
	ReadWorkflowByID(context.Context, int64) (*store.Workflow, error)
	ListWorkflows(context.Context) ([]*store.Workflow, error)
}

type WorkflowStore interface {
	WorkflowWriter
	WorkflowReader
}

type EventWriter interface {
	CreateEvent(
		context.Context,
		int64,
		string,
		*string, *string, *string, *string, *string,
	) (*store.Event, error)
	UpdateEventPlanned(context.Context, int64, store.EventStatus, bool, *string, *time.Time) error
	DeleteEvent(context.Context, int64) error
}

type EventReader interface {
	ReadEventByID(context.Context, int64) (*store.Event, error)
	ListWorkflowEventsPaginated(context.Context, int64, int64, int64) ([]store.Event, error)
	CountWorkflowEvents(context.Context, int64) (int64, error)
}

type EventStore interface {
	EventWriter
	EventReader
}

type CheckWriter interface {
	CreateChecks(context.Context, []*store.Check) error
}

type CheckReader interface {
	ListEventChecks(context.Context, int64) ([]store.Check, error)
	CountEventChecks(context.Context, int64, workflow.CheckStatus) (int64, error)
}

type CheckStore interface {
	CheckWriter
	CheckReader
}

type SecretNameReader interface {
	ListSecretNames(context.Context) ([]string, error)
}

type APIKeyReader interface {
	ReadAPIKeyByValue(context.Context, string) (*store.APIKey, error)
}

type DeliveryStore interface {
	Add(string, time.Time) error
	Seen(string) (bool, error)
}

type WorkflowService struct {
	workflowStore WorkflowStore
	eventStore    EventStore
	checkStore    CheckStore
	secretStore   SecretNameReader
	apiKeyStore   APIKeyReader
	deliveryStore DeliveryStore
	scheduler     gocron.Scheduler

	mu        sync.Mutex
	queues    map[int64]*EventQueue
	schedules map[int64][]uuid.UUID
}

func NewWorkflowService(
	workflowStore WorkflowStore,
	eventStore EventStore,
	checkStore CheckStore,
	secretStore SecretNameReader,
	apiKeyStore APIKeyReader,
	deliveryStore DeliveryStore,
	scheduler gocron.Scheduler,
) *WorkflowService {
	return &WorkflowService{
		workflowStore: workflowStore,
		eventStore:    eventStore,
		checkStore:    checkStore,
		secretStore:   secretStore,
		apiKeyStore:   apiKeyStore,
		deliveryStore: deliveryStore,
		scheduler:     scheduler,
		queues:        make(map[int64]*EventQueue),
		schedules:     make(map[int64][]uuid.UUID),
	}
}

func (s *WorkflowService) InitializeEventQueues(ctx context.Context) error {
	workflows, err := s.ListWorkflows(ctx)
	if err != nil {
		return err
	}

	ids := make([]int64, len(workflows))
	for i, w := range workflows {
		ids[i] = w.WorkflowID
	}

	s.AddEventQueues(ids, internal.Config.QueueSize)
	s.StartEventQueues()
	return nil
}

// InitializeSchedules registers the cron triggers of every stored
// workflow. A manifest that no longer parses is logged and skipped so
// one broken workflow does not keep the rest from being scheduled.
func (s *WorkflowService) InitializeSchedules(ctx context.Context) error {
	workflows, err := s.ListWorkflows(ctx)
	if err != nil {
		return err
	}
	for _, w := range workflows {
		if err := s.ScheduleWorkflow(w); err != nil {
			log.Printf("err scheduling workflow %d: %+v\n", w.WorkflowID, err)
		}
	}
	return nil
}

// ValidateSource parses and validates a manifest, then checks that
// every referenced secret is defined on the hub.
func (s *WorkflowService) ValidateSource(
	ctx context.Context,
	source []byte,
) (*workflow.Workflow, error) {
	wf, err := workflow.ParseAndValidate(source)
	if err != nil {
		return nil, err
	}

	names, err := s.secretStore.ListSecretNames(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	defined := make(map[string]struct{}, len(names))
	for _, name := range names {
		defined[name] = struct{}{}
	}

	issues := make([]string, 0)
	for _, ref := range wf.SecretRefs() {
		if _, ok := defined[ref]; !ok {
			issues = append(issues, fmt.Sprintf("secrets.%s is not defined", ref))
		}
	}
	if len(issues) > 0 {
		return nil, &workflow.ValidationError{Issues: issues}
	}
	return wf, nil
}

func (s *WorkflowService) CreateWorkflow(
	ctx context.Context,
	repository, path, description string,
	source []byte,
) (*store.Workflow, error) {
	wf, err := s.ValidateSource(ctx, source)
	if err != nil {
		return nil, err
	}
	name := wf.Name
	if name == "" {
		name = path
	}
	w, err := s.workflowStore.CreateWorkflow(
		ctx,
		name,
		repository,
		path,
		description,
		string(source),
	)
	if err != nil {
		return nil, err
	}
	s.AddEventQueue(w.WorkflowID, internal.Config.QueueSize)
	if err := s.StartEventQueue(w.WorkflowID); err != nil {
		return w, err
	}
	if err := s.ScheduleWorkflow(w); err != nil {
		return w, err
	}
	return w, nil
}

func (s *WorkflowService) GetWorkflowByID(
	ctx context.Context,
	workflowID int64,
) (*store.Workflow, error) {
	return s.workflowStore.ReadWorkflowByID(ctx, workflowID)
}

func (s *WorkflowService) ListWorkflows(ctx context.Context) ([]*store.Workflow, error) {
	workflows, err := s.workflowStore.ListWorkflows(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return workflows, nil
}

func (s *WorkflowService) UpdateWorkflow(
	ctx context.Context,
	workflowID int64,
	repository, path, description string,
	source []byte,
) (*store.Workflow, error) {
	wf, err := s.ValidateSource(ctx, source)
	if err != nil {
		return nil, err
	}
	name := wf.Name
	if name == "" {
		name = path
	}
	if err := s.workflowStore.UpdateWorkflow(
		ctx,
		workflowID,
		name,
		repository,
		path,
		description,
		string(source),
	); err != nil {
		return nil, err
	}
	w, err := s.workflowStore.ReadWorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	s.RemoveWorkflowSchedule(w.WorkflowID)
	if err := s.ScheduleWorkflow(w); err != nil {
		return w, err
	}
	return w, nil
}

func (s *WorkflowService) DeleteWorkflow(ctx context.Context, workflowID int64) error {
	if err := s.workflowStore.DeleteWorkflow(ctx, workflowID); err != nil {
		return err
	}
	s.RemoveWorkflowSchedule(workflowID)
	s.ShutdownEventQueue(workflowID)
	s.RemoveEventQueue(workflowID)
	return nil
}

// IngestEvent validates, deduplicates and queues an incoming event.
// The returned event is already stored; a full queue is reported to the
// caller while the event stays queued for a later dispatch.
func (s *WorkflowService) IngestEvent(
	ctx context.Context,
	workflowID int64,
	kind string,
	branch, commitSHA, commitMessage, deliveryID *string,
) (*store.Event, error) {
	if _, err := workflow.ParseEventKind(kind); err != nil {
		return nil, err
	}
	if deliveryID != nil {
		seen, err := s.deliveryStore.Seen(*deliveryID)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, ErrDuplicateDelivery{DeliveryID: *deliveryID}
		}
	}

	e, err := s.eventStore.CreateEvent(
		ctx,
		workflowID,
		kind,
		branch,
		commitSHA,
		commitMessage,
		nil,
		deliveryID,
	)
	if err != nil {
		return nil, err
	}
	if deliveryID != nil {
		if err := s.deliveryStore.Add(
			*deliveryID,
			time.Now().UTC().Add(24*time.Hour),
		); err != nil {
			log.Println("err remembering delivery id:", err)
		}
	}

	if err := s.EnqueueEvent(e); err != nil {
		return e, err
	}
	return e, nil
}

func (s *WorkflowService) DispatchEvent(
	ctx context.Context,
	workflowID int64,
	branch *string,
) (*store.Event, error) {
	return s.IngestEvent(
		ctx,
		workflowID,
		string(workflow.EventWorkflowDispatch),
		branch,
		nil,
		nil,
		nil,
	)
}

func (s *WorkflowService) GetEventByID(ctx context.Context, eventID int64) (*store.Event, error) {
	return s.eventStore.ReadEventByID(ctx, eventID)
}

func (s *WorkflowService) ListWorkflowEvents(
	ctx context.Context,
	workflowID, limit, offset int64,
) ([]store.Event, int64, error) {
	events, err := s.eventStore.ListWorkflowEventsPaginated(ctx, workflowID, limit, offset)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, err
	}
	count, err := s.eventStore.CountWorkflowEvents(ctx, workflowID)
	if err != nil {
		return nil, 0, err
	}
	return events, count, nil
}

func (s *WorkflowService) ListEventChecks(
	ctx context.Context,
	eventID int64,
) ([]store.Check, error) {
	checks, err := s.checkStore.ListEventChecks(ctx, eventID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return checks, nil
}

func (s *WorkflowService) GetAPIKeyByValue(
	ctx context.Context,
	value string,
) (*store.APIKey, error) {
	return s.apiKeyStore.ReadAPIKeyByValue(ctx, value)
}

// NextRuns reports the next n times any cron trigger of the workflow
// fires, in UTC and ascending.
func (s *WorkflowService) NextRuns(
	ctx context.Context,
	workflowID int64,
	n int,
) ([]time.Time, error) {
	w, err := s.GetWorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	wf, err := workflow.Parse([]byte(w.Source))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	runs := make([]time.Time, 0, n*len(wf.On.Schedule))
	for _, entry := range wf.On.Schedule {
		times, err := workflow.NextRuns(entry.Cron, now, n)
		if err != nil {
			return nil, err
		}
		runs = append(runs, times...)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Before(runs[j]) })
	if len(runs) > n {
		runs = runs[:n]
	}
	return runs, nil
}

func (s *WorkflowService) ScheduleWorkflow(w *store.Workflow) error {
	if s.scheduler == nil {
		return nil
	}
	wf, err := workflow.Parse([]byte(w.Source))
	if err != nil {
		return err
	}
	jobIDs := make([]uuid.UUID, 0, len(wf.On.Schedule))
	for _, entry := range wf.On.Schedule {
		cron := entry.Cron
		workflowID := w.WorkflowID
		job, err := s.scheduler.NewJob(
			gocron.CronJob(cron, false),
			gocron.NewTask(func() {
				s.ingestScheduleEvent(workflowID, cron)
			}))
		if err != nil {
			return fmt.Errorf("error scheduling workflow job: %w", err)
		}
		jobIDs = append(jobIDs, job.ID())
	}
	s.mu.Lock()
	s.schedules[w.WorkflowID] = jobIDs
	s.mu.Unlock()
	return nil
}

func (s *WorkflowService) ingestScheduleEvent(workflowID int64, cron string) {
	e, err := s.eventStore.CreateEvent(
		context.Background(),
		workflowID,
		string(workflow.EventSchedule),
		nil,
		nil,
		nil,
		&cron,
		nil,
	)
	if err != nil {
		log.Println("err creating schedule event:", err)
		return
	}
	if err := s.EnqueueEvent(e); err != nil {
		log.Println("err enqueueing schedule event:", err)
	}
}

func (s *WorkflowService) RemoveWorkflowSchedule(workflowID int64) {
	s.mu.Lock()
	jobIDs := s.schedules[workflowID]
	delete(s.schedules, workflowID)
	s.mu.Unlock()
	if s.scheduler == nil {
		return
	}
	for _, jobID := range jobIDs {
		if err := s.scheduler.RemoveJob(jobID); err != nil {
			log.Println("unable to remove existing job: ", err)
		}
	}
}

func (s *WorkflowService) AddEventQueues(ids []int64, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.queues[id] = NewEventQueue(s.workflowStore, s.eventStore, s.checkStore, size)
	}
}

func (s *WorkflowService) StartEventQueues() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queues {
		go s.queues[i].Run()
	}
}

func (s *WorkflowService) AddEventQueue(id int64, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[id] = NewEventQueue(s.workflowStore, s.eventStore, s.checkStore, size)
}

func (s *WorkflowService) StartEventQueue(id int64) error {
	eq, ok := s.GetEventQueue(id)
	if !ok {
		return fmt.Errorf("event queue for workflow %d does not exist", id)
	}
	go eq.Run()
	return nil
}

func (s *WorkflowService) GetEventQueue(id int64) (*EventQueue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq, ok := s.queues[id]
	return eq, ok
}

func (s *WorkflowService) RemoveEventQueue(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, id)
}

func (s *WorkflowService) EnqueueEvent(e *store.Event) error {
	eq, ok := s.GetEventQueue(e.EventWorkflowID)
	if !ok {
		return fmt.Errorf("event queue for workflow %d does not exist", e.EventWorkflowID)
	}
	return eq.Enqueue(e)
}

func (s *WorkflowService) ShutdownEventQueue(id int64) {
	eq, ok := s.GetEventQueue(id)
	if !ok {
		return
	}
	eq.Shutdown()
}

func (s *WorkflowService) ShutdownAll() {
	s.mu.Lock()
	queues := make([]*EventQueue, 0, len(s.queues))
	for _, eq := range s.queues {
		queues = append(queues, eq)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, eq := range queues {
		wg.Go(eq.Shutdown)
	}
	wg.Wait()
}
