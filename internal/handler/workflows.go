package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/haltia/matrix-ci/internal"
	"github.com/haltia/matrix-ci/internal/service"
	"github.com/haltia/matrix-ci/internal/store"
	"github.com/haltia/matrix-ci/internal/workflow"
	"github.com/labstack/echo/v4"
)

const (
	maxEventsPerPage int64 = 20
	maxNextRuns            = 20
)

func SetupWorkflowRoutes(g *echo.Group, workflowService WorkflowServicer) {
	h := NewWorkflowHandler(workflowService)

	// ingest authenticates with an api key header instead of a session
	g.POST("/hooks/workflows/:workflow_id", h.PostWorkflowHook)

	// stateless lint, takes the manifest in the request body
	g.POST("/api/validate", h.PostValidateManifest, IsAuthenticated)

	workflowsGroup := g.Group("/api/workflows", IsAuthenticated)
	workflowsGroup.GET("", h.GetWorkflows)
	workflowsGroup.POST("", h.PostWorkflow, RoleMiddleware(store.Admin))
	workflowsGroup.GET("/:workflow_id", h.GetWorkflow)
	workflowsGroup.POST("/:workflow_id/validate", h.PostValidateWorkflow)
	workflowsGroup.PATCH("/:workflow_id", h.PatchWorkflow, RoleMiddleware(store.Admin))
	workflowsGroup.DELETE("/:workflow_id", h.DeleteWorkflow, RoleMiddleware(store.Admin))
	workflowsGroup.GET("/:workflow_id/next-runs", h.GetWorkflowNextRuns)
	workflowsGroup.POST(
		"/:workflow_id/dispatch",
		h.PostWorkflowDispatch,
		RoleMiddleware(store.Admin),
	)
	workflowsGroup.GET("/:workflow_id/events", h.GetWorkflowEvents)
	workflowsGroup.GET("/:workflow_id/events/sse", h.GetWorkflowEventsSSE)
	workflowsGroup.GET("/:workflow_id/checks/sse", h.GetWorkflowChecksSSE)

	eventsGroup := g.Group("/api/events", IsAuthenticated)
	eventsGroup.GET("/:event_id", h.GetEvent)
	eventsGroup.GET("/:event_id/checks", h.GetEventChecks)
}

type WorkflowWriter interface {
	CreateWorkflow(
		ctx context.Context,
		repository, path, description string,
		source []byte,
	) (*store.Workflow, error)
	UpdateWorkflow(
		ctx context.Context,
		workflowID int64,
		repository, path, description string,
		source []byte,
	) (*store.Workflow, error)
	DeleteWorkflow(ctx context.Context, workflowID int64) error
}

type WorkflowReader interface {
	GetWorkflowByID(ctx context.Context, workflowID int64) (*store.Workflow, error)
	ListWorkflows(ctx context.Context) ([]*store.Workflow, error)
	ValidateSource(ctx context.Context, source []byte) (*workflow.Workflow, error)
	NextRuns(ctx context.Context, workflowID int64, n int) ([]time.Time, error)
}

type EventIngestor interface {
	IngestEvent(
		ctx context.Context,
		workflowID int64,
		kind string,
		branch, commitSHA, commitMessage, deliveryID *string,
	) (*store.Event, error)
	DispatchEvent(ctx context.Context, workflowID int64, branch *string) (*store.Event, error)
	GetAPIKeyByValue(ctx context.Context, value string) (*store.APIKey, error)
}

type EventReader interface {
	GetEventByID(ctx context.Context, eventID int64) (*store.Event, error)
	ListWorkflowEvents(
		ctx context.Context,
		workflowID, limit, offset int64,
	) ([]store.Event, int64, error)
	ListEventChecks(ctx context.Context, eventID int64) ([]store.Check, error)
	GetEventQueue(id int64) (*service.EventQueue, bool)
}

type WorkflowServicer interface {
	WorkflowWriter
	WorkflowReader
	EventIngestor
	EventReader
}

type WorkflowHandler struct {
	workflowService WorkflowServicer
}

func NewWorkflowHandler(workflowService WorkflowServicer) *WorkflowHandler {
	return &WorkflowHandler{workflowService}
}

func (h *WorkflowHandler) GetWorkflows(c echo.Context) error {
	workflows, err := h.workflowService.ListWorkflows(c.Request().Context())
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to list workflows")
	}
	return c.JSON(http.StatusOK, workflows)
}

func (h *WorkflowHandler) PostWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid workflow data")
	}

	w, err := h.workflowService.CreateWorkflow(
		c.Request().Context(),
		wp.Repository,
		wp.Path,
		wp.Description,
		[]byte(wp.Source),
	)
	if err != nil {
		if e := manifestError(err); e != nil {
			return e
		}
		if isUniqueConstraintError(err) {
			return newError(
				err,
				http.StatusConflict,
				fmt.Sprintf(
					"a workflow for '%s' at '%s' already exists",
					wp.Repository, wp.Path,
				),
			)
		}
		return newError(err, http.StatusInternalServerError, "unable to create workflow")
	}

	return c.JSON(http.StatusCreated, w)
}

// PostValidateManifest checks a manifest without storing it.
func (h *WorkflowHandler) PostValidateManifest(c echo.Context) error {
	vp := new(ValidateManifestParams)
	if err := c.Bind(vp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid manifest data")
	}

	wf, err := h.workflowService.ValidateSource(c.Request().Context(), []byte(vp.Source))
	if err != nil {
		if e := manifestError(err); e != nil {
			return e
		}
		return newError(err, http.StatusInternalServerError, "unable to validate manifest")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"name":    wf.Name,
		"jobs":    len(wf.Jobs),
		"secrets": wf.SecretRefs(),
	})
}

// PostValidateWorkflow re-checks the stored source of a registered workflow.
func (h *WorkflowHandler) PostValidateWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid workflow id")
	}

	w, err := h.workflowService.GetWorkflowByID(c.Request().Context(), wp.WorkflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(err, http.StatusNotFound, "workflow not found")
		}
		return newError(err, http.StatusInternalServerError, "something went wrong")
	}

	wf, err := h.workflowService.ValidateSource(c.Request().Context(), []byte(w.Source))
	if err != nil {
		if e := manifestError(err); e != nil {
			return e
		}
		return newError(err, http.StatusInternalServerError, "unable to validate manifest")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"name":    wf.Name,
		"jobs":    len(wf.Jobs),
		"secrets": wf.SecretRefs(),
	})
}

func (h *WorkflowHandler) GetWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid workflow id")
	}

	w, err := h.workflowService.GetWorkflowByID(c.Request().Context(), wp.WorkflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(err, http.StatusNotFound, "workflow not found")
		}
		return newError(err, http.StatusInternalServerError, "unable to read workflow by id")
	}

	return c.JSON(http.StatusOK, w)
}

func (h *WorkflowHandler) PatchWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid workflow data")
	}

	w, err := h.workflowService.UpdateWorkflow(
		c.Request().Context(),
		wp.WorkflowID,
		wp.Repository,
		wp.Path,
		wp.Description,
		[]byte(wp.Source),
	)
	if err != nil {
		if e := manifestError(err); e != nil {
			return e
		}
		if errors.Is(err, sql.ErrNoRows) {
			return newError(err, http.StatusNotFound, "workflow not found")
		}
		if isUniqueConstraintError(err) {
			return newError(
				err,
				http.StatusConflict,
				fmt.Sprintf(
					"a workflow for '%s' at '%s' already exists",
					wp.Repository, wp.Path,
				),
			)
		}
		return newError(err, http.StatusInternalServerError, "unable to update workflow")
	}

	return c.JSON(http.StatusOK, w)
}

func (h *WorkflowHandler) DeleteWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid workflow id")
	}

	if err := h.workflowService.DeleteWorkflow(
		c.Request().Context(), wp.WorkflowID,
	); err != nil {
		return newError(err, http.StatusInternalServerError, "unable to delete workflow")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *WorkflowHandler) GetWorkflowNextRuns(c echo.Context) error {
	np := new(NextRunsParams)
	if err := c.Bind(np); err != nil {
		return newError(err, http.StatusBadRequest, "invalid workflow id")
	}

	count := np.Count
	if count <= 0 {
		count = 5
	}
	count = min(count, maxNextRuns)

	runs, err := h.workflowService.NextRuns(c.Request().Context(), np.WorkflowID, count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(err, http.StatusNotFound, "workflow not found")
		}
		return newError(err, http.StatusInternalServerError, "unable to compute next runs")
	}

	return c.JSON(http.StatusOK, echo.Map{"next_runs": runs})
}

func (h *WorkflowHandler) PostWorkflowDispatch(c echo.Context) error {
	dp := new(DispatchParams)
	if err := c.Bind(dp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid dispatch data")
	}

	event, err := h.workflowService.DispatchEvent(
		c.Request().Context(), dp.WorkflowID, dp.Branch,
	)
	if err != nil {
		var full *service.ErrEventQueueFull
		if errors.As(err, &full) {
			return newError(err, http.StatusServiceUnavailable, "event queue is full")
		}
		if isForeignKeyConstraintError(err) {
			return newError(err, http.StatusNotFound, "workflow not found")
		}
		return newError(err, http.StatusInternalServerError, "unable to dispatch workflow")
	}

	return c.JSON(http.StatusCreated, event)
}

// PostWorkflowHook ingests a push or pull request event forwarded by a
// repository webhook. Redeliveries are acknowledged without queueing
// the event twice.
func (h *WorkflowHandler) PostWorkflowHook(c echo.Context) error {
	key := c.Request().Header.Get(internal.WebhookKeyHeader)
	if key == "" {
		return newError(nil, http.StatusUnauthorized, "missing api key")
	}
	if _, err := h.workflowService.GetAPIKeyByValue(c.Request().Context(), key); err != nil {
		return newError(err, http.StatusUnauthorized, "invalid api key")
	}

	hp := new(HookEventParams)
	if err := c.Bind(hp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid event data")
	}

	var deliveryID *string
	if v := c.Request().Header.Get(internal.WebhookDeliveryHeader); v != "" {
		deliveryID = &v
	}

	event, err := h.workflowService.IngestEvent(
		c.Request().Context(),
		hp.WorkflowID,
		hp.Kind,
		hp.Branch,
		hp.CommitSHA,
		hp.CommitMessage,
		deliveryID,
	)
	if err != nil {
		var dup service.ErrDuplicateDelivery
		if errors.As(err, &dup) || isUniqueConstraintError(err) {
			return c.JSON(http.StatusOK, echo.Map{"message": "delivery already processed"})
		}
		var full *service.ErrEventQueueFull
		if errors.As(err, &full) {
			return newError(err, http.StatusServiceUnavailable, "event queue is full")
		}
		if errors.Is(err, workflow.ErrUnsupportedEventKind) {
			return newError(err, http.StatusBadRequest, "unsupported event kind")
		}
		if isForeignKeyConstraintError(err) {
			return newError(err, http.StatusNotFound, "workflow not found")
		}
		return newError(err, http.StatusInternalServerError, "unable to ingest event")
	}

	return c.JSON(http.StatusAccepted, event)
}

func (h *WorkflowHandler) GetWorkflowEvents(c echo.Context) error {
	lep := new(ListEventsParams)
	if err := c.Bind(lep); err != nil {
		return newError(err, http.StatusBadRequest, "invalid request data")
	}

	page := max(lep.Page, 1)
	events, count, err := h.workflowService.ListWorkflowEvents(
		c.Request().Context(),
		lep.WorkflowID,
		maxEventsPerPage,
		(page-1)*maxEventsPerPage,
	)
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to list workflow events")
	}

	maxPages := (count + maxEventsPerPage - 1) / maxEventsPerPage
	return c.JSON(http.StatusOK, echo.Map{
		"events": events,
		"page":   page,
		"pages":  maxPages,
		"total":  count,
	})
}

func (h *WorkflowHandler) GetEvent(c echo.Context) error {
	ep := new(EventParams)
	if err := c.Bind(ep); err != nil {
		return newError(err, http.StatusBadRequest, "invalid event id")
	}

	event, err := h.workflowService.GetEventByID(c.Request().Context(), ep.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(err, http.StatusNotFound, "event not found")
		}
		return newError(err, http.StatusInternalServerError, "unable to read event by id")
	}

	return c.JSON(http.StatusOK, event)
}

func (h *WorkflowHandler) GetEventChecks(c echo.Context) error {
	ep := new(EventParams)
	if err := c.Bind(ep); err != nil {
		return newError(err, http.StatusBadRequest, "invalid event id")
	}

	checks, err := h.workflowService.ListEventChecks(c.Request().Context(), ep.EventID)
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to list event checks")
	}

	return c.JSON(http.StatusOK, checks)
}

func (h *WorkflowHandler) GetWorkflowEventsSSE(c echo.Context) error {
	sp := new(SSEParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid workflow id")
	}

	eq, ok := h.workflowService.GetEventQueue(sp.WorkflowID)
	if !ok {
		return newError(nil, http.StatusNotFound, "workflow not found")
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := uuid.NewString()
	eq.StatusSSEClients.AddClient(id)
	defer eq.StatusSSEClients.RemoveClient(id)

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case event := <-eq.StatusSSEClients.GetClient(id):
			ev, err := jsonEvent(event.EventID, "event-status", event)
			if err != nil {
				log.Println("err marshaling event status:", err)
				continue
			}
			if err := ev.MarshalTo(w); err != nil {
				log.Println("err writing event data:", err)
				continue
			}
			w.Flush()
		default:
			time.Sleep(3 * time.Second)
		}
	}
}

func (h *WorkflowHandler) GetWorkflowChecksSSE(c echo.Context) error {
	sp := new(SSEParams)
	if err := c.Bind(sp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid workflow id")
	}

	eq, ok := h.workflowService.GetEventQueue(sp.WorkflowID)
	if !ok {
		return newError(nil, http.StatusNotFound, "workflow not found")
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := uuid.NewString()
	eq.CheckSSEClients.AddClient(id)
	defer eq.CheckSSEClients.RemoveClient(id)

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case check := <-eq.CheckSSEClients.GetClient(id):
			ev, err := jsonEvent(check.CheckID, "check", check)
			if err != nil {
				log.Println("err marshaling check:", err)
				continue
			}
			if err := ev.MarshalTo(w); err != nil {
				log.Println("err writing check data:", err)
				continue
			}
			w.Flush()
		default:
			time.Sleep(3 * time.Second)
		}
	}
}
