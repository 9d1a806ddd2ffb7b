package testutil

import (
	"context"
	"time"

	"github.com/haltia/matrix-ci/internal/service"
	"github.com/haltia/matrix-ci/internal/store"
	"github.com/haltia/matrix-ci/internal/workflow"
	"github.com/stretchr/testify/mock"
)

type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) CreateWorkflow(
	ctx context.Context,
	repository, path, description string,
	source []byte,
) (*store.Workflow, error) {
	args := m.Called(ctx, repository, path, description, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Workflow), args.Error(1)
}

func (m *MockWorkflowService) UpdateWorkflow(
	ctx context.Context,
	workflowID int64,
	repository, path, description string,
	source []byte,
) (*store.Workflow, error) {
	args := m.Called(ctx, workflowID, repository, path, description, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Workflow), args.Error(1)
}

func (m *MockWorkflowService) DeleteWorkflow(ctx context.Context, workflowID int64) error {
	args := m.Called(ctx, workflowID)
	return args.Error(0)
}

func (m *MockWorkflowService) GetWorkflowByID(
	ctx context.Context,
	workflowID int64,
) (*store.Workflow, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Workflow), args.Error(1)
}

func (m *MockWorkflowService) ListWorkflows(ctx context.Context) ([]*store.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Workflow), args.Error(1)
}

func (m *MockWorkflowService) ValidateSource(
	ctx context.Context,
	source []byte,
) (*workflow.Workflow, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Workflow), args.Error(1)
}

func (m *MockWorkflowService) NextRuns(
	ctx context.Context,
	workflowID int64,
	n int,
) ([]time.Time, error) {
	args := m.Called(ctx, workflowID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockWorkflowService) IngestEvent(
	ctx context.Context,
	workflowID int64,
	kind string,
	branch, commitSHA, commitMessage, deliveryID *string,
) (*store.Event, error) {
	args := m.Called(ctx, workflowID, kind, branch, commitSHA, commitMessage, deliveryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Event), args.Error(1)
}

func (m *MockWorkflowService) DispatchEvent(
	ctx context.Context,
	workflowID int64,
	branch *string,
) (*store.Event, error) {
	args := m.Called(ctx, workflowID, branch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Event), args.Error(1)
}

func (m *MockWorkflowService) GetAPIKeyByValue(
	ctx context.Context,
	value string,
) (*store.APIKey, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.APIKey), args.Error(1)
}

func (m *MockWorkflowService) GetEventByID(
	ctx context.Context,
	eventID int64,
) (*store.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Event), args.Error(1)
}

func (m *MockWorkflowService) ListWorkflowEvents(
	ctx context.Context,
	workflowID, limit, offset int64,
) ([]store.Event, int64, error) {
	args := m.Called(ctx, workflowID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]store.Event), args.Get(1).(int64), args.Error(2)
}

func (m *MockWorkflowService) ListEventChecks(
	ctx context.Context,
	eventID int64,
) ([]store.Check, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Check), args.Error(1)
}

func (m *MockWorkflowService) GetEventQueue(id int64) (*service.EventQueue, bool) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*service.EventQueue), args.Bool(1)
}
