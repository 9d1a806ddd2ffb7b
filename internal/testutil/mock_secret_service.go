package testutil

import (
	"context"

	"github.com/haltia/matrix-ci/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockSecretService struct {
	mock.Mock
}

func (m *MockSecretService) CreateSecret(
	ctx context.Context,
	name, description, value string,
) (*store.Secret, error) {
	args := m.Called(ctx, name, description, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Secret), args.Error(1)
}

func (m *MockSecretService) GetSecretByID(
	ctx context.Context,
	secretID int64,
) (*store.Secret, error) {
	args := m.Called(ctx, secretID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Secret), args.Error(1)
}

func (m *MockSecretService) ListSecrets(ctx context.Context) ([]*store.Secret, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Secret), args.Error(1)
}

func (m *MockSecretService) UpdateSecretValue(
	ctx context.Context,
	secretID int64,
	value string,
) error {
	args := m.Called(ctx, secretID, value)
	return args.Error(0)
}

func (m *MockSecretService) DeleteSecret(ctx context.Context, secretID int64) error {
	args := m.Called(ctx, secretID)
	return args.Error(0)
}
