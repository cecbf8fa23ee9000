package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/envrefresh/internal/domain"
)

// MockEnvironmentController is a mock implementation of out.EnvironmentController
type MockEnvironmentController struct {
	mock.Mock
}

func (m *MockEnvironmentController) Stop(ctx context.Context, env domain.EnvironmentRef) (int, error) {
	args := m.Called(ctx, env)
	return args.Int(0), args.Error(1)
}

func (m *MockEnvironmentController) Start(ctx context.Context, env domain.EnvironmentRef) (int, error) {
	args := m.Called(ctx, env)
	return args.Int(0), args.Error(1)
}

// MockPermissionGranter is a mock implementation of out.PermissionGranter
type MockPermissionGranter struct {
	mock.Mock
}

func (m *MockPermissionGranter) Grant(ctx context.Context, env domain.EnvironmentRef, account string) (int, error) {
	args := m.Called(ctx, env, account)
	return args.Int(0), args.Error(1)
}
