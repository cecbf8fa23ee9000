package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/envrefresh/internal/domain"
)

// MockRestoreService is a mock implementation of in.RestoreService
type MockRestoreService struct {
	mock.Mock
}

func (m *MockRestoreService) Restore(ctx context.Context, cmd domain.RestoreCommand) (*domain.BatchResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockRestoreService) Cleanup(ctx context.Context, env domain.EnvironmentRef, product string, dryRun bool) (*domain.CleanupResult, error) {
	args := m.Called(ctx, env, product, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CleanupResult), args.Error(1)
}

func (m *MockRestoreService) Discover(ctx context.Context, env domain.EnvironmentRef, product string) ([]domain.RestoreTarget, error) {
	args := m.Called(ctx, env, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RestoreTarget), args.Error(1)
}
