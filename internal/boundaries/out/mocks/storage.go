package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/envrefresh/internal/domain"
)

// MockBlobCopier is a mock implementation of out.BlobCopier
type MockBlobCopier struct {
	mock.Mock
}

func (m *MockBlobCopier) Copy(ctx context.Context, source, destination domain.EnvironmentRef, replace bool) (domain.CopyStats, error) {
	args := m.Called(ctx, source, destination, replace)
	return args.Get(0).(domain.CopyStats), args.Error(1)
}

// MockResourceAdjuster is a mock implementation of out.ResourceAdjuster
type MockResourceAdjuster struct {
	mock.Mock
}

func (m *MockResourceAdjuster) Adjust(ctx context.Context, env domain.EnvironmentRef, bindings map[string]string) error {
	args := m.Called(ctx, env, bindings)
	return args.Error(0)
}
