package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/envrefresh/internal/domain"
)

// MockResourceDirectory is a mock implementation of out.ResourceDirectory
type MockResourceDirectory struct {
	mock.Mock
}

func (m *MockResourceDirectory) Find(ctx context.Context, filter domain.TagFilter) ([]domain.Resource, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Resource), args.Error(1)
}
