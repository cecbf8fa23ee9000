package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSecretProvider is a mock implementation of out.SecretProvider
type MockSecretProvider struct {
	mock.Mock
}

func (m *MockSecretProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSecretProvider) GetSecret(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockSecretProvider) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}
