package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/envrefresh/internal/domain"
)

// MockDatabaseControlPlane is a mock implementation of out.DatabaseControlPlane
type MockDatabaseControlPlane struct {
	mock.Mock
}

// Mutating operations
func (m *MockDatabaseControlPlane) RestoreAsync(ctx context.Context, source domain.DatabaseRef, destName string, pointInTime time.Time) error {
	args := m.Called(ctx, source, destName, pointInTime)
	return args.Error(0)
}

func (m *MockDatabaseControlPlane) Delete(ctx context.Context, db domain.DatabaseRef) error {
	args := m.Called(ctx, db)
	return args.Error(0)
}

// Read-only operations
func (m *MockDatabaseControlPlane) GetStatus(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error) {
	args := m.Called(ctx, db)
	return args.Get(0).(domain.DatabaseStatus), args.Error(1)
}

func (m *MockDatabaseControlPlane) QueryState(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error) {
	args := m.Called(ctx, db)
	return args.Get(0).(domain.DatabaseStatus), args.Error(1)
}

func (m *MockDatabaseControlPlane) EarliestRestorePoint(ctx context.Context, db domain.DatabaseRef) (time.Time, error) {
	args := m.Called(ctx, db)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockDatabaseControlPlane) ListDatabases(ctx context.Context, server domain.DatabaseRef) ([]string, error) {
	args := m.Called(ctx, server)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockDatabaseCopier is a mock implementation of out.DatabaseCopier
type MockDatabaseCopier struct {
	mock.Mock
}

func (m *MockDatabaseCopier) ReplaceWithCopy(ctx context.Context, source, destination domain.DatabaseRef) error {
	args := m.Called(ctx, source, destination)
	return args.Error(0)
}
