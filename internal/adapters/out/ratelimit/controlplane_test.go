package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	outmocks "github.com/bnema/envrefresh/internal/boundaries/out/mocks"
	"github.com/bnema/envrefresh/internal/domain"
)

type recordingLimiter struct {
	keys []string
	err  error
}

func (r *recordingLimiter) Allow(context.Context, string) bool { return r.err == nil }

func (r *recordingLimiter) Wait(_ context.Context, key string) error {
	r.keys = append(r.keys, key)
	return r.err
}

func TestThrottledControlPlane_WaitsBeforeEveryCall(t *testing.T) {
	next := &outmocks.MockDatabaseControlPlane{}
	limiter := &recordingLimiter{}
	cp := NewThrottledControlPlane(next, limiter)
	ctx := context.Background()

	db := domain.DatabaseRef{SubscriptionID: "sub-1", Server: "sql", Name: "db"}
	pit := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)

	next.On("RestoreAsync", ctx, db, "db-restored", pit).Return(nil)
	next.On("GetStatus", ctx, db).Return(domain.DatabaseOnline, nil)
	next.On("QueryState", ctx, db).Return(domain.DatabaseRestoring, nil)
	next.On("EarliestRestorePoint", ctx, db).Return(pit, nil)
	next.On("ListDatabases", ctx, db).Return([]string{"db"}, nil)
	next.On("Delete", ctx, db).Return(nil)

	require.NoError(t, cp.RestoreAsync(ctx, db, "db-restored", pit))
	status, err := cp.GetStatus(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, domain.DatabaseOnline, status)
	status, err = cp.QueryState(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, domain.DatabaseRestoring, status)
	earliest, err := cp.EarliestRestorePoint(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, pit, earliest)
	names, err := cp.ListDatabases(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"db"}, names)
	require.NoError(t, cp.Delete(ctx, db))

	assert.Len(t, limiter.keys, 6)
	for _, k := range limiter.keys {
		assert.Equal(t, "subscription:sub-1", k)
	}
	next.AssertExpectations(t)
}

func TestThrottledControlPlane_LimiterErrorSkipsCall(t *testing.T) {
	next := &outmocks.MockDatabaseControlPlane{}
	cp := NewThrottledControlPlane(next, &recordingLimiter{err: context.DeadlineExceeded})

	err := cp.RestoreAsync(context.Background(), domain.DatabaseRef{}, "x", time.Now())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	status, err := cp.GetStatus(context.Background(), domain.DatabaseRef{})
	assert.Error(t, err)
	assert.Equal(t, domain.DatabaseUnknown, status)

	next.AssertNotCalled(t, "RestoreAsync", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	next.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
}
