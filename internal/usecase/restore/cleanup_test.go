package restore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/testutils"
)

func TestService_Cleanup_DeletesExistingCopies(t *testing.T) {
	f := newFixture(t)
	f.expectTwoTargets([]string{ordersDB, billingDB, ordersDB + "-restored"}, 30*24*time.Hour)
	f.controlPlane.On("Delete", mock.Anything, named(ordersDB+"-restored")).Return(nil)

	result, err := f.svc.Cleanup(testutils.TestContext(t), staging, "", false)
	require.NoError(t, err)

	assert.Equal(t, []string{ordersDB + "-restored"}, result.Deleted)
	assert.Empty(t, result.Failed)
	f.controlPlane.AssertNumberOfCalls(t, "Delete", 1)
}

func TestService_Cleanup_NothingToDelete(t *testing.T) {
	f := newFixture(t)
	f.expectTwoTargets([]string{ordersDB, billingDB}, 30*24*time.Hour)

	result, err := f.svc.Cleanup(testutils.TestContext(t), staging, "", false)
	require.NoError(t, err)

	assert.Empty(t, result.Deleted)
	f.controlPlane.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestService_Cleanup_DryRunPlansOnly(t *testing.T) {
	f := newFixture(t)
	f.expectTwoTargets([]string{ordersDB + "-restored", billingDB + "-restored"}, 30*24*time.Hour)

	result, err := f.svc.Cleanup(testutils.TestContext(t), staging, "", true)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Len(t, result.Deleted, 2)
	assert.Len(t, result.PlannedActions, 2)
	f.controlPlane.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestService_Cleanup_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.expectTwoTargets([]string{ordersDB + "-restored", billingDB + "-restored"}, 30*24*time.Hour)
	f.controlPlane.On("Delete", mock.Anything, named(ordersDB+"-restored")).Return(errors.New("locked"))
	f.controlPlane.On("Delete", mock.Anything, named(billingDB+"-restored")).Return(nil)

	result, err := f.svc.Cleanup(testutils.TestContext(t), staging, "", false)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "locked")
	assert.Equal(t, []string{billingDB + "-restored"}, result.Deleted)
	assert.Equal(t, []string{ordersDB + "-restored"}, result.Failed)
}
