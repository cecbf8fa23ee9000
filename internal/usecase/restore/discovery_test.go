package restore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/testutils"
)

func TestService_Discover_FiltersAndSorts(t *testing.T) {
	f := newFixture(t)

	master := dbResource("orders")
	master.Name = "master"
	restored := dbResource("orders")
	restored.Name = ordersDB + "-restored"
	misnamed := dbResource("search")
	misnamed.Name = "legacy-search-db"
	untagged := dbResource("audit")
	delete(untagged.Tags, domain.TagService)

	f.directory.On("Find", mock.Anything, domain.EnvironmentFilter(staging)).Return([]domain.Resource{
		dbResource("orders"), master, restored, misnamed, untagged, dbResource("billing"),
	}, nil)

	targets, err := f.svc.Discover(testutils.TestContext(t), staging, "")
	require.NoError(t, err)

	require.Len(t, targets, 2)
	assert.Equal(t, billingDB, targets[0].BaseName)
	assert.Equal(t, billingDB+"-restored", targets[0].DerivedName)
	assert.Equal(t, "billing", targets[0].ServiceTag)
	assert.Equal(t, ordersDB, targets[1].BaseName)
}

func TestService_Discover_ProductNarrowsFilter(t *testing.T) {
	f := newFixture(t)

	filter := domain.EnvironmentFilter(staging)
	filter[domain.TagProduct] = "acme"
	f.directory.On("Find", mock.Anything, filter).Return([]domain.Resource{dbResource("orders")}, nil)

	targets, err := f.svc.Discover(testutils.TestContext(t), staging, "acme")
	require.NoError(t, err)
	assert.Len(t, targets, 1)
}

func TestService_Discover_NoTargetsIsPrerequisite(t *testing.T) {
	f := newFixture(t)
	f.directory.On("Find", mock.Anything, mock.Anything).Return([]domain.Resource{}, nil)

	_, err := f.svc.Discover(testutils.TestContext(t), staging, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoRestoreTargets)
	assert.Equal(t, domain.CategoryPrerequisite, domain.CategoryOf(err))
	assert.True(t, domain.IsFatal(err))
}

func TestService_Discover_UnauthorizedIsAuthentication(t *testing.T) {
	f := newFixture(t)
	f.directory.On("Find", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)

	_, err := f.svc.Discover(testutils.TestContext(t), staging, "")
	require.Error(t, err)
	assert.Equal(t, domain.CategoryAuthentication, domain.CategoryOf(err))
	assert.Equal(t, domain.ExitAuthentication, domain.ExitCodeFor(err))
}

func TestService_Discover_DirectoryErrorIsGeneral(t *testing.T) {
	f := newFixture(t)
	f.directory.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout"))

	_, err := f.svc.Discover(testutils.TestContext(t), staging, "")
	require.Error(t, err)
	assert.Equal(t, domain.CategoryGeneral, domain.CategoryOf(err))
}

func TestService_Discover_RequiresEnvironment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Discover(testutils.TestContext(t), domain.EnvironmentRef{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidParam)
	f.directory.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}
