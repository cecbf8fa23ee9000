package out

import (
	"context"
	"time"

	"github.com/bnema/envrefresh/internal/domain"
)

// DatabaseControlPlane manages databases on a server.
//
// RestoreAsync and Delete mutate state; every other method is read-only.
// GetStatus is the primary status check, QueryState a secondary path used
// when the primary answer is inconclusive.
type DatabaseControlPlane interface {
	RestoreAsync(ctx context.Context, source domain.DatabaseRef, destName string, pointInTime time.Time) error
	GetStatus(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error)
	QueryState(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error)
	EarliestRestorePoint(ctx context.Context, db domain.DatabaseRef) (time.Time, error)
	ListDatabases(ctx context.Context, server domain.DatabaseRef) ([]string, error)
	Delete(ctx context.Context, db domain.DatabaseRef) error
}

// DatabaseCopier replaces a database with a transactionally consistent
// copy of another one.
type DatabaseCopier interface {
	ReplaceWithCopy(ctx context.Context, source, destination domain.DatabaseRef) error
}
