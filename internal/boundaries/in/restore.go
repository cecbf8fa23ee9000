package in

import (
	"context"

	"github.com/bnema/envrefresh/internal/domain"
)

// RestoreService defines point-in-time restore use cases.
type RestoreService interface {
	Restore(ctx context.Context, cmd domain.RestoreCommand) (*domain.BatchResult, error)
	Discover(ctx context.Context, env domain.EnvironmentRef, product string) ([]domain.RestoreTarget, error)
	Cleanup(ctx context.Context, env domain.EnvironmentRef, product string, dryRun bool) (*domain.CleanupResult, error)
}
