package out

import (
	"context"

	"github.com/bnema/envrefresh/internal/domain"
)

// BlobCopier copies the attached blob storage of one environment into another.
// With replace set, existing destination content is removed first.
type BlobCopier interface {
	Copy(ctx context.Context, source, destination domain.EnvironmentRef, replace bool) (domain.CopyStats, error)
}

// ResourceAdjuster points an environment's configuration at new databases.
// bindings maps a service tag to the database name the service must use.
type ResourceAdjuster interface {
	Adjust(ctx context.Context, env domain.EnvironmentRef, bindings map[string]string) error
}
