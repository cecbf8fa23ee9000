package out

import (
	"context"

	"github.com/bnema/envrefresh/internal/domain"
)

// ResourceDirectory resolves tag filters to concrete resources.
type ResourceDirectory interface {
	Find(ctx context.Context, filter domain.TagFilter) ([]domain.Resource, error)
}
