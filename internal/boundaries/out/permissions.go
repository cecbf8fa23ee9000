package out

import (
	"context"

	"github.com/bnema/envrefresh/internal/domain"
)

// PermissionGranter grants an account access to an environment and
// returns how many grants were added.
type PermissionGranter interface {
	Grant(ctx context.Context, env domain.EnvironmentRef, account string) (int, error)
}
