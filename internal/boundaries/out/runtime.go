// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (cloud control planes, Docker, filesystem, etc.).
package out

import (
	"context"

	"github.com/bnema/envrefresh/internal/domain"
)

// EnvironmentController pauses and resumes the workloads of an environment.
// Both calls return how many units changed state.
type EnvironmentController interface {
	Stop(ctx context.Context, env domain.EnvironmentRef) (int, error)
	Start(ctx context.Context, env domain.EnvironmentRef) (int, error)
}
