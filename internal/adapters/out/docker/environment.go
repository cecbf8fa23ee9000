// Package docker implements environment pause and resume on top of the
// Docker API. Workloads belong to an environment through container labels.
package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
)

// Ensure Controller implements out.EnvironmentController.
var _ out.EnvironmentController = (*Controller)(nil)

// DefaultStopTimeout is the grace period, in seconds, before a container is killed.
const DefaultStopTimeout = 30

// Controller stops and starts the containers labelled with an environment.
type Controller struct {
	client      *client.Client
	stopTimeout int
}

// NewController creates a controller from the Docker environment
// (DOCKER_HOST and friends).
func NewController(stopTimeout int) (*Controller, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return NewControllerWithClient(cli, stopTimeout), nil
}

// NewControllerWithClient creates a controller with a custom client (for testing).
func NewControllerWithClient(cli *client.Client, stopTimeout int) *Controller {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Controller{client: cli, stopTimeout: stopTimeout}
}

// Stop stops every running container of env.
func (c *Controller) Stop(ctx context.Context, env domain.EnvironmentRef) (int, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "docker",
		zerowrap.FieldAction:  "Stop",
		zerowrap.FieldEnv:     env.String(),
	})
	log := zerowrap.FromCtx(ctx)

	containers, err := c.list(ctx, env, false)
	if err != nil {
		return 0, log.WrapErr(err, "failed to list containers")
	}

	timeout := c.stopTimeout
	stopped := 0
	var failed []string
	for _, ctr := range containers {
		if err := c.client.ContainerStop(ctx, ctr.id, container.StopOptions{Timeout: &timeout}); err != nil {
			log.Error().Err(err).Str("container", ctr.name).Msg("failed to stop container")
			failed = append(failed, ctr.name)
			continue
		}
		log.Info().Str("container", ctr.name).Msg("container stopped")
		stopped++
	}

	if len(failed) > 0 {
		return stopped, fmt.Errorf("failed to stop %d container(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return stopped, nil
}

// Start starts every stopped container of env.
func (c *Controller) Start(ctx context.Context, env domain.EnvironmentRef) (int, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "docker",
		zerowrap.FieldAction:  "Start",
		zerowrap.FieldEnv:     env.String(),
	})
	log := zerowrap.FromCtx(ctx)

	containers, err := c.list(ctx, env, true)
	if err != nil {
		return 0, log.WrapErr(err, "failed to list containers")
	}

	started := 0
	var failed []string
	for _, ctr := range containers {
		if ctr.state == "running" {
			continue
		}
		if err := c.client.ContainerStart(ctx, ctr.id, container.StartOptions{}); err != nil {
			log.Error().Err(err).Str("container", ctr.name).Msg("failed to start container")
			failed = append(failed, ctr.name)
			continue
		}
		log.Info().Str("container", ctr.name).Msg("container started")
		started++
	}

	if len(failed) > 0 {
		return started, fmt.Errorf("failed to start %d container(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return started, nil
}

type containerRef struct {
	id    string
	name  string
	state string
}

func (c *Controller) list(ctx context.Context, env domain.EnvironmentRef, all bool) ([]containerRef, error) {
	args := filters.NewArgs(filters.Arg("label", domain.LabelEnvironment+"="+env.Name))
	if env.Namespace != "" {
		args.Add("label", domain.LabelNamespace+"="+env.Namespace)
	}

	containers, err := c.client.ContainerList(ctx, container.ListOptions{All: all, Filters: args})
	if err != nil {
		return nil, err
	}

	refs := make([]containerRef, 0, len(containers))
	for _, ctr := range containers {
		// Get the primary name (remove leading slash)
		name := ctr.ID
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		refs = append(refs, containerRef{id: ctr.ID, name: name, state: ctr.State})
	}
	return refs, nil
}
