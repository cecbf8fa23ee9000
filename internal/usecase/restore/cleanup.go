package restore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

// Cleanup deletes the derived databases left in env by a previous batch.
// Only names that currently exist are touched, so repeated runs converge.
func (s *Service) Cleanup(ctx context.Context, env domain.EnvironmentRef, product string, dryRun bool) (*domain.CleanupResult, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Cleanup",
		zerowrap.FieldEnv:     env.String(),
		logging.FieldDryRun:   dryRun,
	})
	log := zerowrap.FromCtx(ctx)

	exec := s.executorFor(dryRun)
	result := &domain.CleanupResult{DryRun: dryRun}

	targets, err := s.discoverTargets(ctx, env, product)
	if err != nil {
		return result, err
	}

	existing, err := s.checkConflicts(ctx, targets)
	if err != nil {
		return result, err
	}
	if !existing.HasConflicts() {
		log.Info().Msg("no restored copies to clean up")
		return result, nil
	}

	present := make(map[string]struct{}, len(existing.Conflicts))
	for _, name := range existing.Conflicts {
		present[name] = struct{}{}
	}

	var errs []error
	for _, t := range targets {
		if _, ok := present[t.DerivedName]; !ok {
			continue
		}
		if err := exec.delete(ctx, t.Destination()); err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return result, domain.NewAuthenticationError("delete database", err)
			}
			log.Error().Err(err).Str(logging.FieldTarget, t.DerivedName).Msg("delete failed")
			result.Failed = append(result.Failed, t.DerivedName)
			errs = append(errs, fmt.Errorf("delete %s: %w", t.DerivedName, err))
			continue
		}
		result.Deleted = append(result.Deleted, t.DerivedName)
		if !dryRun {
			log.Info().Str(logging.FieldTarget, t.DerivedName).Msg("restored copy deleted")
		}
	}

	sort.Strings(result.Deleted)
	sort.Strings(result.Failed)
	result.PlannedActions = exec.planned()

	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}
	return result, nil
}
