package restore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

// Discover returns the restore targets of env, optionally narrowed to one
// product. Databases that do not follow the naming convention are skipped.
func (s *Service) Discover(ctx context.Context, env domain.EnvironmentRef, product string) ([]domain.RestoreTarget, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Discover",
		zerowrap.FieldEnv:     env.String(),
	})
	return s.discoverTargets(ctx, env, product)
}

func (s *Service) discoverTargets(ctx context.Context, env domain.EnvironmentRef, product string) ([]domain.RestoreTarget, error) {
	log := zerowrap.FromCtx(ctx)

	if env.Name == "" {
		return nil, domain.NewPrerequisiteError("discover targets", fmt.Errorf("%w: source environment is required", domain.ErrInvalidParam))
	}

	filter := domain.EnvironmentFilter(env)
	if product != "" {
		filter[domain.TagProduct] = product
	}

	resources, err := s.directory.Find(ctx, filter)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, domain.NewAuthenticationError("query resource directory", err)
		}
		return nil, fmt.Errorf("query resource directory (%s): %w", filter, err)
	}

	targets := make([]domain.RestoreTarget, 0, len(resources))
	for _, r := range resources {
		if s.excluded(r.Name) {
			log.Debug().Str(logging.FieldTarget, r.Name).Msg("excluded from discovery")
			continue
		}
		tmpl := domain.NameTemplateFor(r)
		if !tmpl.Matches(r.Name) {
			event := log.Warn().Str(logging.FieldTarget, r.Name).Str("expected", tmpl.Expected())
			if missing := tmpl.Missing(); len(missing) > 0 {
				event = event.Strs("missing_tags", missing)
			}
			event.Msg("database does not follow naming convention, skipped")
			continue
		}
		targets = append(targets, domain.NewRestoreTarget(r))
	}

	if len(targets) == 0 {
		return nil, domain.NewPrerequisiteError("discover targets",
			fmt.Errorf("%w in environment %q (filter %s)", domain.ErrNoRestoreTargets, env.String(), filter))
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].BaseName < targets[j].BaseName
	})

	log.Info().Int(zerowrap.FieldCount, len(targets)).Msg("restore targets discovered")
	return targets, nil
}

func (s *Service) excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range s.config.ExcludePatterns {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
