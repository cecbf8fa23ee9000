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

// checkConflicts lists derived names that already exist on their server.
// It only reads, so repeated calls against unchanged state agree.
func (s *Service) checkConflicts(ctx context.Context, targets []domain.RestoreTarget) (domain.ConflictReport, error) {
	log := zerowrap.FromCtx(ctx)

	servers, order := groupByServer(targets)

	var conflicts []string
	for _, key := range order {
		group := servers[key]
		names, err := s.controlPlane.ListDatabases(ctx, group[0].Source())
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return domain.ConflictReport{}, domain.NewAuthenticationError("list databases", err)
			}
			return domain.ConflictReport{}, fmt.Errorf("list databases on %s: %w", group[0].Server, err)
		}

		existing := make(map[string]struct{}, len(names))
		for _, n := range names {
			existing[strings.ToLower(n)] = struct{}{}
		}
		for _, t := range group {
			if _, ok := existing[strings.ToLower(t.DerivedName)]; ok {
				conflicts = append(conflicts, t.DerivedName)
			}
		}
		log.Debug().Str(logging.FieldServer, group[0].Server).Int(zerowrap.FieldCount, len(names)).Msg("server databases listed")
	}

	sort.Strings(conflicts)
	return domain.ConflictReport{Conflicts: conflicts}, nil
}

// groupByServer buckets targets by hosting server, keeping first-seen order.
func groupByServer(targets []domain.RestoreTarget) (map[string][]domain.RestoreTarget, []string) {
	groups := make(map[string][]domain.RestoreTarget)
	var order []string
	for _, t := range targets {
		key := strings.ToLower(t.SubscriptionID + "/" + t.ResourceGroup + "/" + t.Server)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}
	return groups, order
}
