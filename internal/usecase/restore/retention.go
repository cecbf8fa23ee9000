package restore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

// RetentionWindow is the restorable span of one target at check time.
type RetentionWindow struct {
	Target               string
	EarliestRestorePoint time.Time
	// LatestSafeInstant is the check time minus the propagation delay.
	LatestSafeInstant time.Time
}

// ValidateRetention checks one shared instant against every window.
//
// An instant older than any earliest restore point is a hard failure.
// An instant newer than any latest safe instant is clamped to the minimum
// latest safe instant over all windows, and the clamped value is checked
// against the lower bounds again.
func ValidateRetention(windows []RetentionWindow, instant time.Time) domain.ValidationOutcome {
	outcome := domain.ValidationOutcome{IsValid: true}

	var tooNew []RetentionWindow
	for _, w := range windows {
		if instant.Before(w.EarliestRestorePoint) {
			outcome.IsValid = false
			outcome.InvalidTargets = append(outcome.InvalidTargets, w.Target)
			outcome.Issues = append(outcome.Issues, lowerIssue(w, instant))
			continue
		}
		if instant.After(w.LatestSafeInstant) {
			tooNew = append(tooNew, w)
		}
	}

	for _, w := range tooNew {
		outcome.Issues = append(outcome.Issues, domain.RetentionIssue{
			Target:               w.Target,
			Bound:                domain.BoundUpper,
			RequestedUTC:         instant,
			EarliestRestorePoint: w.EarliestRestorePoint,
			LatestSafeInstant:    w.LatestSafeInstant,
			RetentionDays:        retentionDays(w),
		})
	}

	if !outcome.IsValid || len(tooNew) == 0 {
		return outcome
	}

	adjusted := windows[0].LatestSafeInstant
	for _, w := range windows[1:] {
		if w.LatestSafeInstant.Before(adjusted) {
			adjusted = w.LatestSafeInstant
		}
	}

	for _, w := range windows {
		if adjusted.Before(w.EarliestRestorePoint) {
			outcome.IsValid = false
			outcome.InvalidTargets = append(outcome.InvalidTargets, w.Target)
			outcome.Issues = append(outcome.Issues, lowerIssue(w, adjusted))
		}
	}
	if outcome.IsValid {
		outcome.NeedsAdjustment = true
		outcome.AdjustedInstant = adjusted
	}
	return outcome
}

func lowerIssue(w RetentionWindow, instant time.Time) domain.RetentionIssue {
	return domain.RetentionIssue{
		Target:               w.Target,
		Bound:                domain.BoundLower,
		RequestedUTC:         instant,
		EarliestRestorePoint: w.EarliestRestorePoint,
		LatestSafeInstant:    w.LatestSafeInstant,
		RetentionDays:        retentionDays(w),
	}
}

func retentionDays(w RetentionWindow) int {
	span := w.LatestSafeInstant.Sub(w.EarliestRestorePoint)
	if span <= 0 {
		return 0
	}
	return int(math.Round(span.Hours() / 24))
}

// retentionError itemizes the lower-bound violations of outcome.
func retentionError(outcome domain.ValidationOutcome) error {
	var lines []string
	for _, issue := range outcome.Issues {
		if issue.Bound != domain.BoundLower {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: requested %s is before earliest restore point %s (retention %d days)",
			issue.Target,
			issue.RequestedUTC.Format(time.RFC3339),
			issue.EarliestRestorePoint.Format(time.RFC3339),
			issue.RetentionDays))
	}
	return domain.NewValidationError("validate retention", strings.Join(outcome.InvalidTargets, ","),
		fmt.Errorf("%w: %s", domain.ErrRestorePointTooOld, strings.Join(lines, "; ")))
}

// fetchWindows reads the earliest restore point of every target in
// parallel, at most limit at a time. Results keep the order of targets.
func (s *Service) fetchWindows(ctx context.Context, targets []domain.RestoreTarget, delay time.Duration, limit int) ([]RetentionWindow, error) {
	log := zerowrap.FromCtx(ctx)
	windows := make([]RetentionWindow, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			earliest, err := s.controlPlane.EarliestRestorePoint(gctx, t.Source())
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrUnauthorized):
					return domain.NewAuthenticationError("fetch earliest restore point", err)
				case errors.Is(err, domain.ErrResourceNotFound):
					return domain.NewPrerequisiteError("fetch earliest restore point", fmt.Errorf("%s: %w", t.BaseName, err))
				default:
					return fmt.Errorf("fetch earliest restore point of %s: %w", t.BaseName, err)
				}
			}
			checkedAt := s.clock.Now().UTC()
			windows[i] = RetentionWindow{
				Target:               t.BaseName,
				EarliestRestorePoint: earliest.UTC(),
				LatestSafeInstant:    checkedAt.Add(-delay),
			}
			log.Debug().
				Str(logging.FieldTarget, t.BaseName).
				Time("earliest", earliest).
				Msg("retention window fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return windows, nil
}
