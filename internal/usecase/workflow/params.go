package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/domain"
)

// Defaults are the lowest-priority parameter values.
type Defaults struct {
	Timezone         string
	MaxWaitMinutes   int
	ThrottleLimit    int
	PropagationDelay time.Duration
}

// DefaultDefaults returns the built-in defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Timezone:         "UTC",
		MaxWaitMinutes:   int(domain.DefaultMaxWait / time.Minute),
		ThrottleLimit:    domain.DefaultConcurrencyLimit,
		PropagationDelay: domain.DefaultPropagationDelay,
	}
}

// Detected holds values inferred from the environment.
type Detected struct {
	DestinationNamespace string
	Product              string
	Timezone             string
}

// Detector infers parameters the caller left unset.
type Detector interface {
	Detect(ctx context.Context, params domain.RefreshParams) (Detected, error)
}

// MergeParams fills unset fields of explicit, first from detected and then
// from defaults. Explicit values always win.
func MergeParams(explicit domain.RefreshParams, detected Detected, defaults Defaults) domain.RefreshParams {
	p := explicit

	p.Timezone = firstNonEmpty(explicit.Timezone, detected.Timezone, defaults.Timezone)
	p.Product = firstNonEmpty(explicit.Product, detected.Product)
	p.Destination.Namespace = firstNonEmpty(explicit.Destination.Namespace, detected.DestinationNamespace)

	if p.MaxWaitMinutes == nil && defaults.MaxWaitMinutes > 0 {
		v := defaults.MaxWaitMinutes
		p.MaxWaitMinutes = &v
	}
	if p.ThrottleLimit == nil && defaults.ThrottleLimit > 0 {
		v := defaults.ThrottleLimit
		p.ThrottleLimit = &v
	}
	if p.PropagationDelay == nil && defaults.PropagationDelay > 0 {
		v := defaults.PropagationDelay
		p.PropagationDelay = &v
	}
	return p
}

// ResolveParams merges explicit with auto-detected values and defaults.
// The detector is only consulted when a detectable field is unset. A
// detection error keeps whatever was detected before it.
func ResolveParams(ctx context.Context, explicit domain.RefreshParams, detector Detector, defaults Defaults) domain.RefreshParams {
	var detected Detected
	if detector != nil && needsDetection(explicit) {
		d, err := detector.Detect(ctx, explicit)
		if err != nil {
			zl := zerowrap.FromCtx(ctx)
			zl.Warn().Err(err).Msg("parameter auto-detection incomplete")
		}
		detected = d
	}
	return MergeParams(explicit, detected, defaults)
}

func needsDetection(p domain.RefreshParams) bool {
	return p.Timezone == "" || p.Product == "" || p.Destination.Namespace == ""
}

// ValidateParams rejects parameter sets no step could run with.
func ValidateParams(p domain.RefreshParams, needsRestorePoint bool) error {
	var problems []string
	if p.Source.Name == "" {
		problems = append(problems, "Source is required")
	}
	if p.Destination.Name == "" {
		problems = append(problems, "Destination is required")
	}
	if p.Source.Name != "" && strings.EqualFold(p.Source.String(), p.Destination.String()) {
		problems = append(problems, "Source and Destination must differ")
	}
	if needsRestorePoint && strings.TrimSpace(p.RestoreDateTime) == "" {
		problems = append(problems, "RestoreDateTime is required")
	}
	if p.MaxWaitMinutes != nil && *p.MaxWaitMinutes <= 0 {
		problems = append(problems, "MaxWaitMinutes must be positive")
	}
	if p.ThrottleLimit != nil && *p.ThrottleLimit <= 0 {
		problems = append(problems, "ThrottleLimit must be positive")
	}
	if p.PropagationDelay != nil && *p.PropagationDelay < 0 {
		problems = append(problems, "PropagationDelay must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	return domain.NewPrerequisiteError("validate parameters",
		fmt.Errorf("%w: %s", domain.ErrInvalidParam, strings.Join(problems, "; ")))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
