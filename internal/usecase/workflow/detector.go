package workflow

import (
	"context"
	"os"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/boundaries/in"
	"github.com/bnema/envrefresh/internal/domain"
)

// EnvironmentDetector infers parameters from the process environment and
// the source environment's databases.
type EnvironmentDetector struct {
	restore in.RestoreService
	zone    func() string
}

// NewEnvironmentDetector creates a detector. restore may be nil, in which
// case the product is never detected.
func NewEnvironmentDetector(restore in.RestoreService) *EnvironmentDetector {
	return &EnvironmentDetector{
		restore: restore,
		zone:    func() string { return os.Getenv("TZ") },
	}
}

// Detect implements Detector.
func (d *EnvironmentDetector) Detect(ctx context.Context, params domain.RefreshParams) (Detected, error) {
	var detected Detected

	if params.Timezone == "" {
		detected.Timezone = d.zone()
	}

	// Tenant refreshes normally stay within one namespace.
	if params.Destination.Namespace == "" {
		detected.DestinationNamespace = params.Source.Namespace
	}

	if params.Product == "" && d.restore != nil && params.Source.Name != "" {
		targets, err := d.restore.Discover(ctx, params.Source, "")
		if err != nil {
			return detected, err
		}
		detected.Product = singleProduct(targets)
		if detected.Product != "" {
			zl := zerowrap.FromCtx(ctx)
			zl.Debug().Str("product", detected.Product).Msg("product detected")
		}
	}
	return detected, nil
}

// singleProduct returns the product shared by every target, or "".
func singleProduct(targets []domain.RestoreTarget) string {
	product := ""
	for _, t := range targets {
		switch {
		case t.Product == "":
			return ""
		case product == "":
			product = t.Product
		case product != t.Product:
			return ""
		}
	}
	return product
}
