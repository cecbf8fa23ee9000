package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
)

// Resolver expands secret references of the form "<provider>:<path>".
// Values without a known provider prefix are returned unchanged.
type Resolver struct {
	providers map[string]out.SecretProvider
}

// NewResolver creates a resolver over the given providers.
func NewResolver(providers ...out.SecretProvider) *Resolver {
	r := &Resolver{providers: make(map[string]out.SecretProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Resolve returns the secret a reference points to, or value itself when
// it is not a reference.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	scheme, path, ok := strings.Cut(value, ":")
	if !ok {
		return value, nil
	}
	provider, known := r.providers[scheme]
	if !known {
		return value, nil
	}
	if !provider.IsAvailable() {
		return "", domain.NewPrerequisiteError("resolve secret",
			fmt.Errorf("%w: %s is not installed", domain.ErrInvalidConfig, provider.Name()))
	}
	secret, err := provider.GetSecret(ctx, path)
	if err != nil {
		return "", domain.NewPrerequisiteError("resolve secret", fmt.Errorf("%s: %w", provider.Name(), err))
	}
	return secret, nil
}
