// Package secrets resolves secret references through the pass and sops
// command-line tools.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/domain"
)

// ErrPathTraversal is returned for secret paths that escape their store.
var ErrPathTraversal = errors.New("path traversal not allowed")

var passPathRegex = regexp.MustCompile(`^[a-zA-Z0-9._/\-]+$`)

// commandRunner runs name with args and returns its standard output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s command failed: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("failed to execute %s command: %w", name, err)
	}
	return output, nil
}

// PassProvider reads secrets from the pass password manager.
type PassProvider struct {
	timeout time.Duration
	run     commandRunner
}

// NewPassProvider creates a new pass provider.
func NewPassProvider() *PassProvider {
	return &PassProvider{timeout: 10 * time.Second, run: execRunner}
}

// Name returns the provider name.
func (p *PassProvider) Name() string {
	return "pass"
}

// GetSecret returns the first line of the pass entry at path.
func (p *PassProvider) GetSecret(ctx context.Context, path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := p.run(ctx, "pass", "show", path)
	if err != nil {
		return "", err
	}

	secret, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	if secret == "" {
		return "", fmt.Errorf("empty secret returned from pass for path: %s", path)
	}

	zl := zerowrap.FromCtx(ctx)
	zl.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "secrets").
		Str("provider", "pass").
		Str("path", path).
		Msg("secret retrieved")

	return secret, nil
}

// IsAvailable checks if pass is installed.
func (p *PassProvider) IsAvailable() bool {
	_, err := exec.LookPath("pass")
	return err == nil
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty secret path", domain.ErrInvalidConfig)
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return ErrPathTraversal
		}
	}
	if strings.HasPrefix(path, "/") || !passPathRegex.MatchString(path) {
		return fmt.Errorf("%w: invalid secret path %q", domain.ErrInvalidConfig, path)
	}
	return nil
}
