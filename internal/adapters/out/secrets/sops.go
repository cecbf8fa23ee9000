package secrets

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/domain"
)

// sopsKeyPathRegex allows dotted keys with optional array indices.
var sopsKeyPathRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-\[\]]+$`)

var sopsSegmentRegex = regexp.MustCompile(`([^.\[\]]+)|\[(\d+)\]`)

// SopsProvider decrypts single keys from sops-encrypted files.
type SopsProvider struct {
	timeout time.Duration
	run     commandRunner
}

// NewSopsProvider creates a new sops provider.
func NewSopsProvider() *SopsProvider {
	return &SopsProvider{timeout: 10 * time.Second, run: execRunner}
}

// Name returns the provider name.
func (s *SopsProvider) Name() string {
	return "sops"
}

// GetSecret retrieves a secret from a sops-encrypted file. The path format
// is "file.yaml:key.nested.path".
func (s *SopsProvider) GetSecret(ctx context.Context, path string) (string, error) {
	filePath, keyPath, ok := strings.Cut(path, ":")
	if !ok || filePath == "" || keyPath == "" {
		return "", fmt.Errorf("%w: sops path must be in format 'file:key', got: %s", domain.ErrInvalidConfig, path)
	}

	cleanPath := filepath.Clean(filePath)
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}
	if !sopsKeyPathRegex.MatchString(keyPath) {
		return "", fmt.Errorf("%w: invalid sops key path %q", domain.ErrInvalidConfig, keyPath)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.run(ctx, "sops", "-d", "--extract", convertToSopsExtractPath(keyPath), cleanPath)
	if err != nil {
		return "", err
	}

	secret := strings.TrimSpace(string(output))
	if secret == "" {
		return "", fmt.Errorf("empty secret returned from sops for path: %s", path)
	}

	zl := zerowrap.FromCtx(ctx)
	zl.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "secrets").
		Str("provider", "sops").
		Str("path", path).
		Msg("secret retrieved")

	return secret, nil
}

// IsAvailable checks if sops is installed.
func (s *SopsProvider) IsAvailable() bool {
	_, err := exec.LookPath("sops")
	return err == nil
}

// convertToSopsExtractPath turns "app.items[0].name" into
// `["app"]["items"][0]["name"]`.
func convertToSopsExtractPath(keyPath string) string {
	var b strings.Builder
	for _, m := range sopsSegmentRegex.FindAllStringSubmatch(keyPath, -1) {
		if m[2] != "" {
			b.WriteString("[" + m[2] + "]")
			continue
		}
		b.WriteString(`["` + m[1] + `"]`)
	}
	return b.String()
}
