// Package filesystem implements attachment storage and binding files on
// a local (or in-memory) filesystem.
package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/envrefresh/internal/domain"
)

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path[2:])
	}
	return path
}

func sanitizePathComponent(input string) string {
	clean := strings.Trim(strings.TrimSpace(input), ".")
	if clean == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(clean)
}

// envPath returns root/name[/namespace] + suffix.
func envPath(root string, env domain.EnvironmentRef, suffix string) string {
	parts := []string{root, sanitizePathComponent(env.Name)}
	if env.Namespace != "" {
		parts = append(parts, sanitizePathComponent(env.Namespace))
	}
	return filepath.Join(parts...) + suffix
}

func pathWithinRoot(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
