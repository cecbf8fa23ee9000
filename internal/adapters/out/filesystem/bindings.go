package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
)

// Ensure BindingFile implements out.ResourceAdjuster.
var _ out.ResourceAdjuster = (*BindingFile)(nil)

// BindingKeyPrefix prefixes the variable each service reads its database name from.
const BindingKeyPrefix = "DB_"

// BindingFile keeps service-to-database bindings in one dotenv file per
// environment, envDir/<environment>[/<namespace>].env. Keys it does not
// own are preserved.
type BindingFile struct {
	fs     afero.Fs
	envDir string
	log    zerowrap.Logger
}

// NewBindingFile creates a binding file adapter.
func NewBindingFile(fs afero.Fs, envDir string, log zerowrap.Logger) (*BindingFile, error) {
	envDir = filepath.Clean(expandTilde(envDir))
	if err := fs.MkdirAll(envDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create env directory %s: %w", envDir, err)
	}
	return &BindingFile{fs: fs, envDir: envDir, log: log}, nil
}

// BindingKey returns the variable name for a service tag.
func BindingKey(service string) string {
	key := strings.ToUpper(strings.TrimSpace(service))
	key = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(key)
	return BindingKeyPrefix + key
}

// Path returns the binding file of env.
func (b *BindingFile) Path(env domain.EnvironmentRef) string {
	return envPath(b.envDir, env, ".env")
}

// Adjust writes bindings into env's file.
func (b *BindingFile) Adjust(ctx context.Context, env domain.EnvironmentRef, bindings map[string]string) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "filesystem",
		zerowrap.FieldAction:  "Adjust",
		zerowrap.FieldEnv:     env.String(),
	})
	log := zerowrap.FromCtx(ctx)

	path := b.Path(env)
	values, err := b.read(path)
	if err != nil {
		return log.WrapErr(err, "failed to read binding file")
	}
	for service, database := range bindings {
		values[BindingKey(service)] = database
	}

	content, err := godotenv.Marshal(values)
	if err != nil {
		return log.WrapErr(err, "failed to encode bindings")
	}

	if err := b.fs.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return log.WrapErr(err, "failed to create binding directory")
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, []byte(content+"\n"), 0600); err != nil {
		return log.WrapErr(err, "failed to write binding file")
	}
	if err := b.fs.Rename(tmp, path); err != nil {
		_ = b.fs.Remove(tmp)
		return log.WrapErr(err, "failed to finalize binding file")
	}

	log.Info().Str("path", path).Int(zerowrap.FieldCount, len(bindings)).Msg("bindings written")
	return nil
}

// Read returns the current bindings file of env as key/value pairs.
func (b *BindingFile) Read(env domain.EnvironmentRef) (map[string]string, error) {
	return b.read(b.Path(env))
}

func (b *BindingFile) read(path string) (map[string]string, error) {
	f, err := b.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return godotenv.Parse(f)
}
