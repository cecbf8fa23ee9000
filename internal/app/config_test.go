package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "envrefresh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "data_dir: /srv/envrefresh\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, domain.DefaultConcurrencyLimit, cfg.Restore.Concurrency)
	assert.Equal(t, "/srv/envrefresh/attachments", cfg.Attachments.Dir)
	assert.Equal(t, "/srv/envrefresh/env", cfg.Bindings.Dir)
	assert.Equal(t, []string{"master", "restored", "landlord", "copy"}, cfg.Restore.ExcludePatterns)

	rc, err := cfg.RestoreConfig()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPollInterval, rc.PollInterval)
	assert.Equal(t, domain.DefaultPropagationDelay, rc.PropagationDelay)
	assert.Equal(t, domain.DefaultMaxWait, rc.MaxWait)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
azure:
  subscriptions: [sub-1, sub-2]
restore:
  propagation_delay: 15m
  max_wait: 2h
  timezone: Europe/Berlin
grant:
  url: https://access.example.com
`)
	t.Setenv("ENVREFRESH_RESTORE_CONCURRENCY", "4")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"sub-1", "sub-2"}, cfg.Azure.Subscriptions)
	assert.Equal(t, 4, cfg.Restore.Concurrency)
	assert.Equal(t, "https://access.example.com", cfg.Grant.URL)

	defaults, err := cfg.WorkflowDefaults()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", defaults.Timezone)
	assert.Equal(t, 120, defaults.MaxWaitMinutes)
	assert.Equal(t, 4, defaults.ThrottleLimit)
	assert.Equal(t, 15*time.Minute, defaults.PropagationDelay)
}

func TestLoadConfig_HumanDurations(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "restore:\n  max_wait: 1d\n"))
	require.NoError(t, err)

	rc, err := cfg.RestoreConfig()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, rc.MaxWait)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "restore:\n  poll_interval: soon\n"))
	require.NoError(t, err)

	_, err = cfg.RestoreConfig()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Equal(t, domain.ExitPrerequisite, domain.ExitCodeFor(err))
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "restore: [unclosed\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
