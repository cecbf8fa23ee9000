package app

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bnema/envrefresh/internal/adapters/out/telemetry"
	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/usecase/restore"
	"github.com/bnema/envrefresh/internal/usecase/workflow"
	"github.com/bnema/envrefresh/pkg/duration"
)

// Config holds the application configuration.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"file"`
	} `mapstructure:"logging"`

	Azure struct {
		Subscriptions     []string `mapstructure:"subscriptions"`
		RequestsPerSecond float64  `mapstructure:"requests_per_second"`
		Burst             int      `mapstructure:"burst"`
	} `mapstructure:"azure"`

	Restore struct {
		PollInterval     string   `mapstructure:"poll_interval"`
		PropagationDelay string   `mapstructure:"propagation_delay"`
		MaxWait          string   `mapstructure:"max_wait"`
		Concurrency      int      `mapstructure:"concurrency"`
		Timezone         string   `mapstructure:"timezone"`
		ExcludePatterns  []string `mapstructure:"exclude_patterns"`
	} `mapstructure:"restore"`

	Docker struct {
		StopTimeout int `mapstructure:"stop_timeout"`
	} `mapstructure:"docker"`

	Attachments struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"attachments"`

	Bindings struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"bindings"`

	Grant struct {
		URL     string `mapstructure:"url"`
		Token   string `mapstructure:"token"`
		Timeout string `mapstructure:"timeout"`
	} `mapstructure:"grant"`

	Workflow struct {
		File string `mapstructure:"file"`
	} `mapstructure:"workflow"`

	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// LoadConfig reads configuration from configPath, or from the standard
// search paths when it is empty. A missing config file is not an error.
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return Config{}, domain.NewPrerequisiteError("load config", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, domain.NewPrerequisiteError("load config", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}

	if cfg.Attachments.Dir == "" {
		cfg.Attachments.Dir = filepath.Join(cfg.DataDir, "attachments")
	}
	if cfg.Bindings.Dir == "" {
		cfg.Bindings.Dir = filepath.Join(cfg.DataDir, "env")
	}
	return cfg, nil
}

// loadConfig loads .env files, sets defaults and reads the config file.
func loadConfig(v *viper.Viper, configPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)
	v.SetDefault("azure.subscriptions", []string{})
	v.SetDefault("azure.requests_per_second", 5)
	v.SetDefault("azure.burst", 10)
	v.SetDefault("restore.poll_interval", domain.DefaultPollInterval.String())
	v.SetDefault("restore.propagation_delay", domain.DefaultPropagationDelay.String())
	v.SetDefault("restore.max_wait", domain.DefaultMaxWait.String())
	v.SetDefault("restore.concurrency", domain.DefaultConcurrencyLimit)
	v.SetDefault("restore.timezone", "UTC")
	v.SetDefault("restore.exclude_patterns", restore.DefaultExcludePatterns)
	v.SetDefault("docker.stop_timeout", 30)
	v.SetDefault("attachments.dir", "") // defaults to {data_dir}/attachments when empty
	v.SetDefault("bindings.dir", "")    // defaults to {data_dir}/env when empty
	v.SetDefault("grant.url", "")
	v.SetDefault("grant.token", "")
	v.SetDefault("grant.timeout", "30s")
	v.SetDefault("workflow.file", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.traces", true)
	v.SetDefault("telemetry.metrics", true)
	v.SetDefault("telemetry.trace_sample_rate", 1.0)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ENVREFRESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

// RestoreConfig converts the restore section into use case settings.
func (c Config) RestoreConfig() (restore.Config, error) {
	poll, err := parseDuration("restore.poll_interval", c.Restore.PollInterval)
	if err != nil {
		return restore.Config{}, err
	}
	delay, err := parseDuration("restore.propagation_delay", c.Restore.PropagationDelay)
	if err != nil {
		return restore.Config{}, err
	}
	maxWait, err := parseDuration("restore.max_wait", c.Restore.MaxWait)
	if err != nil {
		return restore.Config{}, err
	}
	return restore.Config{
		PollInterval:     poll,
		PropagationDelay: delay,
		MaxWait:          maxWait,
		ConcurrencyLimit: c.Restore.Concurrency,
		ExcludePatterns:  c.Restore.ExcludePatterns,
	}, nil
}

// WorkflowDefaults returns the lowest-priority refresh parameters.
func (c Config) WorkflowDefaults() (workflow.Defaults, error) {
	defaults := workflow.DefaultDefaults()
	rc, err := c.RestoreConfig()
	if err != nil {
		return defaults, err
	}
	if c.Restore.Timezone != "" {
		defaults.Timezone = c.Restore.Timezone
	}
	if rc.MaxWait > 0 {
		defaults.MaxWaitMinutes = int(rc.MaxWait / time.Minute)
	}
	if rc.ConcurrencyLimit > 0 {
		defaults.ThrottleLimit = rc.ConcurrencyLimit
	}
	if rc.PropagationDelay > 0 {
		defaults.PropagationDelay = rc.PropagationDelay
	}
	return defaults, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := duration.Parse(value)
	if err != nil {
		return 0, domain.NewPrerequisiteError("load config", fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, key, err))
	}
	return d, nil
}
