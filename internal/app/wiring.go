package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"

	"github.com/bnema/envrefresh/internal/adapters/out/azure"
	"github.com/bnema/envrefresh/internal/adapters/out/clock"
	"github.com/bnema/envrefresh/internal/adapters/out/docker"
	"github.com/bnema/envrefresh/internal/adapters/out/filesystem"
	"github.com/bnema/envrefresh/internal/adapters/out/grantapi"
	"github.com/bnema/envrefresh/internal/adapters/out/ratelimit"
	"github.com/bnema/envrefresh/internal/adapters/out/secrets"
	"github.com/bnema/envrefresh/internal/adapters/out/telemetry"
	"github.com/bnema/envrefresh/internal/boundaries/in"
	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
	"github.com/bnema/envrefresh/internal/usecase/restore"
	"github.com/bnema/envrefresh/internal/usecase/workflow"
	"github.com/bnema/envrefresh/pkg/version"
)

// Options tune how the application is built for one invocation.
type Options struct {
	ConfigPath string
	LogLevel   string
	LogOutput  io.Writer
	Progress   restore.ProgressFunc
}

// App holds the wired services of one CLI invocation.
type App struct {
	Config   Config
	Logger   zerowrap.Logger
	FS       afero.Fs
	Restore  *restore.Service
	Workflow in.WorkflowService
	Detector workflow.Detector
	Defaults workflow.Defaults

	cleanup  func()
	shutdown func(context.Context)
}

// New loads configuration and wires every adapter into the use cases.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	log, cleanup, err := initLogger(cfg, opts)
	if err != nil {
		return nil, err
	}
	ctx = zerowrap.WithCtx(ctx, log)

	_, shutdown, err := telemetry.NewProvider(ctx, cfg.Telemetry, "envrefresh", version.Version())
	if err != nil {
		cleanup()
		return nil, domain.NewPrerequisiteError("init telemetry", err)
	}

	a, err := wire(ctx, cfg, log, opts)
	if err != nil {
		shutdown(ctx)
		cleanup()
		return nil, err
	}
	a.cleanup = cleanup
	a.shutdown = shutdown
	return a, nil
}

// Close flushes pending telemetry and closes the log file, if any.
func (a *App) Close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.shutdown(ctx)
		cancel()
	}
	if a.cleanup != nil {
		a.cleanup()
	}
}

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return zerowrap.WithCtx(ctx, a.Logger)
}

// ResolveParams fills unset parameters from auto-detection and defaults.
func (a *App) ResolveParams(ctx context.Context, explicit domain.RefreshParams) domain.RefreshParams {
	return workflow.ResolveParams(ctx, explicit, a.Detector, a.Defaults)
}

// Steps returns the step list from path, the configured workflow file or
// the built-in sequence, in that order of preference.
func (a *App) Steps(path string) ([]domain.StepDefinition, error) {
	if path == "" {
		path = a.Config.Workflow.File
	}
	if path == "" {
		return domain.DefaultSteps(), nil
	}
	return workflow.LoadStepsFile(a.FS, path)
}

func initLogger(cfg Config, opts Options) (zerowrap.Logger, func(), error) {
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}

	logCfg := logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Out:    opts.LogOutput,
	}
	if cfg.Logging.File.Enabled {
		logCfg.File = cfg.Logging.File.Path
		if logCfg.File == "" {
			// Default to {data_dir}/logs/envrefresh.log
			logCfg.File = filepath.Join(cfg.DataDir, "logs", "envrefresh.log")
		}
		logCfg.MaxSize = cfg.Logging.File.MaxSize
		logCfg.MaxBackups = cfg.Logging.File.MaxBackups
		logCfg.MaxAge = cfg.Logging.File.MaxAge
		logCfg.Compress = true
	}

	log, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return zerowrap.Default(), func() {}, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, cleanup, nil
}

func wire(ctx context.Context, cfg Config, log zerowrap.Logger, opts Options) (*App, error) {
	restoreCfg, err := cfg.RestoreConfig()
	if err != nil {
		return nil, err
	}
	defaults, err := cfg.WorkflowDefaults()
	if err != nil {
		return nil, err
	}

	cred, err := azure.NewCredential()
	if err != nil {
		return nil, domain.NewAuthenticationError("create credential", err)
	}
	directory, err := azure.NewDirectory(cred, cfg.Azure.Subscriptions, nil)
	if err != nil {
		return nil, err
	}
	sql := azure.NewControlPlane(cred, nil)
	limiter := ratelimit.NewMemoryStore(cfg.Azure.RequestsPerSecond, cfg.Azure.Burst)
	controlPlane := ratelimit.NewThrottledControlPlane(sql, limiter)

	environments, err := docker.NewController(cfg.Docker.StopTimeout)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	attachments, err := filesystem.NewAttachmentStore(fs, cfg.Attachments.Dir, log)
	if err != nil {
		return nil, err
	}
	bindings, err := filesystem.NewBindingFile(fs, cfg.Bindings.Dir, log)
	if err != nil {
		return nil, err
	}

	var permissions out.PermissionGranter
	if cfg.Grant.URL != "" {
		timeout, err := parseDuration("grant.timeout", cfg.Grant.Timeout)
		if err != nil {
			return nil, err
		}
		// grant.token may reference a secret, e.g. "pass:envrefresh/grant".
		resolver := secrets.NewResolver(secrets.NewPassProvider(), secrets.NewSopsProvider())
		token, err := resolver.Resolve(ctx, cfg.Grant.Token)
		if err != nil {
			return nil, err
		}
		granter, err := grantapi.New(cfg.Grant.URL, grantapi.WithToken(token), grantapi.WithTimeout(timeout))
		if err != nil {
			return nil, domain.NewPrerequisiteError("create grant client", err)
		}
		permissions = granter
	}

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return nil, domain.NewPrerequisiteError("init metrics", err)
	}

	restoreSvc := restore.NewService(directory, controlPlane, clock.Real{}, restoreCfg,
		restore.WithProgress(metrics.ObserveTargets(opts.Progress)))

	workflowSvc := workflow.NewService(workflow.Ports{
		Restore:      restoreSvc,
		Environments: environments,
		Databases:    sql,
		Blobs:        attachments,
		Adjuster:     bindings,
		Permissions:  permissions,
		Clock:        clock.Real{},
	})

	zl := zerowrap.FromCtx(ctx)
	zl.Debug().
		Strs("subscriptions", cfg.Azure.Subscriptions).
		Bool("grant_enabled", permissions != nil).
		Msg("application wired")

	return &App{
		Config:   cfg,
		Logger:   log,
		FS:       fs,
		Restore:  restoreSvc,
		Workflow: telemetry.NewWorkflow(workflowSvc, metrics, nil),
		Detector: workflow.NewEnvironmentDetector(restoreSvc),
		Defaults: defaults,
	}, nil
}
