// Package workflow implements the refresh step sequencer.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/google/uuid"

	"github.com/bnema/envrefresh/internal/boundaries/in"
	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

// Ensure Service implements in.WorkflowService.
var _ in.WorkflowService = (*Service)(nil)

// Ports groups the collaborators of the built-in steps. Permissions may be
// nil when no grant endpoint is configured.
type Ports struct {
	Restore      in.RestoreService
	Environments out.EnvironmentController
	Databases    out.DatabaseCopier
	Blobs        out.BlobCopier
	Adjuster     out.ResourceAdjuster
	Permissions  out.PermissionGranter
	Clock        out.Clock
}

type stepOutput struct {
	detail  string
	batch   *domain.BatchResult
	skipped bool
}

type stepFunc func(ctx context.Context, st *runState) (stepOutput, error)

// runState carries data between the steps of one run.
type runState struct {
	params   domain.RefreshParams
	batch    *domain.BatchResult
	bindings map[string]string
	// refused is set when the restore step ran but the batch never
	// started. conflicts holds the derived names that already existed.
	refused   bool
	conflicts []string
}

// Service runs refresh steps in order with a continue-on-error policy.
// Only fatal error categories stop a run early.
type Service struct {
	ports    Ports
	handlers map[domain.StepID]stepFunc
	newRunID func() string
}

// NewService creates a workflow service.
func NewService(ports Ports) *Service {
	s := &Service{
		ports:    ports,
		newRunID: uuid.NewString,
	}
	s.handlers = map[domain.StepID]stepFunc{
		domain.StepGrantPermissions: s.grantPermissions,
		domain.StepRestore:          s.restoreDatabases,
		domain.StepStopEnvironment:  s.stopEnvironment,
		domain.StepCopyAttachments:  s.copyAttachments,
		domain.StepAdjustResources:  s.adjustResources,
		domain.StepStartEnvironment: s.startEnvironment,
		domain.StepCleanup:          s.cleanup,
	}
	return s
}

// Run executes steps with params. Steps listed in skip, or marked Skip,
// are recorded as skipped.
func (s *Service) Run(ctx context.Context, steps []domain.StepDefinition, params domain.RefreshParams, skip map[domain.StepID]bool) *domain.WorkflowRun {
	run := &domain.WorkflowRun{
		RunID:  s.newRunID(),
		DryRun: params.DryRun,
	}
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Run",
		logging.FieldRunID:    run.RunID,
		logging.FieldDryRun:   params.DryRun,
	})
	log := zerowrap.FromCtx(ctx)

	steps = withPrerequisites(steps, params)

	if err := ValidateParams(params, willRun(steps, skip, domain.StepRestore)); err != nil {
		log.Error().Err(err).Msg("invalid parameters, nothing run")
		run.Aborted = true
		run.FatalErr = err
		run.ExitCode = domain.ExitCodeFor(err)
		return run
	}

	log.Info().
		Str("source", params.Source.String()).
		Str("destination", params.Destination.String()).
		Int(zerowrap.FieldCount, len(steps)).
		Msg("refresh started")

	st := &runState{params: params}
	for _, def := range steps {
		name := stepName(def)
		switch {
		case run.Aborted:
			run.Steps = append(run.Steps, domain.StepResult{ID: def.ID, Name: name, Outcome: domain.StepSkipped, Detail: "not run: workflow aborted"})
			continue
		case def.Skip || skip[def.ID]:
			log.Info().Str(logging.FieldStep, string(def.ID)).Msg("step skipped")
			run.Steps = append(run.Steps, domain.StepResult{ID: def.ID, Name: name, Outcome: domain.StepSkipped, Detail: "skipped by request"})
			continue
		}

		result := s.runStep(ctx, def, name, st)
		run.Steps = append(run.Steps, result)

		if result.Err != nil && domain.IsFatal(result.Err) {
			log.Error().Err(result.Err).Str(logging.FieldStep, string(def.ID)).Msg("fatal error, aborting refresh")
			run.Aborted = true
			run.FatalErr = result.Err
		}
	}

	run.Success = !run.Aborted && len(run.Failed()) == 0
	run.ExitCode = exitCode(run)

	log.Info().
		Bool("success", run.Success).
		Int("exit_code", run.ExitCode).
		Int("failed_steps", len(run.Failed())).
		Msg("refresh finished")
	return run
}

func (s *Service) runStep(ctx context.Context, def domain.StepDefinition, name string, st *runState) domain.StepResult {
	ctx = zerowrap.CtxWithField(ctx, logging.FieldStep, string(def.ID))
	log := zerowrap.FromCtx(ctx)

	result := domain.StepResult{ID: def.ID, Name: name}

	handler, ok := s.handlers[def.ID]
	if !ok {
		result.Outcome = domain.StepFailed
		result.Err = domain.NewPrerequisiteError("run step", fmt.Errorf("%w: %s", domain.ErrUnknownStep, def.ID))
		return result
	}

	log.Info().Str("name", name).Msg("step started")
	started := s.now()
	output, err := handler(ctx, st)
	result.Elapsed = s.now().Sub(started)
	result.Detail = output.detail
	result.Batch = output.batch

	switch {
	case err != nil:
		result.Outcome = domain.StepFailed
		result.Err = err
		log.Error().Err(err).Dur(zerowrap.FieldDuration, result.Elapsed).Msg("step failed")
	case output.skipped:
		result.Outcome = domain.StepSkipped
		log.Warn().Str("detail", output.detail).Msg("step skipped")
	case st.params.DryRun:
		result.Outcome = domain.StepDryRunPreview
		log.Info().Str("detail", output.detail).Msg("step previewed")
	default:
		result.Outcome = domain.StepSucceeded
		log.Info().Str("detail", output.detail).Dur(zerowrap.FieldDuration, result.Elapsed).Msg("step succeeded")
	}
	return result
}

func (s *Service) now() time.Time {
	if s.ports.Clock == nil {
		return time.Now()
	}
	return s.ports.Clock.Now()
}

// exitCode derives the process exit code of a finished run. Failures of
// mixed categories report a general failure.
func exitCode(run *domain.WorkflowRun) int {
	if run.FatalErr != nil {
		return domain.ExitCodeFor(run.FatalErr)
	}
	failed := run.Failed()
	if len(failed) == 0 {
		return domain.ExitSuccess
	}
	code := domain.ExitCodeFor(failed[0].Err)
	for _, f := range failed[1:] {
		if domain.ExitCodeFor(f.Err) != code {
			return domain.ExitGeneral
		}
	}
	return code
}

// withPrerequisites prepends the grant step when an account is given.
func withPrerequisites(steps []domain.StepDefinition, params domain.RefreshParams) []domain.StepDefinition {
	if params.GrantAccount == "" {
		return steps
	}
	for _, def := range steps {
		if def.ID == domain.StepGrantPermissions {
			return steps
		}
	}
	grant := domain.StepDefinition{ID: domain.StepGrantPermissions, Name: "Grant operator permissions"}
	return append([]domain.StepDefinition{grant}, steps...)
}

func willRun(steps []domain.StepDefinition, skip map[domain.StepID]bool, id domain.StepID) bool {
	for _, def := range steps {
		if def.ID == id && !def.Skip && !skip[id] {
			return true
		}
	}
	return false
}

func stepName(def domain.StepDefinition) string {
	if def.Name != "" {
		return def.Name
	}
	for _, d := range domain.DefaultSteps() {
		if d.ID == def.ID {
			return d.Name
		}
	}
	return string(def.ID)
}
