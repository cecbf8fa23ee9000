package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bnema/envrefresh/internal/domain"
)

// fsys is the filesystem used for workflow files and reports outside an
// App. Tests swap it for an in-memory one.
var fsys afero.Fs = afero.NewOsFs()

type runReport struct {
	RunID        string       `yaml:"runId"`
	GeneratedAt  time.Time    `yaml:"generatedAt"`
	DryRun       bool         `yaml:"dryRun"`
	Success      bool         `yaml:"success"`
	ExitCode     int          `yaml:"exitCode"`
	Aborted      bool         `yaml:"aborted,omitempty"`
	Error        string       `yaml:"error,omitempty"`
	Source       string       `yaml:"source"`
	Destination  string       `yaml:"destination"`
	Product      string       `yaml:"product,omitempty"`
	RestorePoint string       `yaml:"restorePoint"`
	Timezone     string       `yaml:"timezone"`
	Steps        []stepReport `yaml:"steps"`
}

type stepReport struct {
	ID      domain.StepID       `yaml:"id"`
	Name    string              `yaml:"name"`
	Outcome domain.StepOutcome  `yaml:"outcome"`
	Detail  string              `yaml:"detail,omitempty"`
	Elapsed string              `yaml:"elapsed"`
	Error   string              `yaml:"error,omitempty"`
	Batch   *domain.BatchResult `yaml:"batch,omitempty"`
}

func newRunReport(params domain.RefreshParams, run *domain.WorkflowRun, now time.Time) runReport {
	r := runReport{
		RunID:        run.RunID,
		GeneratedAt:  now.UTC(),
		DryRun:       run.DryRun,
		Success:      run.Success,
		ExitCode:     run.ExitCode,
		Aborted:      run.Aborted,
		Source:       params.Source.String(),
		Destination:  params.Destination.String(),
		Product:      params.Product,
		RestorePoint: params.RestoreDateTime,
		Timezone:     params.Timezone,
	}
	if run.FatalErr != nil {
		r.Error = run.FatalErr.Error()
	}
	for _, s := range run.Steps {
		sr := stepReport{
			ID:      s.ID,
			Name:    s.Name,
			Outcome: s.Outcome,
			Detail:  s.Detail,
			Elapsed: s.Elapsed.String(),
			Batch:   s.Batch,
		}
		if s.Err != nil {
			sr.Error = s.Err.Error()
		}
		r.Steps = append(r.Steps, sr)
	}
	return r
}

// writeReport stores the run as YAML at path, creating parent directories.
func writeReport(fs afero.Fs, path string, params domain.RefreshParams, run *domain.WorkflowRun) error {
	data, err := yaml.Marshal(newRunReport(params, run, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
