package workflow

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bnema/envrefresh/internal/domain"
)

// stepFile is the on-disk shape of a workflow file. It can reorder,
// rename or skip built-in steps; it cannot define new ones.
//
//	steps:
//	  - id: restore
//	  - id: stop-environment
//	    skip: true
type stepFile struct {
	Steps []domain.StepDefinition `yaml:"steps"`
}

// LoadSteps parses a workflow file. The document is checked against the
// embedded schema before it is decoded.
func LoadSteps(r io.Reader) ([]domain.StepDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}
	if doc == nil {
		return nil, domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: workflow file is empty", domain.ErrInvalidConfig))
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	var f stepFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}
	if err := ValidateSteps(f.Steps); err != nil {
		return nil, err
	}
	return f.Steps, nil
}

// LoadStepsFile reads a workflow file from fs.
func LoadStepsFile(fs afero.Fs, path string) ([]domain.StepDefinition, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}
	defer file.Close()
	return LoadSteps(file)
}

// ValidateSteps rejects empty lists, unknown IDs and duplicates.
func ValidateSteps(steps []domain.StepDefinition) error {
	if len(steps) == 0 {
		return domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: no steps", domain.ErrInvalidConfig))
	}
	known := map[domain.StepID]bool{domain.StepGrantPermissions: true}
	for _, d := range domain.DefaultSteps() {
		known[d.ID] = true
	}
	seen := make(map[domain.StepID]bool, len(steps))
	for _, def := range steps {
		if !known[def.ID] {
			return domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: %q", domain.ErrUnknownStep, def.ID))
		}
		if seen[def.ID] {
			return domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: step %q listed twice", domain.ErrInvalidConfig, def.ID))
		}
		seen[def.ID] = true
	}
	return nil
}
