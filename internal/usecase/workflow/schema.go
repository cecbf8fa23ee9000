package workflow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bnema/envrefresh/internal/domain"
)

//go:embed workflow.schema.json
var stepSchemaJSON string

var stepSchema = jsonschema.MustCompileString("workflow.schema.json", stepSchemaJSON)

// validateDocument checks a decoded YAML document against the workflow
// schema. The document goes through JSON first so numbers and maps have
// the shapes the validator expects.
func validateDocument(doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}
	if err := stepSchema.Validate(v); err != nil {
		return domain.NewPrerequisiteError("load workflow", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err))
	}
	return nil
}
