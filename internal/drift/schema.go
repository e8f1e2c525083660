package drift

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const planSchemaDoc = `{
	"type": "object",
	"properties": {
		"planned_values": {
			"type": "object",
			"properties": {
				"root_module": {"type": "object"}
			}
		},
		"resource_changes": {"type": "array"}
	}
}`

var (
	planSchema     *jsonschema.Schema
	planSchemaOnce sync.Once
)

func compiledPlanSchema() *jsonschema.Schema {
	planSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("plan.json", strings.NewReader(planSchemaDoc)); err != nil {
			panic(fmt.Errorf("compile plan schema resource: %w", err))
		}
		schema, err := compiler.Compile("plan.json")
		if err != nil {
			panic(fmt.Errorf("compile plan schema: %w", err))
		}
		planSchema = schema
	})
	return planSchema
}

// ValidationError reports that a submitted plan document does not match the
// minimal shape spec §4.3 requires before Analyze walks it.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid plan document: %v", e.Cause) }
func (e *ValidationError) Unwrap() error { return e.Cause }

// ValidatePlan rejects plan documents whose top-level shape can't satisfy
// Analyze's address-collection and action-summary walks.
func ValidatePlan(plan map[string]any) error {
	if err := compiledPlanSchema().Validate(plan); err != nil {
		return &ValidationError{Cause: err}
	}
	return nil
}
