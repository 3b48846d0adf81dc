package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// FunctionFunc resolves a validated call. content is the free text the
// model sent alongside the call.
type FunctionFunc func(ctx context.Context, content string, args map[string]any) (Action, error)

// Function is a callable offered to the model.
type Function struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          FunctionFunc
}

// ValidateArgs validates the provided arguments against the function's JSON schema.
func (f Function) ValidateArgs(args map[string]any) error {
	if f.SchemaJSON == "" {
		return nil
	}
	schemaLoader := gojsonschema.NewStringLoader(f.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ArgumentValidationError{
			FunctionName: f.Name,
			Errors:       errorMsgs,
		}
	}

	return nil
}

// Schema returns the declaration sent to the model.
func (f Function) Schema() FunctionSchema {
	return FunctionSchema{Name: f.Name, Description: f.Description, JSONSchema: f.SchemaJSON}
}

// FunctionRegistry maps function names to definitions.
type FunctionRegistry map[string]Function

// Register adds or replaces a function.
func (r FunctionRegistry) Register(f Function) {
	r[f.Name] = f
}

// Schemas returns declarations sorted by name so requests are stable.
func (r FunctionRegistry) Schemas() []FunctionSchema {
	s := make([]FunctionSchema, 0, len(r))
	for _, f := range r {
		s = append(s, f.Schema())
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })
	return s
}
