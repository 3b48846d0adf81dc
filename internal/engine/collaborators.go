package engine

import (
	"context"
	"time"
)

// Dispatcher resolves structured calls into Actions. It owns the workflow
// under construction and decides when the work is finished by returning
// an Action with Done set.
type Dispatcher interface {
	// Functions lists the callable functions offered to the model.
	Functions() []FunctionSchema
	// RenderCatalog renders the integrations the workflow may use.
	RenderCatalog() string
	// Resolve turns one call into an Action. A returned error aborts the
	// run; recoverable problems belong in Action.ToolOutput instead.
	Resolve(ctx context.Context, content, name string, args map[string]any) (Action, error)
}

// WorkflowState exposes the program being built, for embedding in prompts.
type WorkflowState interface {
	// RenderState returns the plain snapshot sent to the model.
	RenderState(indent int) string
	// RenderStateColored returns a terminal-highlighted snapshot for humans.
	RenderStateColored(indent int) string
}

// RefinementSource supplies operator corrections appended to the user turn.
type RefinementSource interface {
	Refinement() string
}

// StaticRefinement is a fixed refinement text.
type StaticRefinement string

// Refinement implements RefinementSource.
func (s StaticRefinement) Refinement() string { return string(s) }

// CallRecord is one request/response pair sent to the model.
type CallRecord struct {
	RunID     string
	Turn      int
	Attempt   int
	Model     string
	Request   []Turn
	Functions []FunctionSchema
	Options   CompletionOptions
	Response  LLMResponse
	Err       error
	Duration  time.Duration
}

// Recorder receives every request/response pair for later replay or audit.
// Recording failures are reported to hooks and never stop the run.
type Recorder interface {
	Record(ctx context.Context, rec CallRecord) error
}
