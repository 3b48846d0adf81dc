package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

// Builder owns the workflow under construction and resolves calls into
// actions. It implements engine.Dispatcher and engine.WorkflowState.
type Builder struct {
	mu        sync.RWMutex
	catalog   *Catalog
	wf        Workflow
	functions engine.FunctionRegistry
}

// NewBuilder returns a builder offering the intrinsic functions over catalog.
func NewBuilder(catalog *Catalog) *Builder {
	if catalog == nil {
		catalog = &Catalog{}
	}
	b := &Builder{catalog: catalog}
	b.functions = b.intrinsics()
	return b
}

// Functions implements engine.Dispatcher.
func (b *Builder) Functions() []engine.FunctionSchema {
	return b.functions.Schemas()
}

// RenderCatalog implements engine.Dispatcher.
func (b *Builder) RenderCatalog() string {
	return b.catalog.Render()
}

// Resolve implements engine.Dispatcher. Unknown functions, invalid
// arguments and rejected edits come back as an "ERROR: ..." output so the
// model can correct itself; only cancellation aborts the run.
func (b *Builder) Resolve(ctx context.Context, content, name string, args map[string]any) (engine.Action, error) {
	if err := ctx.Err(); err != nil {
		return engine.Action{}, err
	}

	fn, ok := b.functions[name]
	if !ok {
		return failed(name, args, fmt.Errorf("unknown function %q", name)), nil
	}
	if err := fn.ValidateArgs(args); err != nil {
		return failed(name, args, err), nil
	}

	action, err := fn.Fn(ctx, content, args)
	if err != nil {
		if ctx.Err() != nil {
			return engine.Action{}, err
		}
		log.Printf("⚠️  %s rejected: %v", name, err)
		return failed(name, args, err), nil
	}
	action.ToolName = name
	action.ToolArguments = args
	return action, nil
}

func failed(name string, args map[string]any, err error) engine.Action {
	return engine.Action{
		ToolName:      name,
		ToolArguments: args,
		ToolOutput:    "ERROR: " + err.Error(),
	}
}

// RenderState implements engine.WorkflowState.
func (b *Builder) RenderState(indent int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.wf.Render(indent)
}

// RenderStateColored implements engine.WorkflowState.
func (b *Builder) RenderStateColored(indent int) string {
	return Highlight(b.RenderState(indent))
}

// Workflow returns a copy of the current workflow.
func (b *Builder) Workflow() Workflow {
	b.mu.RLock()
	defer b.mu.RUnlock()
	wf := b.wf
	wf.Nodes = append([]Node(nil), b.wf.Nodes...)
	wf.Questions = append([]string(nil), b.wf.Questions...)
	return wf
}

// Snapshot serializes the workflow for session storage.
func (b *Builder) Snapshot() (json.RawMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, err := json.Marshal(b.wf)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}
	return data, nil
}

// Restore replaces the workflow with a snapshot. An empty snapshot resets it.
func (b *Builder) Restore(raw json.RawMessage) error {
	var wf Workflow
	if len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&wf); err != nil {
			return fmt.Errorf("failed to restore workflow: %w", err)
		}
	}
	b.mu.Lock()
	b.wf = wf
	b.mu.Unlock()
	return nil
}
