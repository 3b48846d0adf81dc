package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/flowsmith/internal/prompts"
)

// ControllerBuilder helps construct a Controller with a fluent API.
type ControllerBuilder struct {
	config     Config
	llm        LLMClient
	model      string
	runID      string
	goal       string
	dispatcher Dispatcher
	workflow   WorkflowState
	refine     RefinementSource
	hooks      Hooks
	recorder   Recorder
	registry   *prompts.PromptRegistry
	rules      string
}

// NewControllerBuilder creates a new builder with default configuration.
func NewControllerBuilder() *ControllerBuilder {
	return &ControllerBuilder{
		config: DefaultConfig(),
	}
}

// WithLLM sets the LLM client.
func (b *ControllerBuilder) WithLLM(llm LLMClient) *ControllerBuilder {
	b.llm = llm
	return b
}

// WithModel sets the model name.
func (b *ControllerBuilder) WithModel(model string) *ControllerBuilder {
	b.model = model
	return b
}

// WithRunID sets the run identifier. A random one is used otherwise.
func (b *ControllerBuilder) WithRunID(id string) *ControllerBuilder {
	b.runID = id
	return b
}

// WithGoal sets the user's description of the workflow to build.
func (b *ControllerBuilder) WithGoal(goal string) *ControllerBuilder {
	b.goal = goal
	return b
}

// WithDispatcher sets the dispatcher. If it also implements
// WorkflowState it is used as the state provider unless one is set.
func (b *ControllerBuilder) WithDispatcher(d Dispatcher) *ControllerBuilder {
	b.dispatcher = d
	return b
}

// WithWorkflowState sets the workflow snapshot provider.
func (b *ControllerBuilder) WithWorkflowState(w WorkflowState) *ControllerBuilder {
	b.workflow = w
	return b
}

// WithRefinement sets the operator refinement source.
func (b *ControllerBuilder) WithRefinement(r RefinementSource) *ControllerBuilder {
	b.refine = r
	return b
}

// WithConfig replaces the whole configuration.
func (b *ControllerBuilder) WithConfig(cfg Config) *ControllerBuilder {
	b.config = cfg
	return b
}

// WithWindowSize sets how many exchanges are replayed each turn.
func (b *ControllerBuilder) WithWindowSize(n int) *ControllerBuilder {
	b.config.WindowSize = n
	return b
}

// WithMaxCallAttempts bounds attempts to obtain a function call per turn.
func (b *ControllerBuilder) WithMaxCallAttempts(n int) *ControllerBuilder {
	b.config.MaxCallAttempts = n
	return b
}

// WithCallTimeout bounds a single model request.
func (b *ControllerBuilder) WithCallTimeout(d time.Duration) *ControllerBuilder {
	b.config.CallTimeout = d
	return b
}

// WithMaxTurns caps the turns taken by one Run call.
func (b *ControllerBuilder) WithMaxTurns(n int) *ControllerBuilder {
	b.config.MaxTurns = n
	return b
}

// WithOptions sets the completion options passed to the provider.
func (b *ControllerBuilder) WithOptions(opts CompletionOptions) *ControllerBuilder {
	b.config.Options = opts
	return b
}

// WithRetryConfig sets the transport retry configuration.
func (b *ControllerBuilder) WithRetryConfig(retryConfig *RetryConfig) *ControllerBuilder {
	b.config.Retry = retryConfig
	return b
}

// WithHooks sets custom hooks.
func (b *ControllerBuilder) WithHooks(hooks Hooks) *ControllerBuilder {
	b.hooks = hooks
	return b
}

// WithRecorder sets where request/response pairs are recorded.
func (b *ControllerBuilder) WithRecorder(r Recorder) *ControllerBuilder {
	b.recorder = r
	return b
}

// WithRules adds workspace-specific instructions as a final fixed system turn.
func (b *ControllerBuilder) WithRules(rules string) *ControllerBuilder {
	b.rules = rules
	return b
}

// WithPrompts sets the prompt registry. The workflow prompts are used otherwise.
func (b *ControllerBuilder) WithPrompts(reg *prompts.PromptRegistry) *ControllerBuilder {
	b.registry = reg
	return b
}

// Build constructs the Controller with an empty History.
func (b *ControllerBuilder) Build() (*Controller, error) {
	if b.llm == nil {
		return nil, fmt.Errorf("LLM client not configured: use WithLLM")
	}
	if b.dispatcher == nil {
		return nil, fmt.Errorf("dispatcher not configured: use WithDispatcher")
	}
	if b.workflow == nil {
		ws, ok := b.dispatcher.(WorkflowState)
		if !ok {
			return nil, fmt.Errorf("workflow state not configured: use WithWorkflowState")
		}
		b.workflow = ws
	}

	registry := b.registry
	if registry == nil {
		registry = prompts.NewWorkflowRegistry()
	}
	set, err := LoadPromptSet(registry)
	if err != nil {
		return nil, err
	}
	if b.rules != "" {
		set.Fixed = append(set.Fixed, b.rules)
	}

	if b.runID == "" {
		b.runID = uuid.NewString()
	}
	if b.hooks == nil {
		b.hooks = DefaultHooks()
	}
	cfg := b.config.normalize()

	logInitialConfiguration(set, b.dispatcher.Functions())

	return &Controller{
		client: &FunctionCallClient{
			LLM:         b.llm,
			Model:       b.model,
			MaxAttempts: cfg.MaxCallAttempts,
			Timeout:     cfg.CallTimeout,
			Options:     cfg.Options,
			Retry:       cfg.Retry,
			Hooks:       b.hooks,
			Recorder:    b.recorder,
		},
		assembler:  Assembler{Prompts: set},
		dispatcher: b.dispatcher,
		workflow:   b.workflow,
		refine:     b.refine,
		goal:       b.goal,
		config:     cfg,
		hooks:      b.hooks,
		state:      NewState(b.runID, b.model),
	}, nil
}

// logInitialConfiguration logs the fixed prompt and function declaration sizes.
func logInitialConfiguration(set PromptSet, functions []FunctionSchema) {
	promptTokens := EstimateTokens(set.Task) + EstimateTokens(set.User)
	for _, p := range set.Fixed {
		promptTokens += EstimateTokens(p)
	}
	fnTokens := Breakdown(nil, functions).Functions

	log.Printf("💰 TOKEN BREAKDOWN: prompts=~%d tokens, functions=~%d tokens, TOTAL=~%d tokens",
		promptTokens, fnTokens, promptTokens+fnTokens)
	if len(functions) == 0 {
		log.Printf("🔧 FUNCTIONS: none")
		return
	}
	names := make([]string, 0, len(functions))
	for _, f := range functions {
		names = append(names, f.Name)
	}
	log.Printf("🔧 FUNCTIONS: %d available %v", len(functions), names)
}
