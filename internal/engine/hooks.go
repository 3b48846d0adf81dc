// engine/hooks.go
package engine

import (
	"context"
	"time"
)

// Hook is the observability seam. Hooks see the run but never feed back
// into it.
type Hook interface {
	OnTurnStart(ctx context.Context, st *State)
	// OnContextAssembled receives the logical context and its human
	// rendering with the colorized workflow snapshot.
	OnContextAssembled(ctx context.Context, st *State, conversation []Turn, rendered string)
	OnBeforeLLM(ctx context.Context, st *State, turns []Turn, functions []FunctionSchema)
	OnAfterLLM(ctx context.Context, st *State, resp LLMResponse)
	// Function-call protocol
	OnCallTransition(ctx context.Context, st *State, from, to CallState, attempt int)
	OnCallRetry(ctx context.Context, st *State, attempt, maxAttempts int, content string)
	OnCallFailed(ctx context.Context, st *State, err error)
	OnAction(ctx context.Context, st *State, action Action)
	OnHistoryChanged(ctx context.Context, st *State)
	OnDone(ctx context.Context, st *State)
	// Transport retry hooks
	OnRetryAttempt(ctx context.Context, st *State, attempt int, maxAttempts int, delay time.Duration, err error)
	OnRetryExhausted(ctx context.Context, st *State, err error)
	OnRecordError(ctx context.Context, st *State, err error)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnTurnStart(context.Context, *State)                                    {}
func (NopHook) OnContextAssembled(context.Context, *State, []Turn, string)             {}
func (NopHook) OnBeforeLLM(context.Context, *State, []Turn, []FunctionSchema)          {}
func (NopHook) OnAfterLLM(context.Context, *State, LLMResponse)                        {}
func (NopHook) OnCallTransition(context.Context, *State, CallState, CallState, int)    {}
func (NopHook) OnCallRetry(context.Context, *State, int, int, string)                  {}
func (NopHook) OnCallFailed(context.Context, *State, error)                            {}
func (NopHook) OnAction(context.Context, *State, Action)                               {}
func (NopHook) OnHistoryChanged(context.Context, *State)                               {}
func (NopHook) OnDone(context.Context, *State)                                         {}
func (NopHook) OnRetryAttempt(context.Context, *State, int, int, time.Duration, error) {}
func (NopHook) OnRetryExhausted(context.Context, *State, error)                        {}
func (NopHook) OnRecordError(context.Context, *State, error)                           {}
