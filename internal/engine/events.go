package engine

import (
	"context"
	"time"
)

// Event is one hook callback as a value, for UIs and the NDJSON stream.
type Event struct {
	Kind string `json:"kind"` // "turn_start", "context", "before_llm", "after_llm", "call_state", "call_retry", "call_failed", "action", "history_changed", "done", "retry_attempt", "retry_exhausted", "record_error"; cmd adds "refinement"
	Data any    `json:"data,omitempty"`
}

// EventHook bridges engine → UI channel. Sends block, so the consumer
// must drain Ch for the run to progress.
type EventHook struct{ Ch chan<- Event }

func (h EventHook) OnTurnStart(_ context.Context, st *State) {
	h.Ch <- Event{Kind: "turn_start", Data: st.Turn}
}
func (h EventHook) OnContextAssembled(_ context.Context, _ *State, conv []Turn, rendered string) {
	h.Ch <- Event{Kind: "context", Data: map[string]any{"turns": len(conv), "rendered": rendered}}
}
func (h EventHook) OnBeforeLLM(_ context.Context, _ *State, turns []Turn, fns []FunctionSchema) {
	h.Ch <- Event{Kind: "before_llm", Data: map[string]any{"messages": len(turns), "functions": len(fns)}}
}
func (h EventHook) OnAfterLLM(_ context.Context, _ *State, r LLMResponse) {
	h.Ch <- Event{Kind: "after_llm", Data: r.FinishReason}
}
func (h EventHook) OnCallTransition(_ context.Context, _ *State, from, to CallState, attempt int) {
	h.Ch <- Event{Kind: "call_state", Data: map[string]any{"from": from, "to": to, "attempt": attempt}}
}
func (h EventHook) OnCallRetry(_ context.Context, _ *State, attempt, maxAttempts int, content string) {
	h.Ch <- Event{Kind: "call_retry", Data: map[string]any{
		"attempt":     attempt,
		"maxAttempts": maxAttempts,
		"content":     content,
	}}
}
func (h EventHook) OnCallFailed(_ context.Context, _ *State, err error) {
	h.Ch <- Event{Kind: "call_failed", Data: err.Error()}
}
func (h EventHook) OnAction(_ context.Context, _ *State, a Action) {
	h.Ch <- Event{Kind: "action", Data: a}
}
func (h EventHook) OnHistoryChanged(_ context.Context, st *State) {
	h.Ch <- Event{Kind: "history_changed", Data: st.History.Len()}
}
func (h EventHook) OnDone(_ context.Context, st *State) {
	h.Ch <- Event{Kind: "done", Data: st.Totals}
}
func (h EventHook) OnRetryAttempt(_ context.Context, _ *State, attempt int, maxAttempts int, delay time.Duration, err error) {
	h.Ch <- Event{Kind: "retry_attempt", Data: map[string]any{
		"attempt":     attempt,
		"maxAttempts": maxAttempts,
		"delay":       delay,
		"error":       err.Error(),
	}}
}
func (h EventHook) OnRetryExhausted(_ context.Context, _ *State, err error) {
	h.Ch <- Event{Kind: "retry_exhausted", Data: err.Error()}
}
func (h EventHook) OnRecordError(_ context.Context, _ *State, err error) {
	h.Ch <- Event{Kind: "record_error", Data: err.Error()}
}
