// engine/hook_logger.go
package engine

import (
	"context"
	"errors"
	"log"
	"time"
)

type LoggerHook struct{ L *log.Logger }

func (h LoggerHook) OnTurnStart(_ context.Context, st *State) {
	h.L.Printf("turn=%d history=%d", st.Turn, st.History.Len())
}
func (h LoggerHook) OnContextAssembled(_ context.Context, st *State, conv []Turn, _ string) {
	h.L.Printf("🧩 turn=%d: context assembled with %d turns", st.Turn, len(conv))
}
func (h LoggerHook) OnBeforeLLM(_ context.Context, st *State, turns []Turn, functions []FunctionSchema) {
	h.L.Printf("📤 turn=%d: %d msgs, %d functions | 💰 tokens=%s cumulative=%d",
		st.Turn, len(turns), len(functions), Breakdown(turns, functions), st.Totals.Total)
}
func (h LoggerHook) OnAfterLLM(_ context.Context, st *State, r LLMResponse) {
	h.L.Printf("finish=%s tokens: prompt=%d completion=%d total=%d (cumulative=%d)",
		r.FinishReason, r.Usage.Prompt, r.Usage.Completion, r.Usage.Total, st.Totals.Total)
}
func (h LoggerHook) OnCallTransition(_ context.Context, _ *State, from, to CallState, attempt int) {
	h.L.Printf("call attempt=%d %s → %s", attempt, from, to)
}
func (h LoggerHook) OnCallRetry(_ context.Context, _ *State, attempt, maxAttempts int, content string) {
	preview := content
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	h.L.Printf("⚠️  no function call (attempt %d/%d), re-prompting. reply: %q", attempt, maxAttempts, preview)
}
func (h LoggerHook) OnCallFailed(_ context.Context, st *State, err error) {
	h.L.Printf("❌ turn=%d function call failed: %v", st.Turn, err)
	var ee *EngineError
	if errors.As(err, &ee) && ee.Unauthorized() {
		h.L.Printf("🔑 the provider rejected the credentials; check the API key")
	}
}
func (h LoggerHook) OnAction(_ context.Context, _ *State, a Action) {
	outputPreview := a.ToolOutput
	if len(outputPreview) > 200 {
		outputPreview = outputPreview[:200] + "..."
	}
	h.L.Printf("function → %s args=%v output: %s", a.ToolName, a.ToolArguments, outputPreview)
}
func (h LoggerHook) OnHistoryChanged(_ context.Context, _ *State) {}
func (h LoggerHook) OnDone(_ context.Context, st *State) {
	h.L.Printf("✅ done: turns=%d retries=%d tokens=%d", st.Turn, st.Retries, st.Totals.Total)
}
func (h LoggerHook) OnRetryAttempt(_ context.Context, _ *State, attempt int, maxAttempts int, delay time.Duration, err error) {
	var ee *EngineError
	if errors.As(err, &ee) && ee.RateLimited() {
		h.L.Printf("⏳ rate limited, waiting %v (attempt %d/%d)", delay, attempt, maxAttempts)
		return
	}
	h.L.Printf("retry attempt=%d/%d delay=%v error=%v", attempt, maxAttempts, delay, err)
}
func (h LoggerHook) OnRetryExhausted(_ context.Context, _ *State, err error) {
	h.L.Printf("retries exhausted: %v", err)
}
func (h LoggerHook) OnRecordError(_ context.Context, _ *State, err error) {
	h.L.Printf("⚠️  recorder: %v", err)
}
