package engine

import (
	"context"
	"log"
	"time"
)

// Hooks fans every event out to each hook in order. A hook that panics
// is logged and skipped so observers cannot abort a run.
type Hooks []Hook

func (hs Hooks) each(event string, fn func(Hook)) {
	for _, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("⚠️  hook %T panicked in %s: %v", h, event, r)
				}
			}()
			fn(h)
		}()
	}
}

func (hs Hooks) OnTurnStart(ctx context.Context, st *State) {
	hs.each("OnTurnStart", func(h Hook) { h.OnTurnStart(ctx, st) })
}

func (hs Hooks) OnContextAssembled(ctx context.Context, st *State, conv []Turn, rendered string) {
	hs.each("OnContextAssembled", func(h Hook) { h.OnContextAssembled(ctx, st, conv, rendered) })
}

func (hs Hooks) OnBeforeLLM(ctx context.Context, st *State, turns []Turn, fns []FunctionSchema) {
	hs.each("OnBeforeLLM", func(h Hook) { h.OnBeforeLLM(ctx, st, turns, fns) })
}

func (hs Hooks) OnAfterLLM(ctx context.Context, st *State, r LLMResponse) {
	hs.each("OnAfterLLM", func(h Hook) { h.OnAfterLLM(ctx, st, r) })
}

func (hs Hooks) OnCallTransition(ctx context.Context, st *State, from, to CallState, attempt int) {
	hs.each("OnCallTransition", func(h Hook) { h.OnCallTransition(ctx, st, from, to, attempt) })
}

func (hs Hooks) OnCallRetry(ctx context.Context, st *State, attempt, maxAttempts int, content string) {
	hs.each("OnCallRetry", func(h Hook) { h.OnCallRetry(ctx, st, attempt, maxAttempts, content) })
}

func (hs Hooks) OnCallFailed(ctx context.Context, st *State, err error) {
	hs.each("OnCallFailed", func(h Hook) { h.OnCallFailed(ctx, st, err) })
}

func (hs Hooks) OnAction(ctx context.Context, st *State, a Action) {
	hs.each("OnAction", func(h Hook) { h.OnAction(ctx, st, a) })
}

func (hs Hooks) OnHistoryChanged(ctx context.Context, st *State) {
	hs.each("OnHistoryChanged", func(h Hook) { h.OnHistoryChanged(ctx, st) })
}

func (hs Hooks) OnDone(ctx context.Context, st *State) {
	hs.each("OnDone", func(h Hook) { h.OnDone(ctx, st) })
}

func (hs Hooks) OnRetryAttempt(ctx context.Context, st *State, attempt, maxAttempts int, delay time.Duration, err error) {
	hs.each("OnRetryAttempt", func(h Hook) { h.OnRetryAttempt(ctx, st, attempt, maxAttempts, delay, err) })
}

func (hs Hooks) OnRetryExhausted(ctx context.Context, st *State, err error) {
	hs.each("OnRetryExhausted", func(h Hook) { h.OnRetryExhausted(ctx, st, err) })
}

func (hs Hooks) OnRecordError(ctx context.Context, st *State, err error) {
	hs.each("OnRecordError", func(h Hook) { h.OnRecordError(ctx, st, err) })
}
