package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// CorrectionPrompt is the user turn appended after a reply without a
// function call.
const CorrectionPrompt = "No Function call here! You should always use a function call as your response."

// CallState is a state of the function-call protocol.
type CallState string

const (
	StateRequesting CallState = "requesting"
	StateValidating CallState = "validating"
	StateAccepted   CallState = "accepted"
	StateRetrying   CallState = "retrying"
	StateFailed     CallState = "failed"
)

// CallResult is an accepted function call.
type CallResult struct {
	Content   string         // free text sent with the call, possibly empty
	Name      string         // function name
	Arguments map[string]any // decoded arguments
	Turn      Turn           // raw assistant turn, stored in History
	Attempts  int            // requests issued, counting the first
}

// FunctionCallClient obtains exactly one structured call per Call,
// re-prompting the model when a reply carries none.
type FunctionCallClient struct {
	LLM         LLMClient
	Model       string
	MaxAttempts int               // counts the first attempt; <= 0 uses DefaultMaxCallAttempts
	Timeout     time.Duration     // bounds one request including transport retries; 0 disables
	Options     CompletionOptions // passed through to the provider
	Retry       *RetryConfig      // transport retry; nil sends each request once
	Hooks       Hook
	Recorder    Recorder
}

// Call submits conversation and returns the first reply that carries a
// function call. conversation is never modified; corrective turns live in
// a private copy that is discarded when Call returns.
func (c *FunctionCallClient) Call(ctx context.Context, st *State, conversation []Turn, functions []FunctionSchema) (CallResult, error) {
	if st == nil {
		st = NewState("", c.Model)
	}
	hooks := c.Hooks
	if hooks == nil {
		hooks = NopHook{}
	}
	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxCallAttempts
	}

	fail := func(from CallState, attempt int, err error) (CallResult, error) {
		hooks.OnCallTransition(ctx, st, from, StateFailed, attempt)
		hooks.OnCallFailed(ctx, st, err)
		return CallResult{}, err
	}

	inflight := conversation[:len(conversation):len(conversation)]
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fail(StateRequesting, attempt, err)
		}

		resp, err := c.request(ctx, st, hooks, inflight, functions, attempt)
		if err != nil {
			return fail(StateRequesting, attempt, err)
		}
		hooks.OnCallTransition(ctx, st, StateRequesting, StateValidating, attempt)

		reply := resp.Assistant
		reply.Role = RoleAssistant
		if reply.HasCall() {
			if err := reply.Validate(); err != nil {
				return fail(StateValidating, attempt, &InvalidReplyError{Name: reply.Call.Name, Err: err})
			}
			hooks.OnCallTransition(ctx, st, StateValidating, StateAccepted, attempt)
			args, err := DecodeArguments(reply.Call.Arguments)
			if err != nil {
				return fail(StateAccepted, attempt, &MalformedArgumentsError{
					Name: reply.Call.Name,
					Raw:  reply.Call.Arguments,
					Err:  err,
				})
			}
			return CallResult{
				Content:   reply.Content,
				Name:      reply.Call.Name,
				Arguments: args,
				Turn:      reply,
				Attempts:  attempt,
			}, nil
		}

		if attempt >= maxAttempts {
			return fail(StateValidating, attempt, &NoFunctionCallError{Attempts: attempt, LastContent: reply.Content})
		}

		hooks.OnCallTransition(ctx, st, StateValidating, StateRetrying, attempt)
		st.Retries++
		hooks.OnCallRetry(ctx, st, attempt, maxAttempts, reply.Content)
		inflight = append(inflight[:len(inflight):len(inflight)],
			AssistantTurn(reply.Content, nil),
			UserTurn(CorrectionPrompt),
		)
		hooks.OnCallTransition(ctx, st, StateRetrying, StateRequesting, attempt+1)
	}
}

// request performs one Requesting step: a bounded model call wrapped in
// transport retry, recorded whether it succeeds or not.
func (c *FunctionCallClient) request(ctx context.Context, st *State, hooks Hook, turns []Turn, functions []FunctionSchema, attempt int) (LLMResponse, error) {
	callCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	opts := c.Options.Clone()
	hooks.OnBeforeLLM(ctx, st, turns, functions)
	start := time.Now()

	var (
		resp LLMResponse
		err  error
	)
	if c.Retry != nil {
		policy := c.Retry.LLMPolicy
		resp, err = RetryLLMCall(callCtx, policy, c.LLM, c.Model, turns, functions, opts,
			func(n int, delay time.Duration, rerr error) {
				hooks.OnRetryAttempt(ctx, st, n, policy.MaxRetries, delay, rerr)
			})
		if IsRetryExhausted(err) {
			hooks.OnRetryExhausted(ctx, st, err)
		}
	} else {
		resp, err = c.LLM.Chat(callCtx, c.Model, turns, functions, opts)
	}

	if c.Recorder != nil {
		rec := CallRecord{
			RunID:     st.RunID,
			Turn:      st.Turn,
			Attempt:   attempt,
			Model:     c.Model,
			Request:   append([]Turn(nil), turns...),
			Functions: functions,
			Options:   opts,
			Response:  resp,
			Err:       err,
			Duration:  time.Since(start),
		}
		if rerr := c.Recorder.Record(ctx, rec); rerr != nil {
			hooks.OnRecordError(ctx, st, rerr)
		}
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return LLMResponse{}, fmt.Errorf("model request timed out after %s (attempt %d): %w", c.Timeout, attempt, err)
		}
		return LLMResponse{}, fmt.Errorf("model request failed (attempt %d): %w", attempt, err)
	}

	st.Totals.Prompt += resp.Usage.Prompt
	st.Totals.Completion += resp.Usage.Completion
	st.Totals.Total += resp.Usage.Total
	hooks.OnAfterLLM(ctx, st, resp)
	return resp, nil
}

// DecodeArguments decodes a call's argument text into a mapping. Empty
// text is an empty mapping. Raw control characters inside strings are
// tolerated since models often emit literal newlines in code arguments.
// Numbers decode as json.Number so integers survive unchanged.
func DecodeArguments(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(escapeControlInStrings(trimmed)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode arguments: unexpected data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode arguments: expected a JSON object, got %s", jsonKind(v))
	}
	return obj, nil
}

// escapeControlInStrings rewrites raw control characters that appear
// inside JSON string literals as escapes. Text outside strings is left
// as is.
func escapeControlInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !inString {
			if ch == '"' {
				inString = true
			}
			b.WriteByte(ch)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteByte(ch)
		case ch == '\\':
			escaped = true
			b.WriteByte(ch)
		case ch == '"':
			inString = false
			b.WriteByte(ch)
		case ch == '\n':
			b.WriteString(`\n`)
		case ch == '\r':
			b.WriteString(`\r`)
		case ch == '\t':
			b.WriteString(`\t`)
		case ch < 0x20:
			fmt.Fprintf(&b, `\u%04x`, ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}
