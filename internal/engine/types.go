package engine

import (
	"context"
	"fmt"
)

// MessageRole represents the role of a conversation turn.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleFunction  MessageRole = "function"
)

// FunctionCall is the structured call carried by an assistant turn.
// Arguments stay as the raw text the model produced.
type FunctionCall struct {
	ID        string `json:"id,omitempty"` // Provider call ID (call_xxx, toolu_xxx)
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Turn is one message in the model conversation. Which fields are
// meaningful depends on Role; use the constructors below and Validate.
type Turn struct {
	Role    MessageRole   `json:"role"`
	Content string        `json:"content,omitempty"`
	Name    string        `json:"name,omitempty"`    // function turns: the function that produced Content
	CallID  string        `json:"call_id,omitempty"` // function turns: ID of the call being answered
	Call    *FunctionCall `json:"call,omitempty"`    // assistant turns only
}

// SystemTurn returns a system instruction turn.
func SystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

// UserTurn returns a user instruction turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn returns a model reply. call may be nil for free-text replies.
func AssistantTurn(content string, call *FunctionCall) Turn {
	return Turn{Role: RoleAssistant, Content: content, Call: call}
}

// FunctionTurn returns the result record of a resolved call.
func FunctionTurn(name, callID, content string) Turn {
	return Turn{Role: RoleFunction, Name: name, CallID: callID, Content: content}
}

// HasCall reports whether the turn carries a structured call.
func (t Turn) HasCall() bool {
	return t.Call != nil && t.Call.Name != ""
}

// Validate checks that the turn only uses fields valid for its role.
func (t Turn) Validate() error {
	switch t.Role {
	case RoleSystem, RoleUser:
		if t.Call != nil || t.Name != "" || t.CallID != "" {
			return fmt.Errorf("%s turns carry content only", t.Role)
		}
	case RoleAssistant:
		if t.Name != "" || t.CallID != "" {
			return fmt.Errorf("assistant turns cannot carry a function name or call ID")
		}
		if t.Call != nil && t.Call.Name == "" {
			return fmt.Errorf("assistant call is missing a function name")
		}
	case RoleFunction:
		if t.Name == "" {
			return fmt.Errorf("function turns must have a Name field")
		}
		if t.Call != nil {
			return fmt.Errorf("function turns cannot carry a call")
		}
	default:
		return fmt.Errorf("invalid message role: %s", t.Role)
	}
	return nil
}

// Usage holds token accounting returned by providers.
type Usage struct {
	Prompt     int
	Completion int
	Total      int
}

// LLMResponse is a normalized result of one chat call.
type LLMResponse struct {
	Assistant    Turn // Role is always RoleAssistant; Call set when the model made one
	Usage        Usage
	FinishReason string // "stop" | "length" | "function_call" | "content_filter"
}

// LLMClient abstracts the chosen SDK (OpenAI, Anthropic, a replay log, ...).
type LLMClient interface {
	Chat(ctx context.Context, model string, turns []Turn, functions []FunctionSchema, opts CompletionOptions) (LLMResponse, error)
}

// FunctionSchema is the declaration of a callable function sent to the model.
type FunctionSchema struct {
	Name        string
	Description string
	JSONSchema  string // raw JSON schema of the arguments object
}

// CompletionOptions is a pass-through map of provider knobs such as
// "temperature" or "max_tokens". Providers ignore keys they do not know.
type CompletionOptions map[string]any

// Float returns the option as float32.
func (o CompletionOptions) Float(key string) (float32, bool) {
	switch v := o[key].(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int:
		return float32(v), true
	case int64:
		return float32(v), true
	}
	return 0, false
}

// Int returns the option as int.
func (o CompletionOptions) Int(key string) (int, bool) {
	switch v := o[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	}
	return 0, false
}

// Strings returns the option as a string slice. A single string is
// promoted to a one-element slice.
func (o CompletionOptions) Strings(key string) ([]string, bool) {
	switch v := o[key].(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Clone returns a shallow copy so callers can add keys without affecting
// the configured options.
func (o CompletionOptions) Clone() CompletionOptions {
	out := make(CompletionOptions, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
