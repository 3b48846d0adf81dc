package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const (
	anthropicDefaultMaxTokens   = 4096
	anthropicDefaultTemperature = float32(0.1)
)

// AnthropicClient implements engine.LLMClient by calling Anthropic SDK directly.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client for the engine.
func NewAnthropicClient(apiKey, modelName string) (*AnthropicClient, error) {
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey),
		model:  modelName,
	}, nil
}

// Chat implements engine.LLMClient.
func (c *AnthropicClient) Chat(ctx context.Context, modelName string, turns []engine.Turn, functions []engine.FunctionSchema, opts engine.CompletionOptions) (engine.LLMResponse, error) {
	if modelName == "" {
		modelName = c.model
	}
	req, err := buildAnthropicRequest(modelName, turns, functions, opts)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err, anthropicStatus)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	var text strings.Builder
	var call *engine.FunctionCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				text.WriteString(*block.Text)
			}
		case "tool_use":
			// First call wins; one call is resolved per turn.
			if call != nil || block.MessageContentToolUse == nil || block.Name == "" {
				continue
			}
			id := block.ID
			if id == "" {
				id = "toolu_" + uuid.NewString()
			}
			call = &engine.FunctionCall{ID: id, Name: block.Name, Arguments: string(block.Input)}
		}
	}

	finishReason := "stop"
	switch {
	case call != nil:
		finishReason = "function_call"
	case resp.StopReason == "max_tokens":
		finishReason = "length"
	case resp.StopReason == "content_filtered":
		finishReason = "content_filter"
	}

	return engine.LLMResponse{
		Assistant: engine.AssistantTurn(text.String(), call),
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finishReason,
	}, nil
}

func buildAnthropicRequest(modelName string, turns []engine.Turn, functions []engine.FunctionSchema, opts engine.CompletionOptions) (anthropic.MessagesRequest, error) {
	system, msgs := toAnthropicMessages(turns)

	maxTokens := anthropicDefaultMaxTokens
	if n, ok := opts.Int("max_tokens"); ok && n > 0 {
		maxTokens = n
	}
	temperature := anthropicDefaultTemperature
	if t, ok := opts.Float("temperature"); ok {
		temperature = t
	}

	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(modelName),
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
	if len(system) > 0 {
		req.MultiSystem = system
	}
	if p, ok := opts.Float("top_p"); ok {
		req.TopP = &p
	}
	if stop, ok := opts.Strings("stop"); ok {
		req.StopSequences = stop
	}

	for _, fs := range functions {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(fs.JSONSchema), &schemaObj); err != nil {
			return req, fmt.Errorf("invalid function schema JSON for %s: %w", fs.Name, err)
		}
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        fs.Name,
			Description: fs.Description,
			InputSchema: schemaObj,
		})
	}
	return req, nil
}

// toAnthropicMessages lifts system turns into the system prompt and merges
// consecutive same-role blocks, since the API expects alternating roles.
func toAnthropicMessages(turns []engine.Turn) ([]anthropic.MessageSystemPart, []anthropic.Message) {
	var system []anthropic.MessageSystemPart
	var msgs []anthropic.Message
	pendingCallID := ""

	push := func(role anthropic.ChatRole, blocks ...anthropic.MessageContent) {
		if len(blocks) == 0 {
			return
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
			return
		}
		msgs = append(msgs, anthropic.Message{Role: role, Content: blocks})
	}

	for _, t := range turns {
		switch t.Role {
		case engine.RoleSystem:
			system = append(system, anthropic.MessageSystemPart{Type: "text", Text: t.Content})
		case engine.RoleUser:
			push(anthropic.RoleUser, anthropic.NewTextMessageContent(t.Content))
			pendingCallID = ""
		case engine.RoleAssistant:
			var blocks []anthropic.MessageContent
			if strings.TrimSpace(t.Content) != "" {
				blocks = append(blocks, anthropic.NewTextMessageContent(t.Content))
			}
			pendingCallID = ""
			if t.HasCall() {
				args := t.Call.Arguments
				if !json.Valid([]byte(args)) {
					args = "{}"
				}
				blocks = append(blocks, anthropic.NewToolUseMessageContent(t.Call.ID, t.Call.Name, json.RawMessage(args)))
				pendingCallID = t.Call.ID
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextMessageContent(" "))
			}
			push(anthropic.RoleAssistant, blocks...)
		case engine.RoleFunction:
			content := t.Content
			if content == "" {
				content = "{}"
			}
			if pendingCallID == "" || t.CallID != pendingCallID {
				push(anthropic.RoleUser, anthropic.NewTextMessageContent(fmt.Sprintf("Result of %s:\n%s", t.Name, content)))
				continue
			}
			push(anthropic.RoleUser, anthropic.NewToolResultMessageContent(t.CallID, content, false))
			pendingCallID = ""
		}
	}
	return system, msgs
}

// anthropicErrStatus maps API error types to the status the API sends
// with them; the SDK drops the status for decoded error bodies.
var anthropicErrStatus = map[anthropic.ErrType]int{
	anthropic.ErrTypeInvalidRequest: http.StatusBadRequest,
	anthropic.ErrTypeAuthentication: http.StatusUnauthorized,
	anthropic.ErrTypePermission:     http.StatusForbidden,
	anthropic.ErrTypeNotFound:       http.StatusNotFound,
	anthropic.ErrTypeTooLarge:       http.StatusRequestEntityTooLarge,
	anthropic.ErrTypeRateLimit:      http.StatusTooManyRequests,
	anthropic.ErrTypeApi:            http.StatusInternalServerError,
	anthropic.ErrTypeOverloaded:     529,
}

// anthropicStatus reads the HTTP status from the SDK's typed errors.
func anthropicStatus(err error) int {
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return anthropicErrStatus[apiErr.Type]
	}
	return 0
}
