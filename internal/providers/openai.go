package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIClient implements engine.LLMClient for OpenAI and OpenAI-compatible APIs.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	baseURL string
}

// NewOpenAIClient creates a new OpenAI client for the engine.
func NewOpenAIClient(apiKey, modelName, baseURL string) (*OpenAIClient, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		model:   modelName,
		baseURL: baseURL,
	}, nil
}

// Chat implements engine.LLMClient.
func (c *OpenAIClient) Chat(ctx context.Context, modelName string, turns []engine.Turn, functions []engine.FunctionSchema, opts engine.CompletionOptions) (engine.LLMResponse, error) {
	if modelName == "" {
		modelName = c.model
	}
	req, err := buildOpenAIRequest(modelName, turns, functions, opts)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err, openAIStatus)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}
	if len(resp.Choices) == 0 {
		return engine.LLMResponse{}, fmt.Errorf("empty response from OpenAI")
	}

	out := fromOpenAIMessage(resp.Choices[0].Message, resp.Choices[0].FinishReason)
	out.Usage = engine.Usage{
		Prompt:     resp.Usage.PromptTokens,
		Completion: resp.Usage.CompletionTokens,
		Total:      resp.Usage.TotalTokens,
	}
	return out, nil
}

func buildOpenAIRequest(modelName string, turns []engine.Turn, functions []engine.FunctionSchema, opts engine.CompletionOptions) (openai.ChatCompletionRequest, error) {
	req := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: toOpenAIMessages(turns),
	}

	for _, fs := range functions {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(fs.JSONSchema), &schemaObj); err != nil {
			return req, fmt.Errorf("invalid function schema JSON for %s: %w", fs.Name, err)
		}
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fs.Name,
				Description: fs.Description,
				Parameters:  schemaObj,
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	if n, ok := opts.Int("max_tokens"); ok && n > 0 {
		req.MaxTokens = n
	}
	if t, ok := opts.Float("temperature"); ok {
		req.Temperature = &t
	}
	return req, nil
}

// toOpenAIMessages maps turns one to one. A function turn whose call ID
// does not answer the preceding assistant call is sent as a user message,
// since the API rejects orphaned tool messages.
func toOpenAIMessages(turns []engine.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	pendingCallID := ""

	for _, t := range turns {
		switch t.Role {
		case engine.RoleSystem:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: t.Content})
			pendingCallID = ""
		case engine.RoleUser:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Content})
			pendingCallID = ""
		case engine.RoleAssistant:
			// The SDK serializes "" as null, which the API rejects.
			content := t.Content
			if content == "" {
				content = " "
			}
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
			pendingCallID = ""
			if t.HasCall() {
				args := t.Call.Arguments
				if strings.TrimSpace(args) == "" {
					args = "{}"
				}
				msg.ToolCalls = []openai.ToolCall{{
					ID:   t.Call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      t.Call.Name,
						Arguments: args,
					},
				}}
				pendingCallID = t.Call.ID
			}
			msgs = append(msgs, msg)
		case engine.RoleFunction:
			content := t.Content
			if content == "" {
				content = "{}"
			}
			if pendingCallID == "" || t.CallID != pendingCallID {
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Result of %s:\n%s", t.Name, content),
				})
				continue
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: t.CallID,
				Content:    content,
			})
			pendingCallID = ""
		}
	}
	return msgs
}

// fromOpenAIMessage keeps the first tool call; the protocol resolves one
// call per turn.
func fromOpenAIMessage(m openai.ChatCompletionMessage, reason openai.FinishReason) engine.LLMResponse {
	var call *engine.FunctionCall
	if len(m.ToolCalls) > 0 && m.ToolCalls[0].Function.Name != "" {
		tc := m.ToolCalls[0]
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		call = &engine.FunctionCall{ID: id, Name: tc.Function.Name, Arguments: tc.Function.Arguments}
	}

	finishReason := "stop"
	switch {
	case call != nil:
		finishReason = "function_call"
	case reason == openai.FinishReasonLength:
		finishReason = "length"
	case reason == openai.FinishReasonContentFilter:
		finishReason = "content_filter"
	}

	return engine.LLMResponse{
		Assistant:    engine.AssistantTurn(m.Content, call),
		FinishReason: finishReason,
	}
}

// openAIStatus reads the HTTP status from the SDK's typed errors.
func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
