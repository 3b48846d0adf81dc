package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
	"github.com/ChamsBouzaiene/flowsmith/internal/prompts"
)

// Summarizer titles and summarizes sessions with the run's model.
type Summarizer struct {
	llm      engine.LLMClient
	model    string
	registry *prompts.PromptRegistry
}

// NewSummarizer creates a session summarizer. A nil registry uses the
// built-in prompts.
func NewSummarizer(llm engine.LLMClient, model string, registry *prompts.PromptRegistry) *Summarizer {
	if registry == nil {
		registry = prompts.NewWorkflowRegistry()
	}
	return &Summarizer{llm: llm, model: model, registry: registry}
}

// GenerateTitle generates a short 3-5 word title for the session.
func (s *Summarizer) GenerateTitle(ctx context.Context, goal string) (string, error) {
	if strings.TrimSpace(goal) == "" {
		return "New Workflow", nil
	}
	title, err := s.ask(ctx, prompts.SessionTitleSystemID, prompts.SessionTitleUserID,
		map[string]string{prompts.KeyGoal: goal},
		engine.CompletionOptions{"max_tokens": 20, "temperature": 0.3})
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}
	return title, nil
}

// GenerateSummary summarizes what a run built, for listing and search.
func (s *Summarizer) GenerateSummary(ctx context.Context, goal string, actions []engine.Action) (string, error) {
	if len(actions) == 0 {
		return "", nil
	}
	summary, err := s.ask(ctx, prompts.SessionSummarySystemID, prompts.SessionSummaryUserID,
		map[string]string{prompts.KeyGoal: goal, prompts.KeyActions: RenderActions(actions)},
		engine.CompletionOptions{"max_tokens": 500, "temperature": 0.1})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return summary, nil
}

func (s *Summarizer) ask(ctx context.Context, systemID, userID string, vars map[string]string, opts engine.CompletionOptions) (string, error) {
	system, err := s.registry.GetLatest(systemID)
	if err != nil {
		return "", err
	}
	user, err := prompts.NewPromptBuilder(s.registry, userID, "")
	if err != nil {
		return "", err
	}
	// Goal first: the action list may quote text that looks like a placeholder.
	for _, key := range []string{prompts.KeyGoal, prompts.KeyActions} {
		if v, ok := vars[key]; ok {
			user.SetVariable(key, v)
		}
	}

	resp, err := s.llm.Chat(ctx, s.model, []engine.Turn{
		engine.SystemTurn(system.Content),
		engine.UserTurn(user.Build()),
	}, nil, opts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Assistant.Content), nil
}

// RenderActions renders one line per action: name and the first line of
// its output.
func RenderActions(actions []engine.Action) string {
	var b strings.Builder
	for i, a := range actions {
		out, _, _ := strings.Cut(strings.TrimSpace(a.ToolOutput), "\n")
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, a.ToolName, out)
	}
	return b.String()
}
