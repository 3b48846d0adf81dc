package engine

import (
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/flowsmith/internal/prompts"
)

// PromptSet holds the templates the Assembler fills each turn.
type PromptSet struct {
	Fixed []string // static system instructions, in order
	Task  string   // system instruction with {{user_query}} and {{flatten_tools}}
	User  string   // user instruction with {{refine_prompt}} and {{now_codes}}
}

// LoadPromptSet reads the latest workflow prompts from a registry.
func LoadPromptSet(reg *prompts.PromptRegistry) (PromptSet, error) {
	var set PromptSet
	for _, id := range []string{prompts.WorkflowRoleID, prompts.WorkflowRulesID} {
		p, err := reg.GetLatest(id)
		if err != nil {
			return PromptSet{}, fmt.Errorf("load prompt %s: %w", id, err)
		}
		set.Fixed = append(set.Fixed, p.Content)
	}
	task, err := reg.GetLatest(prompts.WorkflowTaskID)
	if err != nil {
		return PromptSet{}, fmt.Errorf("load prompt %s: %w", prompts.WorkflowTaskID, err)
	}
	user, err := reg.GetLatest(prompts.WorkflowUserID)
	if err != nil {
		return PromptSet{}, fmt.Errorf("load prompt %s: %w", prompts.WorkflowUserID, err)
	}
	set.Task = task.Content
	set.User = user.Content
	return set, nil
}

// AssembleInput is everything one turn's context is built from.
type AssembleInput struct {
	Goal          string
	Catalog       string
	Replay        []Exchange
	Refinement    string // raw operator text; empty when there is none
	WorkflowState string // plain snapshot
}

// Assembler builds the per-turn conversation. It is pure: the same input
// always yields the same turns.
type Assembler struct {
	Prompts PromptSet
}

// FormatRefinement wraps operator text in the instruction sentence that
// precedes the workflow snapshot. Empty text stays empty.
func FormatRefinement(text string) string {
	if text == "" {
		return ""
	}
	return "The user have some additional requirements to your work. Please refine your work based on the following requirements:\n ```\n" +
		text + "```\n"
}

// Assemble returns fixed instructions, the task instruction, the replayed
// window and the refreshed user turn, in that order.
func (a Assembler) Assemble(in AssembleInput) []Turn {
	replay := ReplayTurns(in.Replay)
	out := make([]Turn, 0, len(a.Prompts.Fixed)+2+len(replay))
	for _, fixed := range a.Prompts.Fixed {
		out = append(out, SystemTurn(fixed))
	}
	out = append(out, SystemTurn(a.task(in)))
	out = append(out, replay...)
	out = append(out, UserTurn(a.user(in.Refinement, in.WorkflowState)))
	return out
}

// Render returns the human-readable user instruction with the colorized
// snapshot in place of the plain one. It is only for display.
func (a Assembler) Render(in AssembleInput, coloredState string) string {
	return a.user(in.Refinement, coloredState)
}

func (a Assembler) task(in AssembleInput) string {
	text := prompts.Substitute(a.Prompts.Task, prompts.KeyUserQuery, in.Goal)
	return prompts.Substitute(text, prompts.KeyFlattenTools, in.Catalog)
}

// user splits on the snapshot marker so text inside the refinement or the
// snapshot is never rescanned for placeholders.
func (a Assembler) user(refinement, state string) string {
	parts := strings.Split(a.Prompts.User, prompts.Placeholder(prompts.KeyNowCodes))
	for i := range parts {
		parts[i] = prompts.Substitute(parts[i], prompts.KeyRefinePrompt, FormatRefinement(refinement))
	}
	return strings.Join(parts, state)
}
