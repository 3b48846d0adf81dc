package prompts

import (
	"fmt"
	"strings"
)

// Placeholder returns the literal marker for a template variable.
func Placeholder(key string) string {
	return "{{" + key + "}}"
}

// Substitute replaces every occurrence of the key's placeholder with value.
// It is a literal find/replace with no templating logic.
func Substitute(text, key, value string) string {
	return strings.ReplaceAll(text, Placeholder(key), value)
}

type variable struct {
	key   string
	value string
}

// PromptBuilder composes a prompt from a registered base, extra fragments
// and placeholder values. Variables are substituted in the order they
// were set.
type PromptBuilder struct {
	basePrompt *Prompt
	fragments  []string
	variables  []variable
}

// NewPromptBuilder starts from a registered prompt. An empty version
// selects the latest one.
func NewPromptBuilder(registry *PromptRegistry, id string, version PromptVersion) (*PromptBuilder, error) {
	var (
		basePrompt *Prompt
		err        error
	)
	if version == "" {
		basePrompt, err = registry.GetLatest(id)
	} else {
		basePrompt, err = registry.Get(id, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}

	return &PromptBuilder{
		basePrompt: basePrompt,
		fragments:  []string{basePrompt.Content},
	}, nil
}

// AddFragment appends a fragment to the prompt.
func (b *PromptBuilder) AddFragment(text string) *PromptBuilder {
	b.fragments = append(b.fragments, text)
	return b
}

// SetVariable sets a variable for placeholder substitution. Setting the
// same key twice keeps the later value.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	for i := range b.variables {
		if b.variables[i].key == key {
			b.variables[i].value = value
			return b
		}
	}
	b.variables = append(b.variables, variable{key: key, value: value})
	return b
}

// Build constructs the final prompt string.
func (b *PromptBuilder) Build() string {
	result := strings.Join(b.fragments, "\n\n")
	for _, v := range b.variables {
		result = Substitute(result, v.key, v.value)
	}
	return result
}
