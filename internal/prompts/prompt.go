package prompts

// PromptVersion is a dotted numeric version such as "1.0.0".
type PromptVersion string

// PromptV1 is the version of the built-in prompts.
const PromptV1 PromptVersion = "1.0.0"

// Prompt is one versioned prompt text.
type Prompt struct {
	ID          string        `yaml:"id"`          // e.g. "workflow.user"
	Version     PromptVersion `yaml:"version"`     // compared numerically per component
	Content     string        `yaml:"content"`     // may contain {{placeholders}}
	Description string        `yaml:"description"` // human-readable description
	Tags        []string      `yaml:"tags"`
	Deprecated  bool          `yaml:"deprecated"` // skipped by GetLatest while a live version exists
}
