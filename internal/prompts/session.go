package prompts

// Prompt IDs used to title and summarize saved sessions.
const (
	SessionTitleSystemID   = "session.title.system"
	SessionTitleUserID     = "session.title.user"
	SessionSummarySystemID = "session.summary.system"
	SessionSummaryUserID   = "session.summary.user"
)

// Placeholder keys for the session prompts.
const (
	KeyGoal    = "goal"
	KeyActions = "actions"
)

var titleSystemPrompt = &Prompt{
	ID:      SessionTitleSystemID,
	Version: PromptV1,
	Content: "You are a helpful assistant. Generate a short, concise title (3-5 words) for a workflow automation task. " +
		"Do not use quotes or punctuation.",
	Tags: []string{"session"},
}

var titleUserPrompt = &Prompt{
	ID:      SessionTitleUserID,
	Version: PromptV1,
	Content: "Task:\n{{goal}}\n\nGenerate Title:",
	Tags:    []string{"session"},
}

var summarySystemPrompt = &Prompt{
	ID:      SessionSummarySystemID,
	Version: PromptV1,
	Content: "You summarize the work of an agent that builds automation workflows. " +
		"Focus on the integrations used, what the workflow does, and anything left unresolved. Be concise.",
	Tags: []string{"session"},
}

var summaryUserPrompt = &Prompt{
	ID:      SessionSummaryUserID,
	Version: PromptV1,
	Content: "Goal: {{goal}}\n\nSteps:\n{{actions}}",
	Tags:    []string{"session"},
}
