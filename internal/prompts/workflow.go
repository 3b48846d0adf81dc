package prompts

// Prompt IDs used by the workflow assembler.
const (
	WorkflowRoleID  = "workflow.system.role"
	WorkflowRulesID = "workflow.system.rules"
	WorkflowTaskID  = "workflow.system.task"
	WorkflowUserID  = "workflow.user"
)

// Placeholder keys substituted by the assembler.
const (
	KeyUserQuery    = "user_query"
	KeyFlattenTools = "flatten_tools"
	KeyRefinePrompt = "refine_prompt"
	KeyNowCodes     = "now_codes"
)

var workflowRolePrompt = &Prompt{
	ID:      WorkflowRoleID,
	Version: PromptV1,
	Content: `You are a workflow engineer. You build automation workflows out of integration nodes.
You never answer in prose: every reply is exactly one function call.`,
	Description: "Fixed role instruction",
	Tags:        []string{"workflow", "system"},
}

var workflowRulesPrompt = &Prompt{
	ID:      WorkflowRulesID,
	Version: PromptV1,
	Content: `Work incrementally:
1. Use function_define to declare each integration node the workflow needs.
2. Use function_rewrite_params to fill in or fix a node's parameters.
3. Use workflow_implement to write the main workflow that wires the nodes together.
4. Use ask_user_help only when the goal cannot be reached without more information.
5. Call task_submit once the workflow fully implements the goal.
Only the most recent calls and their results are shown to you; the current workflow code is always up to date.`,
	Description: "Fixed working rules",
	Tags:        []string{"workflow", "system"},
}

var workflowTaskPrompt = &Prompt{
	ID:      WorkflowTaskID,
	Version: PromptV1,
	Content: `The user wants the following:
{{user_query}}

These integrations are available:
{{flatten_tools}}`,
	Description: "Task-specific instruction with goal and tool catalog",
	Tags:        []string{"workflow", "system", "dynamic"},
}

var workflowUserPrompt = &Prompt{
	ID:      WorkflowUserID,
	Version: PromptV1,
	Content: `{{refine_prompt}}Here is the workflow you have built so far:
` + "```" + `
{{now_codes}}
` + "```" + `
Decide the next step and respond with a function call.`,
	Description: "Per-turn user instruction with refinement and workflow snapshot",
	Tags:        []string{"workflow", "user", "dynamic"},
}

// NewWorkflowRegistry returns a registry holding the workflow prompts.
func NewWorkflowRegistry() *PromptRegistry {
	r := NewPromptRegistry()
	for _, p := range []*Prompt{
		workflowRolePrompt, workflowRulesPrompt, workflowTaskPrompt, workflowUserPrompt,
		titleSystemPrompt, titleUserPrompt, summarySystemPrompt, summaryUserPrompt,
	} {
		r.Register(p)
	}
	return r
}
