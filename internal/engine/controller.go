package engine

import (
	"context"
	"fmt"
)

// DefaultStateIndent is the indentation used when rendering the workflow
// snapshot.
const DefaultStateIndent = 4

// Controller runs the turn cycle: assemble context, obtain a function
// call, dispatch it, and append the exchange to History. It is not safe
// for concurrent Step calls; hooks may read State and History at any time.
type Controller struct {
	client     *FunctionCallClient
	assembler  Assembler
	dispatcher Dispatcher
	workflow   WorkflowState
	refine     RefinementSource
	goal       string
	config     Config
	hooks      Hooks
	state      *State
}

// State returns the run state. Callers should treat it as read-only.
func (c *Controller) State() *State { return c.state }

// History returns the run's exchange log.
func (c *Controller) History() *History { return c.state.History }

// Restore seeds History from a saved session so a run can resume.
func (c *Controller) Restore(turns []Turn, actions []Action) error {
	if err := c.state.History.Restore(turns, actions); err != nil {
		return err
	}
	c.state.Turn = len(turns)
	if last, ok := c.state.History.Last(); ok {
		c.state.Done = last.Action.Done
	}
	return nil
}

// Step runs one turn. On failure nothing is appended to History and the
// error is a *TurnError naming the failed stage.
func (c *Controller) Step(ctx context.Context) (Action, error) {
	if err := ctx.Err(); err != nil {
		return Action{}, fmt.Errorf("execution cancelled: %w", err)
	}
	st := c.state
	c.hooks.OnTurnStart(ctx, st)

	in := c.input()
	conversation := c.assembler.Assemble(in)
	c.hooks.OnContextAssembled(ctx, st, conversation,
		c.assembler.Render(in, c.workflow.RenderStateColored(c.config.StateIndent)))

	res, err := c.client.Call(ctx, st, conversation, c.dispatcher.Functions())
	if err != nil {
		return Action{}, &TurnError{Turn: st.Turn, Stage: StageFunctionCall, Err: err}
	}

	action, err := c.dispatcher.Resolve(ctx, res.Content, res.Name, res.Arguments)
	if err != nil {
		return Action{}, &TurnError{Turn: st.Turn, Stage: StageDispatch, Err: &DispatchError{Name: res.Name, Err: err}}
	}
	if action.ToolName == "" {
		action.ToolName = res.Name
	}
	if action.ToolArguments == nil {
		action.ToolArguments = res.Arguments
	}

	if err := st.History.Append(res.Turn, action); err != nil {
		return Action{}, &TurnError{Turn: st.Turn, Stage: StageHistory, Err: err}
	}
	st.Turn++
	st.Done = action.Done

	c.hooks.OnAction(ctx, st, action)
	c.hooks.OnHistoryChanged(ctx, st)
	return action, nil
}

func (c *Controller) input() AssembleInput {
	refinement := ""
	if c.refine != nil {
		refinement = c.refine.Refinement()
	}
	return AssembleInput{
		Goal:          c.goal,
		Catalog:       c.dispatcher.RenderCatalog(),
		Replay:        c.state.History.Window(c.config.WindowSize),
		Refinement:    refinement,
		WorkflowState: c.workflow.RenderState(c.config.StateIndent),
	}
}
