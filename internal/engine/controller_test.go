package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ChamsBouzaiene/flowsmith/internal/prompts"
)

type fakeDispatcher struct {
	resolveErr error
	resolved   []string
}

func (d *fakeDispatcher) Functions() []FunctionSchema {
	return []FunctionSchema{
		{Name: "function_define", Description: "declare a node", JSONSchema: `{"type":"object"}`},
		{Name: "task_submit", Description: "finish", JSONSchema: `{"type":"object"}`},
	}
}

func (d *fakeDispatcher) RenderCatalog() string { return "- crm.create_contact" }

func (d *fakeDispatcher) Resolve(_ context.Context, _ string, name string, args map[string]any) (Action, error) {
	if d.resolveErr != nil {
		return Action{}, d.resolveErr
	}
	d.resolved = append(d.resolved, name)
	return Action{ToolName: name, ToolArguments: args, ToolOutput: "ok: " + name, Done: name == "task_submit"}, nil
}

func (d *fakeDispatcher) RenderState(indent int) string {
	return fmt.Sprintf("state(%d) after %d", indent, len(d.resolved))
}

func (d *fakeDispatcher) RenderStateColored(indent int) string {
	return "\x1b[1m" + d.RenderState(indent) + "\x1b[0m"
}

func newTestController(t *testing.T, llm LLMClient, d *fakeDispatcher, configure func(*ControllerBuilder)) *Controller {
	t.Helper()
	b := NewControllerBuilder().
		WithLLM(llm).
		WithModel("test-model").
		WithRunID("run-1").
		WithGoal("sync new CRM contacts to the mailing list").
		WithDispatcher(d).
		WithHooks(Hooks{}).
		WithRetryConfig(nil)
	if configure != nil {
		configure(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return c
}

func defineReplies(n int) []LLMResponse {
	out := make([]LLMResponse, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, callReply(fmt.Sprintf("c%d", i), "function_define", fmt.Sprintf(`{"name":"node%d"}`, i)))
	}
	return out
}

func TestControllerBuilder_Validation(t *testing.T) {
	if _, err := NewControllerBuilder().WithDispatcher(&fakeDispatcher{}).Build(); err == nil ||
		err.Error() != "LLM client not configured: use WithLLM" {
		t.Errorf("Build() error = %v, want missing LLM", err)
	}
	if _, err := NewControllerBuilder().WithLLM(&scriptedLLM{}).Build(); err == nil ||
		err.Error() != "dispatcher not configured: use WithDispatcher" {
		t.Errorf("Build() error = %v, want missing dispatcher", err)
	}
}

func TestControllerBuilder_Defaults(t *testing.T) {
	c := newTestController(t, &scriptedLLM{}, &fakeDispatcher{}, func(b *ControllerBuilder) {
		b.WithRunID("")
	})
	if c.State().RunID == "" {
		t.Error("run ID not generated")
	}
	if c.config.WindowSize != DefaultWindowSize || c.config.MaxCallAttempts != DefaultMaxCallAttempts {
		t.Errorf("config = %+v", c.config)
	}
	if c.History().Len() != 0 {
		t.Error("new controller has non-empty history")
	}
}

func TestControllerBuilder_WithRules(t *testing.T) {
	llm := &scriptedLLM{replies: defineReplies(1)}
	c := newTestController(t, llm, &fakeDispatcher{}, func(b *ControllerBuilder) {
		b.WithRules("Always use the staging CRM.")
	})
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	req := llm.requests[0]
	fixed := len(c.assembler.Prompts.Fixed)
	if got := req[fixed-1]; got.Role != RoleSystem || got.Content != "Always use the staging CRM." {
		t.Errorf("last fixed turn = %+v, want rules", got)
	}
	if got := req[fixed]; got.Role != RoleSystem || !strings.Contains(got.Content, "sync new CRM contacts") {
		t.Errorf("turn after rules = %+v, want task instruction", got)
	}
}

func TestControllerBuilder_WithPrompts(t *testing.T) {
	reg := prompts.NewWorkflowRegistry()
	reg.Register(&prompts.Prompt{ID: prompts.WorkflowRoleID, Version: "1.1.0", Content: "You build CRM automations."})

	llm := &scriptedLLM{replies: defineReplies(1)}
	c := newTestController(t, llm, &fakeDispatcher{}, func(b *ControllerBuilder) {
		b.WithPrompts(reg)
	})
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if got := llm.requests[0][0].Content; got != "You build CRM automations." {
		t.Errorf("first system turn = %q, want overridden role", got)
	}
}

func TestController_RunUntilDone(t *testing.T) {
	replies := append(defineReplies(2), callReply("c2", "task_submit", `{"summary":"done"}`))
	llm := &scriptedLLM{replies: replies}
	d := &fakeDispatcher{}
	c := newTestController(t, llm, d, nil)

	action, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !action.Done || action.ToolName != "task_submit" {
		t.Errorf("Run() = %+v, want task_submit done", action)
	}
	if got := c.History().Len(); got != 3 || len(c.History().Actions()) != 3 {
		t.Errorf("history = %d turns / %d actions, want 3", got, len(c.History().Actions()))
	}
	if !c.State().Done || c.State().Turn != 3 {
		t.Errorf("state = %+v", c.State())
	}
	if llm.calls() != 3 {
		t.Errorf("model called %d times, want 3", llm.calls())
	}
}

func TestController_WindowReplaysLastThree(t *testing.T) {
	llm := &scriptedLLM{replies: defineReplies(6)}
	c := newTestController(t, llm, &fakeDispatcher{}, func(b *ControllerBuilder) {
		b.WithMaxTurns(5)
	})

	if _, err := c.Run(context.Background()); !errors.Is(err, ErrTurnLimit) {
		t.Fatalf("Run() error = %v, want ErrTurnLimit", err)
	}
	if c.History().Len() != 5 {
		t.Fatalf("history length = %d, want 5", c.History().Len())
	}

	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	sixth := llm.requests[5]

	var replayed []string
	for _, turn := range sixth {
		if turn.Role == RoleAssistant {
			replayed = append(replayed, turn.Call.ID)
		}
	}
	if want := []string{"c2", "c3", "c4"}; strings.Join(replayed, ",") != strings.Join(want, ",") {
		t.Errorf("replayed calls = %v, want %v", replayed, want)
	}
	if last := sixth[len(sixth)-1]; last.Role != RoleUser || !strings.Contains(last.Content, "state(4) after 5") {
		t.Errorf("last turn = %+v, want user turn with workflow state", last)
	}
}

func TestController_PairedInvariantEveryTurn(t *testing.T) {
	llm := &scriptedLLM{replies: append(defineReplies(4), callReply("c4", "task_submit", `{}`))}
	c := newTestController(t, llm, &fakeDispatcher{}, nil)

	for i := 1; ; i++ {
		action, err := c.Step(context.Background())
		if err != nil {
			t.Fatalf("Step() error = %v", err)
		}
		if len(c.History().Turns()) != i || len(c.History().Actions()) != i {
			t.Fatalf("after turn %d: turns=%d actions=%d", i, len(c.History().Turns()), len(c.History().Actions()))
		}
		if action.Done {
			break
		}
	}
}

func TestController_NoAppendOnFailure(t *testing.T) {
	tests := []struct {
		name      string
		replies   []LLMResponse
		dispatch  error
		wantStage Stage
		check     func(error) bool
	}{
		{
			name:      "retry exhaustion",
			replies:   []LLMResponse{textReply("I think we should...")},
			wantStage: StageFunctionCall,
			check:     IsNoFunctionCall,
		},
		{
			name:      "malformed arguments",
			replies:   []LLMResponse{callReply("c0", "function_define", `{"name":`)},
			wantStage: StageFunctionCall,
			check:     IsMalformedArguments,
		},
		{
			name:      "dispatch failure",
			replies:   []LLMResponse{callReply("c0", "function_define", `{}`)},
			dispatch:  errors.New("catalog unavailable"),
			wantStage: StageDispatch,
			check:     IsDispatchError,
		},
		{
			name: "invalid reply turn",
			replies: []LLMResponse{{Assistant: Turn{
				Role:   RoleAssistant,
				CallID: "bogus",
				Call:   &FunctionCall{ID: "c0", Name: "function_define", Arguments: "{}"},
			}}},
			wantStage: StageFunctionCall,
			check:     IsInvalidReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{resolveErr: tt.dispatch}
			c := newTestController(t, &scriptedLLM{replies: tt.replies}, d, nil)

			_, err := c.Run(context.Background())
			var te *TurnError
			if !errors.As(err, &te) {
				t.Fatalf("Run() error = %v, want *TurnError", err)
			}
			if te.Stage != tt.wantStage || te.Turn != 0 {
				t.Errorf("TurnError = turn %d stage %s, want turn 0 stage %s", te.Turn, te.Stage, tt.wantStage)
			}
			if !tt.check(err) {
				t.Errorf("error kind not reachable through TurnError: %v", err)
			}
			if c.History().Len() != 0 || len(c.History().Actions()) != 0 {
				t.Errorf("history changed on failure: %d turns", c.History().Len())
			}
			if tt.dispatch == nil && len(d.resolved) != 0 {
				t.Errorf("dispatcher ran before the failure: %v", d.resolved)
			}
		})
	}
}

func TestController_CancelledBeforeTurn(t *testing.T) {
	llm := &scriptedLLM{replies: defineReplies(1)}
	c := newTestController(t, llm, &fakeDispatcher{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if llm.calls() != 0 {
		t.Errorf("model called %d times after cancellation", llm.calls())
	}
}

func TestController_RunAfterRestoringFinishedSession(t *testing.T) {
	llm := &scriptedLLM{replies: defineReplies(1)}
	c := newTestController(t, llm, &fakeDispatcher{}, nil)

	turns := []Turn{assistantCall("r0", "function_define"), assistantCall("r1", "task_submit")}
	actions := []Action{
		{ToolName: "function_define", ToolOutput: "ok"},
		{ToolName: "task_submit", ToolOutput: "submitted", Done: true},
	}
	if err := c.Restore(turns, actions); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	last, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !last.Done || last.ToolName != "task_submit" {
		t.Errorf("Run() = %+v, want the restored task_submit action", last)
	}
	if llm.calls() != 0 {
		t.Errorf("model called %d times for a finished session", llm.calls())
	}
	if c.History().Len() != 2 {
		t.Errorf("history length = %d, want 2", c.History().Len())
	}
}

func TestController_RefinementAndRestore(t *testing.T) {
	llm := &scriptedLLM{replies: []LLMResponse{callReply("c9", "task_submit", `{}`)}}
	c := newTestController(t, llm, &fakeDispatcher{}, func(b *ControllerBuilder) {
		b.WithRefinement(StaticRefinement("only notify on weekdays"))
	})

	restored := []Turn{assistantCall("r0", "function_define"), assistantCall("r1", "workflow_implement")}
	actions := []Action{{ToolName: "function_define", ToolOutput: "ok"}, {ToolName: "workflow_implement", ToolOutput: "ok"}}
	if err := c.Restore(restored, actions); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if c.State().Turn != 2 {
		t.Errorf("Turn after restore = %d, want 2", c.State().Turn)
	}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	req := llm.requests[0]
	user := req[len(req)-1].Content
	if !strings.Contains(user, "only notify on weekdays") {
		t.Errorf("refinement missing from user turn: %q", user)
	}
	var ids []string
	for _, turn := range req {
		if turn.Role == RoleAssistant {
			ids = append(ids, turn.Call.ID)
		}
	}
	if strings.Join(ids, ",") != "r0,r1" {
		t.Errorf("restored exchanges not replayed: %v", ids)
	}
	if c.History().Len() != 3 {
		t.Errorf("history length = %d, want 3", c.History().Len())
	}
}

type contextHook struct {
	NopHook
	rendered []string
	done     int
}

func (h *contextHook) OnContextAssembled(_ context.Context, _ *State, _ []Turn, rendered string) {
	h.rendered = append(h.rendered, rendered)
}
func (h *contextHook) OnDone(context.Context, *State) { h.done++ }

func TestController_EmitsColoredRendering(t *testing.T) {
	hook := &contextHook{}
	llm := &scriptedLLM{replies: []LLMResponse{callReply("c0", "task_submit", `{}`)}}
	c := newTestController(t, llm, &fakeDispatcher{}, func(b *ControllerBuilder) {
		b.WithHooks(Hooks{hook})
	})

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(hook.rendered) != 1 || !strings.Contains(hook.rendered[0], "\x1b[1m") {
		t.Errorf("rendered = %q", hook.rendered)
	}
	req := llm.requests[0]
	if strings.Contains(req[len(req)-1].Content, "\x1b[") {
		t.Error("colorized snapshot leaked into the model context")
	}
	if hook.done != 1 {
		t.Errorf("OnDone called %d times, want 1", hook.done)
	}
}
