package engine

import (
	"fmt"
	"sync"
	"testing"
)

func assistantCall(id, name string) Turn {
	return AssistantTurn("", &FunctionCall{ID: id, Name: name, Arguments: "{}"})
}

func fillHistory(t *testing.T, n int) *History {
	t.Helper()
	h := NewHistory()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("c%d", i)
		if err := h.Append(assistantCall(id, "function_define"), Action{ToolName: "function_define", ToolOutput: "out " + id}); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	return h
}

func TestHistory_AppendKeepsPairs(t *testing.T) {
	h := fillHistory(t, 4)
	if got, want := len(h.Turns()), len(h.Actions()); got != want || got != 4 {
		t.Fatalf("turns=%d actions=%d, want 4 each", got, want)
	}
	for i, a := range h.Actions() {
		if want := fmt.Sprintf("out c%d", i); a.ToolOutput != want {
			t.Errorf("actions[%d].ToolOutput = %q, want %q", i, a.ToolOutput, want)
		}
		if h.Turns()[i].Call.ID != fmt.Sprintf("c%d", i) {
			t.Errorf("turns[%d] out of order", i)
		}
	}
}

func TestHistory_AppendRejectsInvalidTurn(t *testing.T) {
	tests := []struct {
		name string
		turn Turn
	}{
		{"user turn", UserTurn("hi")},
		{"function turn", FunctionTurn("f", "id", "out")},
		{"assistant with call id", Turn{Role: RoleAssistant, CallID: "x"}},
		{"call without name", AssistantTurn("", &FunctionCall{Arguments: "{}"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := fillHistory(t, 1)
			if err := h.Append(tt.turn, Action{}); err == nil {
				t.Fatal("Append() expected error, got nil")
			}
			if h.Len() != 1 || len(h.Actions()) != 1 {
				t.Errorf("history mutated on rejected append: turns=%d actions=%d", h.Len(), len(h.Actions()))
			}
		})
	}
}

func TestHistory_ConcurrentAppendStaysPaired(t *testing.T) {
	h := NewHistory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = h.Append(assistantCall(fmt.Sprintf("c%d", i), "f"), Action{ToolName: "f", ToolOutput: fmt.Sprintf("c%d", i)})
		}(i)
	}
	wg.Wait()

	turns, actions := h.Turns(), h.Actions()
	if len(turns) != 50 || len(actions) != 50 {
		t.Fatalf("turns=%d actions=%d, want 50 each", len(turns), len(actions))
	}
	for i := range turns {
		if turns[i].Call.ID != actions[i].ToolOutput {
			t.Errorf("index %d: turn %s paired with action %s", i, turns[i].Call.ID, actions[i].ToolOutput)
		}
	}
}

func TestHistory_Restore(t *testing.T) {
	h := NewHistory()
	if err := h.Restore([]Turn{assistantCall("a", "f")}, nil); err == nil {
		t.Error("Restore() with mismatched lengths expected error")
	}
	if err := h.Restore([]Turn{UserTurn("x")}, []Action{{}}); err == nil {
		t.Error("Restore() with user turn expected error")
	}
	if err := h.Restore([]Turn{assistantCall("a", "f"), assistantCall("b", "g")}, []Action{{ToolName: "f"}, {ToolName: "g"}}); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	last, ok := h.Last()
	if !ok || last.Turn.Call.ID != "b" || last.Action.ToolName != "g" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestHistory_AccessorsReturnCopies(t *testing.T) {
	h := fillHistory(t, 2)
	turns := h.Turns()
	turns[0].Content = "changed"
	if h.Turns()[0].Content == "changed" {
		t.Error("Turns() exposed internal storage")
	}
}

func TestWindow(t *testing.T) {
	for _, l := range []int{0, 1, 2, 3, 5, 8} {
		for _, w := range []int{-1, 0, 1, 3, 10} {
			t.Run(fmt.Sprintf("L=%d/W=%d", l, w), func(t *testing.T) {
				h := fillHistory(t, l)
				got := h.Window(w)

				want := 0
				if w > 0 {
					want = min(l, w)
				}
				if len(got) != want {
					t.Fatalf("Window(%d) returned %d exchanges, want %d", w, len(got), want)
				}
				for i, ex := range got {
					idx := l - want + i
					if id := fmt.Sprintf("c%d", idx); ex.Turn.Call.ID != id || ex.Action.ToolOutput != "out "+id {
						t.Errorf("exchange %d = %s/%q, want %s", i, ex.Turn.Call.ID, ex.Action.ToolOutput, id)
					}
				}
			})
		}
	}
}

func TestReplayTurns(t *testing.T) {
	h := fillHistory(t, 2)
	turns := ReplayTurns(h.Window(DefaultWindowSize))
	if len(turns) != 4 {
		t.Fatalf("ReplayTurns() returned %d turns, want 4", len(turns))
	}
	for i := 0; i < 2; i++ {
		a, f := turns[2*i], turns[2*i+1]
		if a.Role != RoleAssistant || f.Role != RoleFunction {
			t.Errorf("pair %d roles = %s,%s", i, a.Role, f.Role)
		}
		if f.CallID != a.Call.ID || f.Name != "function_define" {
			t.Errorf("pair %d function turn = %+v, want call id %s", i, f, a.Call.ID)
		}
		if err := f.Validate(); err != nil {
			t.Errorf("pair %d function turn invalid: %v", i, err)
		}
	}
}
