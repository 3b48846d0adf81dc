package engine

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"hello", 2},
		{"12345678", 2},
		{"héllo wörld", 3}, // counted in runes, not bytes
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestBreakdown(t *testing.T) {
	turns := []Turn{
		SystemTurn("12345678"),
		UserTurn("1234"),
		AssistantTurn("", &FunctionCall{Name: "task_submit", Arguments: `{"summary":"ok"}`}),
		FunctionTurn("task_submit", "", "done"),
	}
	fns := []FunctionSchema{{Name: "task_submit", Description: "finish", JSONSchema: `{"type":"object"}`}}

	b := Breakdown(turns, fns)

	want := map[MessageRole]int{
		RoleSystem:    4 + 2,
		RoleUser:      4 + 1,
		RoleAssistant: 4 + 3 + 4,
		RoleFunction:  4 + 1 + 3,
	}
	for role, n := range want {
		if b.ByRole[role] != n {
			t.Errorf("ByRole[%s] = %d, want %d", role, b.ByRole[role], n)
		}
	}
	if b.Functions != 10+3+2+5 {
		t.Errorf("Functions = %d, want 20", b.Functions)
	}
	if b.Total != 6+5+11+8+20 {
		t.Errorf("Total = %d, want 50", b.Total)
	}
	if got := b.String(); got != "~50 (system=6 user=5 assistant=11 function=8 decls=20)" {
		t.Errorf("String() = %q", got)
	}

	if got := Breakdown(nil, nil).String(); got != "~0 ()" {
		t.Errorf("empty String() = %q", got)
	}
}
