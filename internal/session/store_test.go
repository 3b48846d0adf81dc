package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

func TestStore(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewStore(tmpDir)
	workspace := "/path/to/my/project"

	session := &Session{
		ID:            "test-session-id",
		WorkspacePath: workspace,
		Title:         "Sync CRM Contacts",
		Goal:          "sync new CRM contacts to the mailing list",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
		Turns: []engine.Turn{
			engine.AssistantTurn("", &engine.FunctionCall{ID: "c1", Name: "function_define", Arguments: `{"name":"crm"}`}),
		},
		Actions: []engine.Action{
			{ToolName: "function_define", ToolArguments: map[string]any{"name": "crm"}, ToolOutput: "defined crm"},
		},
		Workflow: json.RawMessage(`{"nodes":[]}`),
	}

	if err := store.Save(session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "sessions", store.WorkspaceHash(workspace), "test-session-id.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Errorf("Expected session file to exist at %s", expectedPath)
	}

	loaded, err := store.Load(session.ID, workspace)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ID != session.ID || loaded.Goal != session.Goal {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Turns) != 1 || loaded.Turns[0].Call == nil || loaded.Turns[0].Call.ID != "c1" {
		t.Errorf("turns not round-tripped: %+v", loaded.Turns)
	}
	if got := compact(t, loaded.Workflow); got != `{"nodes":[]}` {
		t.Errorf("workflow = %s", got)
	}

	h := engine.NewHistory()
	if err := h.Restore(loaded.Turns, loaded.Actions); err != nil {
		t.Errorf("loaded session cannot restore history: %v", err)
	}

	list, err := store.List(workspace)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 session in list, got %d", len(list))
	}
	if list[0].Title != session.Title || list[0].Turns != 1 {
		t.Errorf("meta = %+v", list[0])
	}

	other, err := store.List("/somewhere/else")
	if err != nil || len(other) != 0 {
		t.Errorf("List(other) = %v, %v; want empty", other, err)
	}
}

func TestStore_RejectsUnpairedSession(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.Save(&Session{
		ID:    "bad",
		Turns: []engine.Turn{engine.AssistantTurn("x", nil)},
	})
	if err == nil {
		t.Error("Save() accepted a session with unpaired turns")
	}
}

func TestSession_Capture(t *testing.T) {
	h := engine.NewHistory()
	_ = h.Append(engine.AssistantTurn("", &engine.FunctionCall{ID: "c1", Name: "task_submit"}), engine.Action{ToolName: "task_submit", Done: true})

	var s Session
	s.Capture(h)
	if len(s.Turns) != 1 || len(s.Actions) != 1 || !s.Done {
		t.Errorf("Capture() = %+v", s)
	}
}
