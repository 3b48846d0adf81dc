package session

import (
	"encoding/json"
	"time"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

// Session is a saved run: its goal, the exchange log and the workflow
// snapshot needed to resume it.
type Session struct {
	ID            string          `json:"id"` // run ID
	WorkspacePath string          `json:"workspace_path"`
	WorkspaceHash string          `json:"workspace_hash"` // Used for directory scoping
	Title         string          `json:"title"`
	Goal          string          `json:"goal"`
	Model         string          `json:"model"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Turns         []engine.Turn   `json:"turns"`
	Actions       []engine.Action `json:"actions"`
	Workflow      json.RawMessage `json:"workflow,omitempty"` // workflow builder snapshot
	Done          bool            `json:"done"`
	Summary       string          `json:"summary,omitempty"`
}

// SessionMeta is a lightweight representation for listing.
type SessionMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Goal      string    `json:"goal"`
	Turns     int       `json:"turns"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Summary   string    `json:"summary,omitempty"`
}

// Meta returns the listing view of s.
func (s *Session) Meta() SessionMeta {
	return SessionMeta{
		ID:        s.ID,
		Title:     s.Title,
		Goal:      s.Goal,
		Turns:     len(s.Turns),
		Done:      s.Done,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Summary:   s.Summary,
	}
}

// Capture copies the controller's history into s.
func (s *Session) Capture(h *engine.History) {
	s.Turns = h.Turns()
	s.Actions = h.Actions()
	if last, ok := h.Last(); ok {
		s.Done = last.Action.Done
	}
}
