package session

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

// Snapshotter serializes the workflow under construction.
type Snapshotter interface {
	Snapshot() (json.RawMessage, error)
}

// AutosaveHook writes the session after every appended exchange so a run
// can be resumed after a crash or interrupt.
type AutosaveHook struct {
	engine.NopHook
	Store    *Store
	Session  *Session
	Workflow Snapshotter // optional
}

// OnHistoryChanged implements engine.Hook.
func (h *AutosaveHook) OnHistoryChanged(_ context.Context, st *engine.State) {
	h.save(st)
}

// OnDone implements engine.Hook.
func (h *AutosaveHook) OnDone(_ context.Context, st *engine.State) {
	h.save(st)
}

func (h *AutosaveHook) save(st *engine.State) {
	h.Session.Capture(st.History)
	h.Session.Model = st.Model
	h.Session.UpdatedAt = time.Now()
	if h.Workflow != nil {
		raw, err := h.Workflow.Snapshot()
		if err != nil {
			log.Printf("⚠️  Failed to snapshot workflow: %v", err)
		} else {
			h.Session.Workflow = raw
		}
	}
	if err := h.Store.Save(h.Session); err != nil {
		log.Printf("⚠️  Failed to save session %s: %v", h.Session.ID, err)
	}
}
