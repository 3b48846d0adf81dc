package engine

import (
	"fmt"
	"sync"
)

// Action is the dispatcher's resolution of one structured call.
type Action struct {
	ToolName      string         `json:"tool_name"`
	ToolArguments map[string]any `json:"tool_arguments"`
	ToolOutput    string         `json:"tool_output"`
	// Done marks the workflow as complete. The run loop stops after
	// appending an action with Done set.
	Done bool `json:"done,omitempty"`
}

// Exchange pairs a stored model turn with the action it resolved to.
type Exchange struct {
	Turn   Turn
	Action Action
}

// History is the append-only log of model turns and their actions.
// turns[i] is always resolved by actions[i].
type History struct {
	mu      sync.RWMutex
	turns   []Turn
	actions []Action
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds a turn and its action as one unit. Invalid turns are
// rejected before anything is written.
func (h *History) Append(turn Turn, action Action) error {
	if turn.Role != RoleAssistant {
		return fmt.Errorf("history only stores assistant turns, got %s", turn.Role)
	}
	if err := turn.Validate(); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	h.actions = append(h.actions, action)
	return nil
}

// Restore replaces the contents with a previously saved log.
func (h *History) Restore(turns []Turn, actions []Action) error {
	if len(turns) != len(actions) {
		return fmt.Errorf("cannot restore history: %d turns but %d actions", len(turns), len(actions))
	}
	for i, t := range turns {
		if t.Role != RoleAssistant {
			return fmt.Errorf("cannot restore history: turn %d has role %s", i, t.Role)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("cannot restore history: turn %d: %w", i, err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append([]Turn(nil), turns...)
	h.actions = append([]Action(nil), actions...)
	return nil
}

// Len returns the number of completed exchanges.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Turns returns a copy of the stored model turns.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Turn(nil), h.turns...)
}

// Actions returns a copy of the stored actions.
func (h *History) Actions() []Action {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Action(nil), h.actions...)
}

// Last returns the most recent exchange.
func (h *History) Last() (Exchange, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.turns) == 0 {
		return Exchange{}, false
	}
	i := len(h.turns) - 1
	return Exchange{Turn: h.turns[i], Action: h.actions[i]}, true
}
