// Package engine drives the observe-decide-act conversation that builds a
// workflow one function call at a time.

package engine

// State is the per-run view handed to hooks. The Controller owns it;
// hooks must treat it as read-only.
type State struct {
	RunID   string   // Identifies the run in recordings and sessions
	Model   string   // LLM model name
	Turn    int      // Completed turns (increments only after a paired append)
	Retries int      // Corrective retries issued across the run
	Done    bool     // True once the dispatcher returned a Done action
	Totals  Usage    // Accumulated token usage across all calls
	History *History // Append-only record of turns and actions
}

// NewState returns an empty state for a fresh run.
func NewState(runID, model string) *State {
	return &State{
		RunID:   runID,
		Model:   model,
		History: NewHistory(),
	}
}
