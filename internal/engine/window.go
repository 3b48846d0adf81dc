package engine

// DefaultWindowSize is how many recent exchanges are replayed when no
// window is configured.
const DefaultWindowSize = 3

// Window returns the last min(L, w) exchanges in their original order.
// Older exchanges are dropped entirely, not summarized. w <= 0 selects
// nothing.
func (h *History) Window(w int) []Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if w <= 0 || len(h.turns) == 0 {
		return nil
	}

	start := len(h.turns) - w
	if start < 0 {
		start = 0
	}

	out := make([]Exchange, 0, len(h.turns)-start)
	for i := start; i < len(h.turns); i++ {
		out = append(out, Exchange{Turn: h.turns[i], Action: h.actions[i]})
	}
	return out
}

// ReplayTurns expands exchanges into conversation records: each stored
// assistant turn followed by the function result of its action.
func ReplayTurns(exchanges []Exchange) []Turn {
	out := make([]Turn, 0, 2*len(exchanges))
	for _, ex := range exchanges {
		callID := ""
		if ex.Turn.Call != nil {
			callID = ex.Turn.Call.ID
		}
		out = append(out, ex.Turn)
		out = append(out, FunctionTurn(ex.Action.ToolName, callID, ex.Action.ToolOutput))
	}
	return out
}
