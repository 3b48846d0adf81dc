package engine

import (
	"context"
	"fmt"
)

// Run steps until the dispatcher returns an Action with Done set, a turn
// fails, or ctx is cancelled. The returned Action is the last one
// appended during this call.
//
// Termination is explicit: a Done action is the only successful exit.
// Config.MaxTurns, when positive, caps the turns taken by this call and
// yields ErrTurnLimit.
//
// A controller restored from a finished session does not prompt again:
// Run returns the recorded Done action immediately.
func (c *Controller) Run(ctx context.Context) (Action, error) {
	if c.state.Done {
		if ex, ok := c.state.History.Last(); ok {
			return ex.Action, nil
		}
	}
	var last Action
	for taken := 0; ; taken++ {
		if c.config.MaxTurns > 0 && taken >= c.config.MaxTurns {
			return last, fmt.Errorf("%w (%d turns)", ErrTurnLimit, taken)
		}

		action, err := c.Step(ctx)
		if err != nil {
			// Step appends nothing on failure, so History stays consistent.
			return last, err
		}
		last = action

		if action.Done {
			c.hooks.OnDone(ctx, c.state)
			return last, nil
		}
	}
}
