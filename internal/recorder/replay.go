package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

// ErrReplayExhausted is returned once every recorded reply was served.
var ErrReplayExhausted = errors.New("replay exhausted")

// ReplayClient serves the successful replies of a recorded run in order.
// It implements engine.LLMClient.
type ReplayClient struct {
	mu      sync.Mutex
	replies []engine.LLMResponse
	next    int
}

// NewReplayClient loads the replies of runID.
func NewReplayClient(ctx context.Context, db *DB, runID string) (*ReplayClient, error) {
	calls, err := db.Calls(ctx, runID)
	if err != nil {
		return nil, err
	}
	rc := &ReplayClient{}
	for _, c := range calls {
		if c.Error != "" {
			continue
		}
		rc.replies = append(rc.replies, c.Response)
	}
	if len(rc.replies) == 0 {
		return nil, fmt.Errorf("run %s has no recorded replies", runID)
	}
	return rc, nil
}

// Chat implements engine.LLMClient.
func (r *ReplayClient) Chat(ctx context.Context, model string, turns []engine.Turn, functions []engine.FunctionSchema, opts engine.CompletionOptions) (engine.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return engine.LLMResponse{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next >= len(r.replies) {
		return engine.LLMResponse{}, fmt.Errorf("%w after %d replies", ErrReplayExhausted, len(r.replies))
	}
	resp := r.replies[r.next]
	r.next++
	return resp, nil
}

// Remaining reports how many replies are left.
func (r *ReplayClient) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replies) - r.next
}
