package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// maxMaybeRetries caps retries for errors classified RetryClassMaybe.
const maxMaybeRetries = 2

// RetryPolicy describes exponential backoff for transport failures.
type RetryPolicy struct {
	MaxRetries   int           // 0 sends once
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64 // growth per attempt, e.g. 2.0
	Jitter       bool    // adds up to 20% on top of the computed delay
}

// RetryConfig holds the transport retry policy for model calls.
type RetryConfig struct {
	LLMPolicy RetryPolicy
}

// Delay returns how long to wait before retry number attempt+1.
// A Retry-After hint carried by err wins, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int, err error) time.Duration {
	if hint := ExtractRetryAfter(err); hint > 0 {
		return min(hint, p.MaxDelay)
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := math.Min(float64(p.InitialDelay)*math.Pow(mult, float64(attempt)), float64(p.MaxDelay))
	if p.Jitter {
		d += rand.Float64() * 0.2 * d
	}
	return time.Duration(d)
}

// limit returns how many retries an error of class c may take.
func (p RetryPolicy) limit(c RetryClass) int {
	if c == RetryClassMaybe {
		return min(p.MaxRetries, maxMaybeRetries)
	}
	return p.MaxRetries
}

// RetryWithPolicy runs fn until it succeeds, fails with a non-retryable
// error, or the policy runs out. onRetry may be nil.
func RetryWithPolicy[T any](
	ctx context.Context,
	policy RetryPolicy,
	fn func(ctx context.Context) (T, error),
	classify func(error) RetryClass,
	onRetry func(attempt int, delay time.Duration, err error),
) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		class := classify(err)
		if class == RetryClassNonRetryable {
			return zero, err
		}
		if limit := policy.limit(class); attempt >= limit {
			return zero, NewRetryExhaustedError(err, attempt, limit, class == RetryClassMaybe)
		}

		delay := policy.Delay(attempt, err)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("context cancelled during retry: %w", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryLLMCall sends one model request with transport-level retry.
// The reply itself is not inspected: a reply without a function call
// counts as success here and is handled by FunctionCallClient.
func RetryLLMCall(
	ctx context.Context,
	policy RetryPolicy,
	llm LLMClient,
	model string,
	turns []Turn,
	functions []FunctionSchema,
	opts CompletionOptions,
	onRetry func(attempt int, delay time.Duration, err error),
) (LLMResponse, error) {
	send := func(ctx context.Context) (LLMResponse, error) {
		return llm.Chat(ctx, model, turns, functions, opts)
	}
	return RetryWithPolicy(ctx, policy, send, ClassifyLLMError, onRetry)
}
