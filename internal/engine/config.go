package engine

import "time"

const (
	// DefaultMaxCallAttempts bounds FunctionCallClient attempts, counting the first.
	DefaultMaxCallAttempts = 3

	// DefaultCallTimeout bounds a single model request.
	DefaultCallTimeout = 120 * time.Second
)

// Config holds the controller's tunables.
type Config struct {
	WindowSize      int               // exchanges replayed into each context
	MaxCallAttempts int               // attempts per turn before ErrNoFunctionCall
	CallTimeout     time.Duration     // per request; 0 disables
	MaxTurns        int               // 0 = until Done
	StateIndent     int               // workflow snapshot indentation
	Options         CompletionOptions // passed through to the provider
	Retry           *RetryConfig      // transport retry; nil disables
}

// DefaultConfig returns the defaults used when the caller sets nothing.
func DefaultConfig() Config {
	retry := DefaultRetryConfig()
	return Config{
		WindowSize:      DefaultWindowSize,
		MaxCallAttempts: DefaultMaxCallAttempts,
		CallTimeout:     DefaultCallTimeout,
		StateIndent:     DefaultStateIndent,
		Options:         CompletionOptions{},
		Retry:           &retry,
	}
}

// normalize fills zero values with defaults. A negative WindowSize is kept
// and selects no history.
func (c Config) normalize() Config {
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.MaxCallAttempts <= 0 {
		c.MaxCallAttempts = DefaultMaxCallAttempts
	}
	if c.StateIndent <= 0 {
		c.StateIndent = DefaultStateIndent
	}
	if c.Options == nil {
		c.Options = CompletionOptions{}
	}
	return c
}

// DefaultRetryConfig returns sensible default retry policies.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		LLMPolicy: RetryPolicy{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}
