package engine

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2}

	tests := []struct {
		name    string
		attempt int
		err     error
		want    time.Duration
	}{
		{"first", 0, errors.New("503"), 10 * time.Millisecond},
		{"grows", 2, errors.New("503"), 40 * time.Millisecond},
		{"capped", 5, errors.New("503"), 50 * time.Millisecond},
		{"retry-after capped", 0, &EngineError{Err: errors.New("429"), RetryAfter: "7"}, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Delay(tt.attempt, tt.err); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}

	p.Jitter = true
	for i := 0; i < 20; i++ {
		d := p.Delay(0, errors.New("503"))
		if d < 10*time.Millisecond || d > 12*time.Millisecond {
			t.Fatalf("jittered Delay(0) = %v, want within 20%% above 10ms", d)
		}
	}
}

func TestRetryWithPolicy(t *testing.T) {
	fast := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
		exhausted bool
	}{
		{"succeeds after transient", []error{errors.New("503 service unavailable")}, 2, false, false},
		{"non-retryable stops", []error{errors.New("401 unauthorized")}, 1, true, false},
		{"exhausts", []error{errors.New("429"), errors.New("429"), errors.New("429"), errors.New("429")}, 4, true, true},
		{"maybe is guarded", []error{
			errors.New("context deadline exceeded"),
			errors.New("context deadline exceeded"),
			errors.New("context deadline exceeded"),
		}, 3, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, retries := 0, 0
			fn := func(ctx context.Context) (int, error) {
				calls++
				if calls <= len(tt.errs) {
					return 0, tt.errs[calls-1]
				}
				return 42, nil
			}
			got, err := RetryWithPolicy(context.Background(), fast, fn, ClassifyLLMError,
				func(int, time.Duration, error) { retries++ })

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if retries != calls-1 {
				t.Errorf("onRetry called %d times for %d calls", retries, calls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if IsRetryExhausted(err) != tt.exhausted {
				t.Errorf("IsRetryExhausted = %v, want %v", IsRetryExhausted(err), tt.exhausted)
			}
			if err == nil && got != 42 {
				t.Errorf("result = %d, want 42", got)
			}
		})
	}
}

func TestRetryWithPolicy_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := RetryPolicy{MaxRetries: 3, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

	fn := func(ctx context.Context) (int, error) { return 0, errors.New("503") }
	_, err := RetryWithPolicy(ctx, slow, fn, ClassifyLLMError,
		func(int, time.Duration, error) { cancel() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RetryClass
	}{
		{"nil", nil, RetryClassNonRetryable},
		{"rate limit text", errors.New("Rate limit reached"), RetryClassRetryable},
		{"connection reset", errors.New("read: connection reset by peer"), RetryClassRetryable},
		{"deadline", context.DeadlineExceeded, RetryClassMaybe},
		{"auth", errors.New("invalid api key"), RetryClassNonRetryable},
		{"wrapped 401 wins over text", WrapLLMError(errors.New("503 upstream"), 401, ""), RetryClassNonRetryable},
		{"wrapped 503", WrapLLMError(errors.New("boom"), 503, ""), RetryClassRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyLLMError(tt.err); got != tt.want {
				t.Errorf("ClassifyLLMError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractRetryAfter(t *testing.T) {
	if got := ExtractRetryAfter(&EngineError{RetryAfter: " 3 "}); got != 3*time.Second {
		t.Errorf("seconds: got %v", got)
	}
	if got := ExtractRetryAfter(&EngineError{RetryAfter: "soon"}); got != 0 {
		t.Errorf("garbage: got %v", got)
	}
	if got := ExtractRetryAfter(errors.New("plain")); got != 0 {
		t.Errorf("plain error: got %v", got)
	}
	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if got := ExtractRetryAfter(&EngineError{RetryAfter: past}); got != 0 {
		t.Errorf("past date: got %v", got)
	}
}
