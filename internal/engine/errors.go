// Package engine provides agent orchestration functionality.
// This file contains error kinds and transport error classification.

package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoFunctionCall matches NoFunctionCallError.
	ErrNoFunctionCall = errors.New("no function call in model reply")

	// ErrMalformedArguments matches MalformedArgumentsError.
	ErrMalformedArguments = errors.New("malformed function call arguments")

	// ErrInvalidReply matches InvalidReplyError.
	ErrInvalidReply = errors.New("invalid model reply")

	// ErrTurnLimit is returned by Run when Config.MaxTurns is reached
	// before the dispatcher reports completion.
	ErrTurnLimit = errors.New("turn limit reached before workflow completed")
)

// NoFunctionCallError reports that the model never produced a structured
// call within the attempt bound.
type NoFunctionCallError struct {
	Attempts    int
	LastContent string // free text of the final reply, for diagnostics
}

func (e *NoFunctionCallError) Error() string {
	return fmt.Sprintf("no function call after %d attempts", e.Attempts)
}

func (e *NoFunctionCallError) Is(target error) bool { return target == ErrNoFunctionCall }

// MalformedArgumentsError reports a call whose arguments are not a JSON object.
type MalformedArgumentsError struct {
	Name string
	Raw  string
	Err  error
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("malformed arguments for function %s: %v", e.Name, e.Err)
}

func (e *MalformedArgumentsError) Unwrap() error { return e.Err }

func (e *MalformedArgumentsError) Is(target error) bool { return target == ErrMalformedArguments }

// InvalidReplyError reports a reply turn that History would refuse to
// store. It is raised before dispatch so no workflow change goes unrecorded.
type InvalidReplyError struct {
	Name string
	Err  error
}

func (e *InvalidReplyError) Error() string {
	return fmt.Sprintf("invalid reply calling %s: %v", e.Name, e.Err)
}

func (e *InvalidReplyError) Unwrap() error { return e.Err }

func (e *InvalidReplyError) Is(target error) bool { return target == ErrInvalidReply }

// DispatchError reports that the dispatcher could not resolve a call.
type DispatchError struct {
	Name string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch of %s failed: %v", e.Name, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Stage names the part of a turn that failed.
type Stage string

const (
	StageFunctionCall Stage = "function_call"
	StageDispatch     Stage = "dispatch"
	StageHistory      Stage = "history"
)

// TurnError wraps a terminal failure with the turn and stage it happened in.
type TurnError struct {
	Turn  int
	Stage Stage
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("[turn=%d stage=%s] %v", e.Turn, e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// IsNoFunctionCall reports whether err is a retry-exhaustion failure.
func IsNoFunctionCall(err error) bool { return errors.Is(err, ErrNoFunctionCall) }

// IsMalformedArguments reports whether err is a malformed-payload failure.
func IsMalformedArguments(err error) bool { return errors.Is(err, ErrMalformedArguments) }

// IsInvalidReply reports whether err is a rejected reply turn.
func IsInvalidReply(err error) bool { return errors.Is(err, ErrInvalidReply) }

// IsDispatchError reports whether err came from the dispatcher.
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}

// ArgumentValidationError indicates that call arguments failed JSON schema validation.
type ArgumentValidationError struct {
	FunctionName string
	Errors       []string
}

func (e *ArgumentValidationError) Error() string {
	return fmt.Sprintf("function %s validation failed: %s", e.FunctionName, strings.Join(e.Errors, "; "))
}

// RetryClass indicates whether a transport error should be retried.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"
	RetryClassMaybe        RetryClass = "maybe" // at most maxMaybeRetries
	RetryClassNonRetryable RetryClass = "non_retryable"
)

// EngineError is a provider failure annotated with its HTTP status and
// retry classification.
type EngineError struct {
	Err        error
	Class      RetryClass
	HTTPStatus int    // 0 when the failure never reached HTTP
	RetryAfter string // raw Retry-After header
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider error (%s)", e.Class)
	}
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("provider error (HTTP %d): %v", e.HTTPStatus, e.Err)
	}
	return e.Err.Error()
}

func (e *EngineError) Unwrap() error { return e.Err }

// RateLimited reports an HTTP 429.
func (e *EngineError) RateLimited() bool { return e.HTTPStatus == http.StatusTooManyRequests }

// Unauthorized reports an HTTP 401 or 403.
func (e *EngineError) Unauthorized() bool {
	return e.HTTPStatus == http.StatusUnauthorized || e.HTTPStatus == http.StatusForbidden
}

var (
	retryableMarkers = []string{
		"429", "rate limit", "too many requests",
		"500", "502", "503", "504", "internal server error", "bad gateway",
		"service unavailable", "gateway timeout",
		"connection reset", "connection refused", "no such host", "temporary failure", "overloaded",
	}
	// A deadline may have fired after the provider accepted the request.
	maybeMarkers = []string{"deadline exceeded"}
)

// ClassifyLLMError decides whether a provider call error is worth retrying.
// Annotated errors keep their class; anything else is matched on its text.
func ClassifyLLMError(err error) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Class
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, maybeMarkers...):
		return RetryClassMaybe
	case containsAny(msg, retryableMarkers...), strings.Contains(msg, "timeout"):
		return RetryClassRetryable
	}
	return RetryClassNonRetryable
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ExtractRetryAfter reads a Retry-After hint, in seconds or as an HTTP
// date, from an annotated error. It returns 0 when there is none.
func ExtractRetryAfter(err error) time.Duration {
	var ee *EngineError
	if !errors.As(err, &ee) || ee.RetryAfter == "" {
		return 0
	}
	v := strings.TrimSpace(ee.RetryAfter)
	if secs, perr := strconv.Atoi(v); perr == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, perr := http.ParseTime(v); perr == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// WrapLLMError annotates a provider error. A known HTTP status overrides
// the text-based class.
func WrapLLMError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}
	class := ClassifyLLMError(err)
	switch httpStatus {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		class = RetryClassRetryable
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
		class = RetryClassNonRetryable
	}
	return &EngineError{Err: err, Class: class, HTTPStatus: httpStatus, RetryAfter: retryAfter}
}

// RetryExhaustedError reports that transport retries ran out.
type RetryExhaustedError struct {
	Err      error
	Attempts int
	Limit    int
	Guarded  bool // the error was RetryClassMaybe and hit the lower cap
}

func (e *RetryExhaustedError) Error() string {
	kind := "retries"
	if e.Guarded {
		kind = "guarded retries"
	}
	return fmt.Sprintf("%s exhausted after %d attempts: %v", kind, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// NewRetryExhaustedError creates a RetryExhaustedError.
func NewRetryExhaustedError(err error, attempts, limit int, guarded bool) *RetryExhaustedError {
	return &RetryExhaustedError{Err: err, Attempts: attempts, Limit: limit, Guarded: guarded}
}

// IsRetryExhausted reports whether err is or wraps a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var re *RetryExhaustedError
	return errors.As(err, &re)
}
