package providers

import (
	"regexp"
	"strconv"
)

var (
	// SDK errors read like "error, status code: 429, message: ..." or
	// "anthropic API error 503: ...".
	statusPattern     = regexp.MustCompile(`(?i)(?:status(?: code)?:?\s*|error\s+)([45]\d\d)\b|\b([45]\d\d)\s+[a-z]`)
	retryAfterPattern = regexp.MustCompile(`(?i)retry[- ]after:?\s*([^\s,;]+)`)
)

// extractErrorMetadata returns the HTTP status and any Retry-After value
// of a provider error. typed reads the status from the SDK's error types
// and may be nil; the message text is the fallback. Neither SDK keeps
// response headers, so Retry-After only ever comes from the text.
func extractErrorMetadata(err error, typed func(error) int) (status int, retryAfter string) {
	if err == nil {
		return 0, ""
	}
	if typed != nil {
		status = typed(err)
	}
	msg := err.Error()
	if m := statusPattern.FindStringSubmatch(msg); status == 0 && m != nil {
		code := m[1]
		if code == "" {
			code = m[2]
		}
		status, _ = strconv.Atoi(code)
	}
	if m := retryAfterPattern.FindStringSubmatch(msg); m != nil {
		retryAfter = m[1]
	}
	return status, retryAfter
}
