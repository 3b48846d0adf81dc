package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	turnOverhead = 4  // role markers and separators per turn
	declOverhead = 10 // wrapping of one function declaration
)

// EstimateTokens approximates the token count of text at about four
// characters per token. Non-empty text is at least one token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// TokenBreakdown is an estimated request size split by role.
type TokenBreakdown struct {
	ByRole    map[MessageRole]int
	Functions int // function declarations
	Total     int
}

// Breakdown estimates the prompt size of a request.
func Breakdown(turns []Turn, functions []FunctionSchema) TokenBreakdown {
	b := TokenBreakdown{ByRole: make(map[MessageRole]int, 4)}
	for _, t := range turns {
		n := turnOverhead + EstimateTokens(t.Content) + EstimateTokens(t.Name)
		if t.Call != nil {
			n += EstimateTokens(t.Call.Name) + EstimateTokens(t.Call.Arguments)
		}
		b.ByRole[t.Role] += n
		b.Total += n
	}
	for _, f := range functions {
		n := declOverhead + EstimateTokens(f.Name) + EstimateTokens(f.Description) + EstimateTokens(f.JSONSchema)
		b.Functions += n
		b.Total += n
	}
	return b
}

// String renders the breakdown as "~N (system=a user=b ...)", skipping
// empty parts.
func (b TokenBreakdown) String() string {
	var parts []string
	for _, r := range []MessageRole{RoleSystem, RoleUser, RoleAssistant, RoleFunction} {
		if n := b.ByRole[r]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", r, n))
		}
	}
	if b.Functions > 0 {
		parts = append(parts, fmt.Sprintf("decls=%d", b.Functions))
	}
	return fmt.Sprintf("~%d (%s)", b.Total, strings.Join(parts, " "))
}
