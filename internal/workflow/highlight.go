package workflow

import (
	"strings"

	"github.com/alecthomas/chroma/quick"
)

// Highlight colorizes Python-like source for a terminal. On failure the
// source is returned unchanged.
func Highlight(src string) string {
	var b strings.Builder
	if err := quick.Highlight(&b, src, "python", "terminal256", "monokai"); err != nil {
		return src
	}
	return b.String()
}
