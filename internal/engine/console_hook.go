package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	consoleDim     = lipgloss.Color("7")
	consoleAccent  = lipgloss.Color("12")
	consoleSuccess = lipgloss.Color("10")
	consoleWarning = lipgloss.Color("11")
	consoleDanger  = lipgloss.Color("9")
)

// ConsoleHook prints the human rendering of each turn: the colorized
// workflow snapshot, retry banners, and resolved actions.
type ConsoleHook struct {
	NopHook
	Writer io.Writer // Defaults to os.Stdout
}

// NewConsoleHook creates a console hook that prints to stdout.
func NewConsoleHook() *ConsoleHook {
	return &ConsoleHook{Writer: os.Stdout}
}

func (h *ConsoleHook) out() io.Writer {
	if h.Writer == nil {
		return os.Stdout
	}
	return h.Writer
}

func (h *ConsoleHook) OnContextAssembled(_ context.Context, st *State, _ []Turn, rendered string) {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(consoleAccent).
		Render(fmt.Sprintf("── turn %d ──", st.Turn+1))
	body := lipgloss.NewStyle().
		BorderLeft(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(consoleDim).
		PaddingLeft(1).
		Render(rendered)
	fmt.Fprintf(h.out(), "%s\n%s\n", title, body)
}

func (h *ConsoleHook) OnCallRetry(_ context.Context, _ *State, attempt, maxAttempts int, content string) {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(consoleWarning).
		Render(fmt.Sprintf("No function call in reply (attempt %d/%d), asking again", attempt, maxAttempts))
	fmt.Fprintln(h.out(), banner)
	if content != "" {
		fmt.Fprintln(h.out(), lipgloss.NewStyle().Foreground(consoleDim).Render(content))
	}
}

func (h *ConsoleHook) OnCallFailed(_ context.Context, _ *State, err error) {
	fmt.Fprintln(h.out(), lipgloss.NewStyle().Bold(true).Foreground(consoleDanger).Render("✗ "+err.Error()))
}

func (h *ConsoleHook) OnAction(_ context.Context, _ *State, a Action) {
	name := lipgloss.NewStyle().Bold(true).Foreground(consoleSuccess).Render(a.ToolName)
	fmt.Fprintf(h.out(), "→ %s\n%s\n", name, a.ToolOutput)
}

func (h *ConsoleHook) OnDone(_ context.Context, st *State) {
	fmt.Fprintln(h.out(), lipgloss.NewStyle().Bold(true).Foreground(consoleSuccess).
		Render(fmt.Sprintf("✓ workflow submitted after %d turns", st.Turn)))
}

// DefaultHooks returns default hooks for a controller (logger + console).
func DefaultHooks() Hooks {
	return Hooks{
		LoggerHook{L: log.Default()},
		NewConsoleHook(),
	}
}
