package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func runsCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: flowsmith runs <list|search|show> [args]")
	}
	env, err := prepareRuntimeEnv(ctx, "")
	if err != nil {
		return err
	}
	defer env.Close()

	switch args[0] {
	case "list":
		runs, err := env.Recorder.ListRuns(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, headerStyle.Render("RUN")+"\tMODEL\tCALLS\tERRORS\tLAST")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.RunID, r.Model, r.Calls, r.Errors, r.LastAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()

	case "search":
		fs := flag.NewFlagSet("runs search", flag.ExitOnError)
		runID := fs.String("run", "", "Restrict to one run")
		limit := fs.Int("n", 10, "Maximum hits")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		query := strings.Join(fs.Args(), " ")
		if query == "" {
			return errors.New("usage: flowsmith runs search [--run id] [-n 10] <query>")
		}
		hits, err := env.Recorder.Search(query, *runID, *limit)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Printf("%s  call %d  %s  %s\n", h.RunID, h.CallID, h.Function, dimStyle.Render(fmt.Sprintf("%.3f", h.Score)))
		}
		return nil

	case "show":
		if len(args) != 2 {
			return errors.New("usage: flowsmith runs show <run-id>")
		}
		calls, err := env.Recorder.Calls(ctx, args[1])
		if err != nil {
			return err
		}
		if len(calls) == 0 {
			return fmt.Errorf("no calls recorded for run %s", args[1])
		}
		for _, c := range calls {
			fmt.Println(headerStyle.Render(fmt.Sprintf("turn %d attempt %d", c.Turn+1, c.Attempt)) +
				dimStyle.Render(fmt.Sprintf("  %s  %s", c.Model, c.Duration)))
			if c.Error != "" {
				fmt.Println(errStyle.Render("  error: " + c.Error))
				continue
			}
			if call := c.Response.Assistant.Call; call != nil {
				fmt.Printf("  %s(%s)\n", call.Name, call.Arguments)
			} else {
				fmt.Printf("  (no function call) %s\n", c.Response.Assistant.Content)
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown runs subcommand %q", args[0])
	}
}

func sessionsCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	workspace := fs.String("workspace", "", "Workspace directory (default: current directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	env, err := prepareRuntimeEnv(ctx, *workspace)
	if err != nil {
		return err
	}
	defer env.Close()

	metas, err := env.Sessions.List(env.Workspace)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("SESSION")+"\tTURNS\tDONE\tUPDATED\tTITLE")
	for _, m := range metas {
		title := m.Title
		if title == "" {
			title = m.Goal
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%s\t%s\n", m.ID, m.Turns, m.Done, m.UpdatedAt.Format("2006-01-02 15:04"), title)
	}
	return w.Flush()
}
