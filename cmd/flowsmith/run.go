package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
	"github.com/ChamsBouzaiene/flowsmith/internal/providers"
	"github.com/ChamsBouzaiene/flowsmith/internal/recorder"
	"github.com/ChamsBouzaiene/flowsmith/internal/refine"
	"github.com/ChamsBouzaiene/flowsmith/internal/session"
	"github.com/ChamsBouzaiene/flowsmith/internal/workflow"
)

type loopFlags struct {
	workspace  string
	catalog    string
	refineText string
	refineFile string
	window     int
	maxTurns   int
	events     bool
}

func (f *loopFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.workspace, "workspace", "", "Workspace directory sessions are scoped to (default: current directory)")
	fs.StringVar(&f.catalog, "catalog", "", "Path to the YAML integration catalog")
	fs.StringVar(&f.refineText, "refine", "", "Additional requirements appended to every turn")
	fs.StringVar(&f.refineFile, "refine-file", "", "File holding additional requirements; reloaded when it changes")
	fs.IntVar(&f.window, "window", 0, "Past exchanges replayed into each turn (default 3, negative for none)")
	fs.IntVar(&f.maxTurns, "max-turns", 0, "Stop after this many turns (0 = until submitted)")
	fs.BoolVar(&f.events, "events", false, "Stream engine events as NDJSON on stdout instead of console output")
}

func (f *loopFlags) engineConfig(env *runtimeEnv) engine.Config {
	ec := env.Config.EngineConfig()
	if p := env.Project; p != nil {
		if p.WindowSize != 0 {
			ec.WindowSize = p.WindowSize
		}
		if p.MaxTurns > 0 {
			ec.MaxTurns = p.MaxTurns
		}
	}
	if f.window != 0 {
		ec.WindowSize = f.window
	}
	if f.maxTurns > 0 {
		ec.MaxTurns = f.maxTurns
	}
	return ec
}

// refinement returns the refinement source and a stop func.
func (f *loopFlags) refinement() (engine.RefinementSource, func(), error) {
	if f.refineFile == "" {
		return engine.StaticRefinement(f.refineText), func() {}, nil
	}
	src, err := refine.NewFileSource(f.refineFile)
	if err != nil {
		return nil, nil, err
	}
	if err := src.Start(); err != nil {
		return nil, nil, err
	}
	return src, func() { _ = src.Stop() }, nil
}

func runCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var lf loopFlags
	lf.register(fs)
	goalFlag := fs.String("goal", "", "What the workflow should do (or pass it as arguments)")
	resume := fs.String("resume", "", "Resume a saved session by ID")
	providerFlag := fs.String("provider", "", "LLM provider ("+strings.Join(providers.SupportedProviders(), ", ")+")")
	modelFlag := fs.String("model", "", "Model name override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := prepareRuntimeEnv(ctx, lf.workspace)
	if err != nil {
		return err
	}
	defer env.Close()

	pcfg := env.Config.ProviderConfig(providers.ConfigFromEnv())
	if *providerFlag != "" && *providerFlag != pcfg.Provider {
		pcfg = providers.ProviderConfig{Provider: *providerFlag}
		if envCfg := providers.ConfigFromEnv(); envCfg.Provider == *providerFlag {
			pcfg = envCfg
		}
	}
	if *modelFlag != "" {
		pcfg.Model = *modelFlag
	}
	llm, model, err := providers.NewLLMClient(pcfg)
	if err != nil {
		return err
	}

	catalog, err := env.loadCatalog(lf.catalog)
	if err != nil {
		return err
	}
	builder := workflow.NewBuilder(catalog)

	var sess *session.Session
	if *resume != "" {
		sess, err = env.Sessions.Load(*resume, env.Workspace)
		if err != nil {
			return err
		}
		if err := builder.Restore(sess.Workflow); err != nil {
			return err
		}
		log.Printf("↩️  Resuming session %s at turn %d", sess.ID, len(sess.Turns))
	} else {
		goal := strings.TrimSpace(*goalFlag)
		if goal == "" {
			goal = strings.TrimSpace(strings.Join(fs.Args(), " "))
		}
		if goal == "" {
			return errors.New("no goal given: use --goal or pass it as arguments")
		}
		now := time.Now()
		sess = &session.Session{
			ID:            uuid.NewString(),
			WorkspacePath: env.Workspace,
			Goal:          goal,
			Model:         model,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	return runLoop(ctx, env, loopRun{
		flags:    lf,
		llm:      llm,
		model:    model,
		builder:  builder,
		session:  sess,
		recorder: env.Recorder,
		retry:    true,
	})
}

func replayCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	var lf loopFlags
	lf.register(fs)
	goalFlag := fs.String("goal", "", "Goal to use when the run has no saved session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: flowsmith replay [flags] <run-id>")
	}
	runID := fs.Arg(0)

	env, err := prepareRuntimeEnv(ctx, lf.workspace)
	if err != nil {
		return err
	}
	defer env.Close()

	llm, err := recorder.NewReplayClient(ctx, env.Recorder, runID)
	if err != nil {
		return err
	}

	goal := *goalFlag
	if goal == "" {
		saved, err := env.Sessions.Load(runID, env.Workspace)
		if err != nil {
			return fmt.Errorf("no saved session for %s, pass --goal: %w", runID, err)
		}
		goal = saved.Goal
	}

	catalog, err := env.loadCatalog(lf.catalog)
	if err != nil {
		return err
	}

	log.Printf("⏪ Replaying %d recorded replies of run %s", llm.Remaining(), runID)
	return runLoop(ctx, env, loopRun{
		flags:   lf,
		llm:     llm,
		model:   "replay",
		builder: workflow.NewBuilder(catalog),
		session: &session.Session{ID: uuid.NewString(), WorkspacePath: env.Workspace, Goal: goal, Title: "Replay of " + runID},
	})
}

type loopRun struct {
	flags    loopFlags
	llm      engine.LLMClient
	model    string
	builder  *workflow.Builder
	session  *session.Session
	recorder engine.Recorder // nil when replaying
	retry    bool
}

func runLoop(ctx context.Context, env *runtimeEnv, r loopRun) error {
	ec := r.flags.engineConfig(env)
	if !r.retry {
		ec.Retry = nil
	}

	hooks := engine.DefaultHooks()
	var stream *eventStream
	if r.flags.events {
		stream = newEventStream(os.Stdout)
		defer stream.Close()
		hooks = engine.Hooks{engine.LoggerHook{L: log.Default()}, engine.EventHook{Ch: stream.Ch()}}
	}

	// Stopped before the stream closes, so reload callbacks never send on it.
	ref, stopRefine, err := r.flags.refinement()
	if err != nil {
		return err
	}
	defer stopRefine()
	if src, ok := ref.(*refine.FileSource); ok && stream != nil {
		src.OnChange(func(text string) {
			stream.Ch() <- engine.Event{Kind: "refinement", Data: text}
		})
	}
	hooks = append(hooks, &session.AutosaveHook{
		Store:    env.Sessions,
		Session:  r.session,
		Workflow: r.builder,
	})

	cb := engine.NewControllerBuilder().
		WithLLM(r.llm).
		WithModel(r.model).
		WithRunID(r.session.ID).
		WithGoal(r.session.Goal).
		WithDispatcher(r.builder).
		WithRefinement(ref).
		WithConfig(ec).
		WithHooks(hooks).
		WithRules(env.Rules).
		WithPrompts(env.Prompts)
	if r.recorder != nil {
		cb = cb.WithRecorder(r.recorder)
	}
	ctrl, err := cb.Build()
	if err != nil {
		return err
	}
	if len(r.session.Turns) > 0 {
		if err := ctrl.Restore(r.session.Turns, r.session.Actions); err != nil {
			return err
		}
	}

	final, runErr := ctrl.Run(ctx)

	if runErr == nil && final.Done && r.recorder != nil {
		summarize(ctx, env, r)
		if err := env.Sessions.Save(r.session); err != nil {
			log.Printf("⚠️  Failed to save session summary: %v", err)
		}
	}

	if !r.flags.events {
		fmt.Println()
		fmt.Println(r.builder.RenderStateColored(ec.StateIndent))
		fmt.Printf("\nsession: %s\n", r.session.ID)
	}

	if runErr != nil {
		if errors.Is(runErr, engine.ErrTurnLimit) {
			log.Printf("⏸️  %v; continue with: flowsmith run --resume %s", runErr, r.session.ID)
			return nil
		}
		return runErr
	}
	return nil
}

// summarize titles and summarizes a finished session. Failures are logged
// only; the workflow is already saved. Replays skip it since the replay
// client has no replies left for it.
func summarize(ctx context.Context, env *runtimeEnv, r loopRun) {
	s := session.NewSummarizer(r.llm, r.model, env.Prompts)
	if r.session.Title == "" {
		if title, err := s.GenerateTitle(ctx, r.session.Goal); err != nil {
			log.Printf("⚠️  %v", err)
		} else {
			r.session.Title = title
		}
	}
	if summary, err := s.GenerateSummary(ctx, r.session.Goal, r.session.Actions); err != nil {
		log.Printf("⚠️  %v", err)
	} else {
		r.session.Summary = summary
	}
}
