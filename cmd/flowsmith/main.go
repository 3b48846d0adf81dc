package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

const usage = `usage: flowsmith <command> [flags]

commands:
  run       build a workflow from a goal (or --resume a saved session)
  replay    re-run a recorded run without a live model
  runs      list, search or show recorded model calls
  sessions  list saved sessions for the current workspace
`

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "run":
		err = runCommand(ctx, args[1:])
	case "replay":
		err = replayCommand(ctx, args[1:])
	case "runs":
		err = runsCommand(ctx, args[1:])
	case "sessions":
		err = sessionsCommand(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", args[0], err)
	}
}
