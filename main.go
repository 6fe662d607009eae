// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/uiprobe/cmd"
	"github.com/xkilldash9x/uiprobe/internal/observability"
)

// main is the entry point for the uiprobe CLI application.
func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code.
func run(args []string) int {
	// Interrupts cancel the run; sessions are still released on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx, args)
	observability.Sync()
	if err != nil {
		return 1
	}
	return 0
}
