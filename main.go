// The main package for the graphscout executable.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/graphscout/graphscout/cmd"
)

// main is the entry point of the application. It defers all execution to the
// Cobra CLI library and cancels the root context on SIGINT or SIGTERM.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
