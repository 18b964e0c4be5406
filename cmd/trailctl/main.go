// Command trailctl renders breadcrumb trails for a fixture wiki and manages
// the ancestor store behind them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, state := newRootCmd()
	if err := state.execute(ctx, root); err != nil {
		fmt.Fprintln(os.Stderr, "trailctl:", err)
		return exitCode(err)
	}
	return exitSuccess
}
