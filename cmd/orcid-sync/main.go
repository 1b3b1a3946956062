// Command orcid-sync runs the ORCID synchronization jobs: push drains the
// work queue into the registry, pull runs the inbound actions over every
// linked profile. Both are meant to be invoked by an external scheduler.
//
// Exit codes: 0 = the run completed (individual records may have failed),
// 1 = setup error.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
