// Command kvcache stores values in a key-value store, replays the recorded
// call history, and fetches web pages through a short-lived cache.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/kvcache/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kvcache:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
