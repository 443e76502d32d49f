// Command httpstack sends HTTP requests with persistent cookies and
// streaming downloads.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wumo-util/http-stack/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	err := cli.New(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}
