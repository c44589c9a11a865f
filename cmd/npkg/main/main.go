package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/npkg/cmd/npkg"
	"github.com/arthur-debert/npkg/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := npkg.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		npkg.ReportError(os.Stderr, err)
	}
	os.Exit(errors.ExitCode(err))
}
