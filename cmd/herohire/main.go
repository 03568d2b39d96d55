package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"herohire/internal/bootstrap"
	"herohire/internal/cli"
	"herohire/internal/output"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	formatter := output.NewFormatter(os.Stdout)

	services, err := bootstrap.Build(formatter)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	deps := &cli.Dependencies{
		Login:        services.Login,
		Conversation: services.Conversation,
		Sessions:     services.Store,
		Config:       services.Config,
		In:           os.Stdin,
		Out:          formatter,

		DiscardTypeahead: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(deps).ExecuteContext(ctx)
}
