package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/giihelpdesk/helpdesk-client/internal/commands"
)

var version = "dev" // set with -ldflags at build time

const exitSignedOut = 3

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := commands.NewRootCommand(version)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, commands.ErrSignedOut):
		os.Exit(exitSignedOut)
	case errors.Is(err, commands.ErrCommandFailed):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
