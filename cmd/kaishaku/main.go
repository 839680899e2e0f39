package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kaishaku/cli/cmd/kaishaku/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := cli.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		if !cli.IsSilent(err) {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
