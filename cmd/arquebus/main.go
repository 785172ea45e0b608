package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "arquebus",
		Short:         "arquebus - in-process typed publish/subscribe bus",
		Long:          `arquebus tooling: load-test a bus, inspect a live registry and print build information.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to a YAML or JSON config file")

	root.AddCommand(newBenchCommand())
	root.AddCommand(newInspectCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
