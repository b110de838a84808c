package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "run DEVICE",
		Short: "Extract the configured range to the output file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prepare(cmd, args); err != nil {
				return err
			}
			if interactive {
				return a.shell(cmd.Context())
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			_, err := a.extract(ctx)

			return err
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start the interactive shell instead")

	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats DEVICE",
		Short: "Print the target's extraction statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prepare(cmd, args); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return a.stats(ctx)
		},
	}
}

// signalContext is canceled on SIGINT or SIGTERM. Cancellation unblocks the
// session, which then closes its channel and output file.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
