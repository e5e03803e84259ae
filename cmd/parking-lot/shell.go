package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parking-lot/internal/logging"
	"parking-lot/internal/parking"
)

var emptyLot bool

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run the interactive parking lot shell on stdin",
	RunE:  runShellCmd,
}

func init() {
	shellCmd.Flags().BoolVar(&emptyLot, "empty", false, "start without a lot; use create_parking_lot")
	rootCmd.AddCommand(shellCmd)
}

func runShellCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, !emptyLot)
	if err != nil {
		return err
	}
	defer a.close()

	shell := parking.NewInstrumentedShell(a.telemetry, a.lot, cmd.InOrStdin(), cmd.OutOrStdout())
	if runShell(ctx, shell) {
		closeReplaced(a, shell)
	}
	return nil
}

// runShell returns true when the input ended and false when ctx was
// cancelled first. A Run blocked on a read is abandoned on cancellation.
func runShell(ctx context.Context, shell *parking.InstrumentedShell) bool {
	done := make(chan struct{})
	go func() {
		shell.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		logging.Info(ctx).Msg("shell interrupted")
		return false
	}
}

// closeReplaced unregisters a lot the shell created over the initial one.
func closeReplaced(a *app, shell *parking.InstrumentedShell) {
	if lot := shell.Lot(); lot != nil && lot != a.lot {
		_ = lot.Close()
	}
}
