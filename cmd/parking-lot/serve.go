package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"parking-lot/internal/logging"
	"parking-lot/internal/parking"
	"parking-lot/internal/server"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the parking lot over HTTP",
	RunE:  runServe,
}

var bothCmd = &cobra.Command{
	Use:   "both",
	Short: "Serve HTTP and run the shell on the same lot",
	RunE:  runBoth,
}

func init() {
	for _, c := range []*cobra.Command{serveCmd, bothCmd} {
		c.Flags().StringVarP(&port, "port", "p", "", "HTTP port (overrides server.port)")
		rootCmd.AddCommand(c)
	}
}

func newServer(a *app) *server.Server {
	cfg := a.cfg.Server
	if port != "" {
		cfg.Port = port
	}
	return server.NewServer(cfg, a.cfg.Telemetry.ServiceName, a.telemetry, a.lot)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	srv := newServer(a)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	select {
	case err := <-serverDone:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logging.Info(ctx).Msg("received shutdown signal")
	}

	return shutdownServer(srv)
}

func runBoth(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	srv := newServer(a)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	shell := parking.NewInstrumentedShell(a.telemetry, a.lot, cmd.InOrStdin(), cmd.OutOrStdout())
	shellDone := make(chan bool, 1)
	go func() {
		shellDone <- runShell(ctx, shell)
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx).Err(err).Msg("server error")
			return err
		}
	case finished := <-shellDone:
		if finished {
			logging.Info(ctx).Msg("shell exited")
			closeReplaced(a, shell)
		}
	}

	return shutdownServer(srv)
}

func shutdownServer(srv *server.Server) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx).Err(err).Msg("server shutdown error")
		return err
	}
	return nil
}
