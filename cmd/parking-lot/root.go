package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"parking-lot/internal/config"
	"parking-lot/internal/logging"
	"parking-lot/internal/parking"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "parking-lot",
	Short:        "Parking lot manager with nearest slot allocation and tiered fees",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// app holds what every command needs: configuration, telemetry and the lot
// built from the configured layout.
type app struct {
	cfg       *config.Config
	telemetry *parking.TelemetryProvider
	lot       *parking.InstrumentedParkingLot
}

func newApp(ctx context.Context, withLot bool) (*app, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logging.Init(cfg.Logging.Development, cfg.Logging.Level)

	telemetry := parking.NewNoopTelemetryProvider()
	if cfg.Telemetry.Enabled {
		telemetry, err = parking.NewTelemetryProvider(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	a := &app{cfg: cfg, telemetry: telemetry}
	if !withLot {
		return a, nil
	}

	lot, err := cfg.Lot.Build()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build parking lot: %w", err)
	}
	a.lot, err = parking.NewInstrumentedParkingLot(lot, telemetry)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("instrument parking lot: %w", err)
	}

	logging.Info(ctx).
		Int("capacity", lot.Capacity()).
		Int("entry_points", lot.EntryPoints()).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Msg("parking lot ready")

	return a, nil
}

func (a *app) close() {
	if a.lot != nil {
		if err := a.lot.Close(); err != nil {
			logging.Warn(context.Background()).Err(err).Msg("failed to unregister parking lot")
		}
	}

	logging.Info(context.Background()).Msg("shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx).Err(err).Msg("error shutting down telemetry")
	}
}
