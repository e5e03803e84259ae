package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"parking-lot/internal/parking"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Replay a scripted session against the configured lot",
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	for _, line := range demoScript(time.Now()) {
		fmt.Fprintf(out, "$ %s\n", line)
		parking.NewInstrumentedShell(a.telemetry, a.lot, strings.NewReader(line), out).Run(ctx)
	}
	return nil
}

// demoScript exercises allocation, billing tiers and the status view. Exit
// times are overrides counted from the minute after now, so each billed
// duration is d plus less than a minute.
func demoScript(now time.Time) []string {
	now = now.Truncate(time.Minute).Add(time.Minute)
	at := func(d time.Duration) string {
		return now.Add(d).UTC().Format(time.RFC3339)
	}

	return []string{
		"park ABC-123 small 0",
		"park XYZ-789 medium 1",
		"park LRG-001 large 2",
		"status",
		"nearest medium 0",
		"fee ABC-123 " + at(5*time.Hour),
		"unpark XYZ-789 " + at(3*time.Hour+30*time.Minute),
		"unpark LRG-001 " + at(24*time.Hour),
		"vehicle LRG-001",
		"status",
	}
}
