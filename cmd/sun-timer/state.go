package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sweeney/sun-timer/internal/clock"
	"github.com/sweeney/sun-timer/internal/config"
	"github.com/sweeney/sun-timer/internal/logic"
	"github.com/sweeney/sun-timer/internal/status"
)

func newStateCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the current scheduled state and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			snap, err := currentState(cfg, clock.Real(), logger)
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), snap, asJSON)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status JSON")
	return cmd
}

// currentState runs the schedule once without publishing anything.
func currentState(cfg *config.Config, clk clock.Clock, logger zerolog.Logger) (status.Snapshot, error) {
	rc := cfg.Runner()
	rc.PublishOnStartup = false

	tracker := status.NewTracker(clk, cfg.Status())
	runner, err := logic.New(rc, clk, newProvider(cfg), tracker, logger)
	if err != nil {
		return status.Snapshot{}, fmt.Errorf("init runner: %w", err)
	}
	runner.Start()
	defer runner.Cleanup()

	tracker.Update(runner.Snapshot())
	return tracker.Snapshot(), nil
}

func printState(w io.Writer, snap status.Snapshot, asJSON bool) {
	if asJSON {
		fmt.Fprintf(w, "%s\n", status.FormatJSON(snap))
		return
	}
	fmt.Fprintf(w, "state: %s (%s)\n", snap.StateLabel(), snap.Runner.Status.Text)
	fmt.Fprintf(w, "today: %02d:%02d - %02d:%02d %s\n",
		snap.Runner.ActualStart/60, snap.Runner.ActualStart%60,
		snap.Runner.ActualEnd/60, snap.Runner.ActualEnd%60,
		snap.Runner.OperationToday)
	fmt.Fprintf(w, "next change: %s\n", logic.HumanTime(snap.Runner.NextChange))
}
