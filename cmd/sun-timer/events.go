package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/sun-timer/internal/astro"
)

func newEventsCmd(configPath *string) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the astronomical event times for a day",
		Long: `Print the id, name and local time of every catalog event for the
configured position. The ids are the values accepted as start and end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !cfg.HasPosition() {
				return fmt.Errorf("events: position not configured")
			}
			day := time.Now()
			if date != "" {
				day, err = time.ParseInLocation(time.DateOnly, date, time.Local)
				if err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
			}
			printEvents(cmd.OutOrStdout(), astro.Catalog(newProvider(cfg).Day(day)))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to list (YYYY-MM-DD, default today)")
	return cmd
}

func printEvents(w io.Writer, entries []astro.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%d  %-22s %s\n", e.ID, e.Label, e.Time.Format("15:04"))
	}
}
