// Command sun-timer switches an output on and off every day between two
// boundaries given as clock times or astronomical events, and accepts
// manual overrides over MQTT, NATS or Kafka.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sweeney/sun-timer/internal/astro"
	"github.com/sweeney/sun-timer/internal/config"
	"github.com/sweeney/sun-timer/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sun-timer",
		Short:         "Daily on/off timer with sunrise, sunset and moon boundaries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	root.AddCommand(
		newRunCmd(&configPath),
		newEventsCmd(&configPath),
		newStateCmd(&configPath),
		newConfigCmd(&configPath),
	)
	return root
}

// loadConfig loads configuration and sets up logging (called by commands
// that need it).
func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func newProvider(cfg *config.Config) astro.Provider {
	return astro.NewCached(astro.NewSunCalc(cfg.Position.Latitude, cfg.Position.Longitude))
}
