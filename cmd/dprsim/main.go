// Package main is the entry point of the dprsim command-line simulator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/config"
	"github.com/cory-johannsen/dpr/internal/observability"
)

// app carries what the root command loads for every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

var (
	configPath string
	current    app
)

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"creatures":        "content.creatures",
	"conditions":       "content.conditions",
	"scripts":          "content.scripts",
	"iterations":       "simulation.iterations",
	"rounds":           "simulation.rounds",
	"encounters":       "simulation.encounters_per_day",
	"short-rest-every": "simulation.short_rest_every",
	"seed":             "simulation.seed",
	"workers":          "simulation.workers",
	"tolerance":        "simulation.failure_tolerance",
	"budget":           "simulation.budget",
	"carry-hp":         "simulation.carry_hp",
	"tie-break":        "simulation.tie_break",
	"cancel-policy":    "simulation.cancel_policy",
}

var rootCmd = &cobra.Command{
	Use:           "dprsim",
	Short:         "Monte Carlo damage-per-round simulator",
	Long:          `dprsim estimates damage per round and encounter outcomes of tabletop characters by simulating many adventuring days.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v, err := config.New(configPath)
		if err != nil {
			return err
		}
		if err := bindFlags(v, cmd); err != nil {
			return err
		}
		cfg, err := config.LoadFromViper(v)
		if err != nil {
			return err
		}
		logger, err := observability.NewLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		current = app{cfg: cfg, logger: logger}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if current.logger != nil {
			_ = current.logger.Sync()
		}
	},
}

// bindFlags binds every flag of cmd that overrides a configuration key.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "minimum log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: json or console")

	rootCmd.AddCommand(runCmd, validateCmd, levelsCmd, runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
