package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/dpr/internal/runner"
	"github.com/cory-johannsen/dpr/internal/storage/postgres"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load all content and build every ability at every level",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadContent(current.cfg.Content, current.logger)
		if err != nil {
			return err
		}
		if err := errors.Join(c.check()...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d definitions, %d conditions, %d scripts\n",
			len(c.catalog.IDs()), len(c.conditions.All()), len(c.scripts))
		return nil
	},
}

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Print the generic target's armor class and saves per level",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeTargets(cmd.OutOrStdout())
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored reports",
}

var runsLimit int

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest stored runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if runsLimit < 1 {
			return fmt.Errorf("--limit must be >= 1, got %d", runsLimit)
		}
		return withStore(cmd, func(ctx context.Context, repo *postgres.ReportRepository) error {
			runs, err := repo.List(ctx, runsLimit)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs)
		})
	},
}

var runsShowJSON bool

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, repo *postgres.ReportRepository) error {
			rep, err := repo.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			if runsShowJSON {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			return writeReport(cmd.OutOrStdout(), rep, runner.FromStore)
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete stored reports",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, repo *postgres.ReportRepository) error {
			for _, id := range args {
				if err := repo.Delete(ctx, id); err != nil {
					return fmt.Errorf("run %s: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d runs\n", len(args))
			return nil
		})
	},
}

func init() {
	validateCmd.Flags().String("creatures", "content/creatures", "creature definition directory")
	validateCmd.Flags().String("conditions", "content/conditions", "extra condition definition directory")
	validateCmd.Flags().String("scripts", "content/scripts", "Lua ability script directory")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false, "print the report as JSON")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
}
