// Package main applies the report store schema migrations.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/config"
	"github.com/cory-johannsen/dpr/internal/observability"
)

var (
	configPath    string
	migrationsDir string
	steps         int
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Apply report store schema migrations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/dev.yaml", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "migrations", "migration source directory")
	rootCmd.PersistentFlags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	rootCmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply pending migrations", Args: cobra.NoArgs, RunE: direction("up")},
		&cobra.Command{Use: "down", Short: "Revert applied migrations", Args: cobra.NoArgs, RunE: direction("down")},
		&cobra.Command{Use: "version", Short: "Print the current schema version", Args: cobra.NoArgs, RunE: printVersion},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// open loads the configuration and returns a migrator for its database.
func open() (*migrate.Migrate, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	m, err := migrate.New("file://"+migrationsDir, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, logger, nil
}

func direction(dir string) func(*cobra.Command, []string) error {
	return func(*cobra.Command, []string) error {
		start := time.Now()
		m, logger, err := open()
		if err != nil {
			return err
		}
		defer m.Close()

		switch {
		case dir == "up" && steps > 0:
			err = m.Steps(steps)
		case dir == "up":
			err = m.Up()
		case steps > 0:
			err = m.Steps(-steps)
		default:
			err = m.Down()
		}
		noChange := errors.Is(err, migrate.ErrNoChange)
		if err != nil && !noChange {
			return fmt.Errorf("migration failed: %w", err)
		}

		version, dirty, _ := m.Version()
		logger.Info("migrations applied",
			zap.String("direction", dir),
			zap.Bool("changed", !noChange),
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
			zap.Duration("elapsed", time.Since(start)),
		)
		_ = logger.Sync()
		return nil
	}
}

func printVersion(cmd *cobra.Command, _ []string) error {
	m, _, err := open()
	if err != nil {
		return err
	}
	defer m.Close()
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%v\n", version, dirty)
	return nil
}
