// Package main is the entry point of the monster import tool.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/dpr/internal/importer"
	"github.com/cory-johannsen/dpr/internal/importer/fivetools"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		format    string
		sourceDir string
		outputDir string
	)
	cmd := &cobra.Command{
		Use:           "import-content",
		Short:         "Convert third-party monster data into creature catalog files",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var src importer.Source
			switch format {
			case "5etools":
				src = fivetools.NewSource()
			default:
				return fmt.Errorf("unknown format %q (supported: 5etools)", format)
			}

			start := time.Now()
			if _, err := importer.New(src, cmd.OutOrStdout()).Run(sourceDir, outputDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "import complete in %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "5etools", "source format: 5etools")
	cmd.Flags().StringVar(&sourceDir, "source", "", "bestiary JSON file or directory")
	cmd.Flags().StringVar(&outputDir, "output", "content/creatures/monsters/imported", "output directory for catalog YAML")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
