// Package cmd implements the moviebench command line.
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/internal/version"
)

var (
	driver string
	debug  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moviebench",
	Short: "PostgreSQL movie catalog benchmark harness",
	Long: `moviebench drives the movie catalog benchmark queries against PostgreSQL.

Connection settings come from POSTGRES_* environment variables (or a .env
file); run defaults come from BENCH_* variables and can be overridden with
flags or a YAML plan.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if debug {
			if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
				return err
			}
		}
		if driver != "" {
			return os.Setenv("DB_DRIVER", driver)
		}
		return nil
	},
}

// NewRootCommand returns the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	return rootCmd
}

// Execute runs the command line with ctx. It is called by main.main.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "database driver: "+config.DriverPgx+", "+config.DriverPgdriver+" or "+config.DriverPq+" (default from DB_DRIVER)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
