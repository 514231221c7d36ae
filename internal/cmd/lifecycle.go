package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/bench"
	"github.com/emergent-company/moviebench/internal/database"
)

var setupCmd = &cobra.Command{
	Use:   "setup <benchmark>",
	Short: "Remove leftovers of a previous run of a mutating benchmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset(cmd, args[0], "setup", (*bench.Lifecycle).Setup)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <benchmark>",
	Short: "Restore the catalog after a mutating benchmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset(cmd, args[0], "cleanup", (*bench.Lifecycle).Cleanup)
	},
}

type resetFunc func(l *bench.Lifecycle, ctx context.Context, db bun.IDB, name string) error

func runReset(cmd *cobra.Command, name, phase string, fn resetFunc) error {
	if err := requireKnown(name); err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, 1)
	if err != nil {
		return err
	}
	defer s.Close()

	lc := bench.NewLifecycle(s.log)
	err = database.WithConn(ctx, s.db, func(conn bun.IDB) error {
		return fn(lc, ctx, conn, name)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: done\n", phase, name)
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd, cleanupCmd)
}
