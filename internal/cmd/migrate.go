package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/emergent-company/moviebench/internal/migrate"
	"github.com/emergent-company/moviebench/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the catalog schema",
}

// withMigrator connects and hands fn a migrator for the catalog schema.
func withMigrator(cmd *cobra.Command, fn func(m *migrate.Migrator) error) error {
	s, err := openSession(cmd.Context(), 1)
	if err != nil {
		return err
	}
	defer s.Close()

	zl, err := logger.NewZapLogger()
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	m, err := migrate.NewMigrator(s.db.DB, zl)
	if err != nil {
		return err
	}
	return fn(m)
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, func(m *migrate.Migrator) error {
			return m.Up(cmd.Context())
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, func(m *migrate.Migrator) error {
			return m.Down(cmd.Context())
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, func(m *migrate.Migrator) error {
			states, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printMigrationStates(cmd, states)
		})
	},
}

func printMigrationStates(cmd *cobra.Command, states []migrate.MigrationState) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Version", "Migration", "State")
	for _, s := range states {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		if err := table.Append(fmt.Sprint(s.Version), s.Path, state); err != nil {
			return err
		}
	}
	return table.Render()
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd, func(m *migrate.Migrator) error {
			v, err := m.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
