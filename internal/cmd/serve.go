package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/emergent-company/moviebench/domain/bench"
	"github.com/emergent-company/moviebench/domain/tracing"
	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/internal/database"
	"github.com/emergent-company/moviebench/internal/server"
	"github.com/emergent-company/moviebench/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the benchmark operations over HTTP",
	Long: `Start an HTTP server exposing every benchmark as an endpoint, plus
/ids, /setup/:name, /cleanup/:name, /health and /metrics. Listens on
SERVER_ADDRESS:SERVER_PORT and stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := fx.New(serveOptions()...)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

// serveOptions is the fx graph of the serve command.
func serveOptions() []fx.Option {
	return []fx.Option{
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		logger.Module,
		config.Module,
		database.Module,
		server.Module,
		tracing.Module,

		bench.Module,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
