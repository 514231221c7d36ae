package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/bench"
	"github.com/emergent-company/moviebench/domain/catalog"
	"github.com/emergent-company/moviebench/internal/database"
)

var execCmd = &cobra.Command{
	Use:   "exec <benchmark> [arg]",
	Short: "Run one benchmark invocation and print its result",
	Long: `Run a single invocation of a benchmark and print the JSON result.

arg is an id for get_user, get_movie, get_person and update_movie, a marker
prefix for insert_user and insert_movie_plus, and a JSON seed such as
{"people":["<uuid>","<uuid>","<uuid>","<uuid>"]} for insert_movie. Without
arg a fixture is sampled from the database.

exec does not clean up after mutating benchmarks; run "moviebench cleanup"
afterwards.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := requireKnown(name); err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, 1)
		if err != nil {
			return err
		}
		defer s.Close()

		var arg any
		if len(args) == 2 {
			if arg, err = parseExecArg(name, args[1]); err != nil {
				return err
			}
		} else {
			ids, err := bench.NewSampler(s.log).LoadIDs(ctx, s.db, 1, 1)
			if err != nil {
				return err
			}
			arg = ids.Args(name)[0]
		}

		var result any
		err = database.WithConn(ctx, s.db, func(conn bun.IDB) error {
			var err error
			result, err = bench.NewService(s.log).Execute(ctx, conn, name, arg)
			return err
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

// parseExecArg turns the command-line argument into what Execute expects
// for name.
func parseExecArg(name, raw string) (any, error) {
	if name != bench.InsertMovie {
		return raw, nil
	}
	var seed bench.MovieSeed
	if err := json.Unmarshal([]byte(raw), &seed); err != nil {
		return nil, fmt.Errorf("insert_movie seed must be JSON: %w", err)
	}
	if seed.Prefix == "" {
		seed.Prefix = catalog.InsertPrefix
	}
	return seed, nil
}

func init() {
	rootCmd.AddCommand(execCmd)
}
