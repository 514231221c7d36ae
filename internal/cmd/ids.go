package cmd

import (
	"github.com/spf13/cobra"

	"github.com/emergent-company/moviebench/domain/bench"
)

var idsFlags struct {
	n           int
	concurrency int
}

var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Sample fixture ids and print them as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, 1)
		if err != nil {
			return err
		}
		defer s.Close()

		n := flagOr(cmd, "ids", idsFlags.n, s.cfg.Bench.NumberOfIDs)
		c := flagOr(cmd, "concurrency", idsFlags.concurrency, s.cfg.Bench.Concurrency)

		ids, err := bench.NewSampler(s.log).LoadIDs(ctx, s.db, n, c)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ids)
	},
}

// flagOr returns the flag value when the user set it and def otherwise.
func flagOr[T any](cmd *cobra.Command, name string, v, def T) T {
	if cmd.Flags().Changed(name) {
		return v
	}
	return def
}

func init() {
	idsCmd.Flags().IntVarP(&idsFlags.n, "ids", "n", 0, "number of ids per table (default from BENCH_NUMBER_OF_IDS)")
	idsCmd.Flags().IntVarP(&idsFlags.concurrency, "concurrency", "c", 0, "insert seeds to generate (default from BENCH_CONCURRENCY)")
	rootCmd.AddCommand(idsCmd)
}
