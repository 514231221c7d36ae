package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/emergent-company/moviebench/domain/bench"
	"github.com/emergent-company/moviebench/domain/tracing"
	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/internal/runner"
	"github.com/emergent-company/moviebench/pkg/logger"
)

type runFlagValues struct {
	concurrency int
	ids         int
	duration    time.Duration
	iterations  int
	warmup      time.Duration
	rate        float64
	timeout     time.Duration
	plan        string
	jsonOut     string
	logFile     string
}

var runFlags runFlagValues

var runCmd = &cobra.Command{
	Use:   "run [benchmark...]",
	Short: "Run benchmarks concurrently and report latency and throughput",
	Long: `Run the named benchmarks (all of them by default) one after another.

Fixture ids are sampled once per run. Mutating benchmarks are wrapped in
setup and cleanup. Settings are taken from BENCH_* variables, then the
--plan file, then flags.`,
	Example: `  moviebench run get_movie get_person -c 16 --duration 30s
  moviebench run --plan plans/smoke.yaml --json report.json
  moviebench run insert_movie --iterations 100 --log runs.jsonl`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	var plan *runner.Plan
	if runFlags.plan != "" {
		if plan, err = runner.LoadPlan(runFlags.plan); err != nil {
			return err
		}
	}

	opts, numberOfIDs := runOptions(cmd, cfg.Bench, plan)
	if err := opts.Validate(); err != nil {
		return err
	}
	names, err := benchmarkNames(args, plan)
	if err != nil {
		return err
	}

	s, err := connect(ctx, cfg, opts.Concurrency)
	if err != nil {
		return err
	}
	defer s.Close()

	tp, err := tracing.Install(ctx, s.cfg.Otel, s.log)
	if err != nil {
		return err
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				s.log.Warn("flushing traces", logger.Error(err))
			}
		}()
	}

	ids, err := bench.NewSampler(s.log).LoadIDs(ctx, s.db, numberOfIDs, opts.Concurrency)
	if err != nil {
		return err
	}

	conn := runner.PoolConn(s.db)
	r := runner.New(bench.NewService(s.log), conn, opts, s.log)
	report := runner.NewReport(ctx, s.cfg.Database.Driver, numberOfIDs, r.Options())
	sess := runner.NewSession(r, bench.NewLifecycle(s.log), conn, s.log)

	results, runErr := sess.Run(ctx, names, ids)
	report.Results = results
	report.SetPool(s.db.DB)

	if err := report.Print(cmd.OutOrStdout()); err != nil {
		return err
	}
	if runFlags.jsonOut != "" {
		if err := report.WriteJSON(runFlags.jsonOut); err != nil {
			return fmt.Errorf("write json report: %w", err)
		}
	}
	logFile := flagOr(cmd, "log", runFlags.logFile, s.cfg.Bench.LogFile)
	if logFile != "" {
		if err := report.AppendLog(logFile); err != nil {
			return fmt.Errorf("append run log: %w", err)
		}
	}
	return runErr
}

// runOptions layers configuration, plan and flags, later ones winning. It
// returns the runner options and the number of ids to sample.
func runOptions(cmd *cobra.Command, cfg config.BenchConfig, plan *runner.Plan) (runner.Options, int) {
	opts := runner.OptionsFromConfig(cfg)
	numberOfIDs := cfg.NumberOfIDs
	if plan != nil {
		opts = plan.Apply(opts)
		if plan.Iterations > 0 && plan.Duration == 0 {
			opts.Duration = 0
		}
		if plan.NumberOfIDs > 0 {
			numberOfIDs = plan.NumberOfIDs
		}
	}

	opts.Concurrency = flagOr(cmd, "concurrency", runFlags.concurrency, opts.Concurrency)
	opts.Duration = flagOr(cmd, "duration", runFlags.duration, opts.Duration)
	opts.Iterations = flagOr(cmd, "iterations", runFlags.iterations, opts.Iterations)
	opts.Warmup = flagOr(cmd, "warmup", runFlags.warmup, opts.Warmup)
	opts.Rate = flagOr(cmd, "rate", runFlags.rate, opts.Rate)
	opts.Timeout = flagOr(cmd, "timeout", runFlags.timeout, opts.Timeout)
	numberOfIDs = flagOr(cmd, "ids", runFlags.ids, numberOfIDs)

	// An explicit iteration count replaces the configured duration bound.
	if cmd.Flags().Changed("iterations") && !cmd.Flags().Changed("duration") {
		opts.Duration = 0
	}
	return opts, numberOfIDs
}

// benchmarkNames picks the benchmarks to run: positional args, then the
// plan, then all of them.
func benchmarkNames(args []string, plan *runner.Plan) ([]string, error) {
	names := args
	if len(names) == 0 && plan != nil {
		names = plan.Benchmarks
	}
	if len(names) == 0 {
		names = bench.Benchmarks
	}
	for _, name := range names {
		if err := requireKnown(name); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func bindRunFlags(f *pflag.FlagSet) {
	f.IntVarP(&runFlags.concurrency, "concurrency", "c", 0, "concurrent workers (default from BENCH_CONCURRENCY)")
	f.IntVarP(&runFlags.ids, "ids", "n", 0, "fixture ids sampled per table (default from BENCH_NUMBER_OF_IDS)")
	f.DurationVarP(&runFlags.duration, "duration", "d", 0, "measured duration per benchmark (default from BENCH_DURATION)")
	f.IntVarP(&runFlags.iterations, "iterations", "i", 0, "invocations per worker; replaces the duration bound unless --duration is also set")
	f.DurationVar(&runFlags.warmup, "warmup", 0, "warmup per benchmark, results discarded (default from BENCH_WARMUP)")
	f.Float64Var(&runFlags.rate, "rate", 0, "max invocations per second across workers, 0 for unlimited")
	f.DurationVar(&runFlags.timeout, "timeout", 0, "timeout of a single invocation (default from BENCH_TIMEOUT)")
	f.StringVar(&runFlags.plan, "plan", "", "YAML run plan")
	f.StringVar(&runFlags.jsonOut, "json", "", "write the report as JSON to this file")
	f.StringVar(&runFlags.logFile, "log", "", "append the report as a JSON line to this file (default from BENCH_LOG_FILE)")
}

func init() {
	bindRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}
