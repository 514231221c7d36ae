package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"golang.org/x/time/rate"

	"github.com/emergent-company/moviebench/internal/database"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
)

// Executor runs one named benchmark invocation on db.
type Executor interface {
	Execute(ctx context.Context, db bun.IDB, name string, arg any) (any, error)
}

// ConnFunc hands fn a connection for the duration of the call and releases
// it afterwards, whether fn fails or not.
type ConnFunc func(ctx context.Context, fn func(db bun.IDB) error) error

// PoolConn returns a ConnFunc that checks a connection out of db's pool for
// every call.
func PoolConn(db *bun.DB) ConnFunc {
	return func(ctx context.Context, fn func(bun.IDB) error) error {
		return database.WithConn(ctx, db, fn)
	}
}

// Result is the outcome of running one benchmark.
type Result struct {
	Benchmark   string        `json:"benchmark"`
	Summary     Summary       `json:"summary"`
	Wall        time.Duration `json:"wall"`
	Throughput  float64       `json:"requests_per_second"`
	Concurrency int           `json:"concurrency"`
}

// Runner drives Options.Concurrency workers against one benchmark at a time.
type Runner struct {
	exec Executor
	conn ConnFunc
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

func New(exec Executor, conn ConnFunc, opts Options, log *slog.Logger) *Runner {
	return &Runner{
		exec: exec,
		conn: conn,
		opts: opts,
		log:  log.With(logger.Scope("runner")),
		now:  time.Now,
	}
}

// Options returns the options the runner was built with.
func (r *Runner) Options() Options {
	return r.opts
}

// Run executes name against args. Worker w takes args[(w + i*C) % len(args)]
// on its i-th invocation, so with one argument per worker each worker keeps
// its own. Failed invocations are counted, never retried.
func (r *Runner) Run(ctx context.Context, name string, args []any) (Result, error) {
	if err := r.opts.Validate(); err != nil {
		return Result{}, err
	}
	if len(args) == 0 {
		return Result{}, apperror.NewBadRequest("no arguments for benchmark " + name)
	}

	col := NewCollector()
	if r.opts.Warmup > 0 {
		warm := Options{Concurrency: r.opts.Concurrency, Duration: r.opts.Warmup, Rate: r.opts.Rate, Timeout: r.opts.Timeout}
		r.drive(ctx, name, args, warm, col)
		r.log.Debug("warmup done",
			slog.String("benchmark", name),
			slog.Int("invocations", col.Count()),
		)
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		col.Reset()
	}

	start := r.now()
	r.drive(ctx, name, args, r.opts, col)
	wall := r.now().Sub(start)

	res := Result{
		Benchmark:   name,
		Summary:     col.Summary(),
		Wall:        wall,
		Concurrency: r.opts.Concurrency,
	}
	if wall > 0 {
		res.Throughput = float64(res.Summary.Total) / wall.Seconds()
	}

	r.log.Info("benchmark finished",
		slog.String("benchmark", name),
		slog.Int("total", res.Summary.Total),
		slog.Int("failures", res.Summary.Failures),
		slog.Duration("p50", res.Summary.P50),
		slog.Float64("rps", res.Throughput),
	)
	return res, ctx.Err()
}

func (r *Runner) drive(ctx context.Context, name string, args []any, opts Options, col *Collector) {
	runCtx := ctx
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	var wg sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			for i := 0; opts.Iterations == 0 || i < opts.Iterations; i++ {
				if runCtx.Err() != nil {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(runCtx); err != nil {
						return
					}
				}
				arg := args[(slot+i*opts.Concurrency)%len(args)]

				d, label := r.invoke(ctx, name, arg, opts.Timeout)
				col.Record(d, label)
			}
		}(w)
	}
	wg.Wait()
}

// invoke runs a single invocation on its own connection and returns its
// latency and failure label. The parent ctx, not the run deadline, bounds
// the call so the last invocations of a timed run are not cut short.
func (r *Runner) invoke(ctx context.Context, name string, arg any, timeout time.Duration) (time.Duration, string) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := r.now()
	err := r.conn(ctx, func(db bun.IDB) error {
		_, err := r.exec.Execute(ctx, db, name, arg)
		return err
	})
	elapsed := r.now().Sub(start)

	if err != nil {
		r.log.Debug("invocation failed",
			slog.String("benchmark", name),
			logger.Error(err),
		)
		return elapsed, failureLabel(err)
	}
	return elapsed, ""
}

func failureLabel(err error) string {
	var appErr *apperror.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &appErr):
		return appErr.Code
	default:
		return "error"
	}
}
