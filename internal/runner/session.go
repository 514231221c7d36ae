package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/bench"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
)

// Lifecycle resets the catalog around mutating benchmarks.
type Lifecycle interface {
	Setup(ctx context.Context, db bun.IDB, name string) error
	Cleanup(ctx context.Context, db bun.IDB, name string) error
}

// Session runs a list of benchmarks against one set of fixture ids, with
// setup before and cleanup after every mutating benchmark.
type Session struct {
	runner    *Runner
	lifecycle Lifecycle
	conn      ConnFunc
	log       *slog.Logger
}

func NewSession(runner *Runner, lifecycle Lifecycle, conn ConnFunc, log *slog.Logger) *Session {
	return &Session{
		runner:    runner,
		lifecycle: lifecycle,
		conn:      conn,
		log:       log.With(logger.Scope("runner.session")),
	}
}

// Run executes names in order and returns one result per benchmark. It
// stops at the first benchmark that cannot be run; cleanup still runs for
// a mutating benchmark whose run failed.
func (s *Session) Run(ctx context.Context, names []string, ids bench.IDs) ([]Result, error) {
	for _, name := range names {
		if !bench.IsKnown(name) {
			return nil, apperror.ErrUnknownBenchmark.WithMessage(fmt.Sprintf("unknown benchmark %q", name))
		}
	}

	results := make([]Result, 0, len(names))
	for _, name := range names {
		res, err := s.runOne(ctx, name, ids.Args(name))
		if err != nil {
			return results, fmt.Errorf("run %s: %w", name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Session) runOne(ctx context.Context, name string, args []any) (res Result, err error) {
	if !bench.IsMutating(name) {
		return s.runner.Run(ctx, name, args)
	}

	if err := s.conn(ctx, func(db bun.IDB) error { return s.lifecycle.Setup(ctx, db, name) }); err != nil {
		return Result{}, fmt.Errorf("setup: %w", err)
	}
	defer func() {
		// Cleanup must run even when ctx was canceled mid-run.
		cctx := context.WithoutCancel(ctx)
		cerr := s.conn(cctx, func(db bun.IDB) error { return s.lifecycle.Cleanup(cctx, db, name) })
		if cerr != nil {
			s.log.Error("cleanup failed", slog.String("benchmark", name), logger.Error(cerr))
			err = errors.Join(err, fmt.Errorf("cleanup: %w", cerr))
		}
	}()

	return s.runner.Run(ctx, name, args)
}
