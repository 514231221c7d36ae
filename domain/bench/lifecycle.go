package bench

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/moviebench/domain/catalog"
	"github.com/emergent-company/moviebench/internal/database"
	"github.com/emergent-company/moviebench/pkg/logger"
	"github.com/emergent-company/moviebench/pkg/tracing"
)

// resetStep is one statement of a benchmark reset.
type resetStep struct {
	name string
	run  func(ctx context.Context, repo *catalog.Repository) (int64, error)
}

// resetPlan returns the statements that restore the catalog after the named
// benchmark, in execution order. Read-only and unknown benchmarks have none.
func resetPlan(name string) []resetStep {
	switch name {
	case UpdateMovie:
		return []resetStep{
			{"titles", func(ctx context.Context, r *catalog.Repository) (int64, error) {
				return r.ResetTitles(ctx)
			}},
		}
	case InsertUser:
		return []resetStep{
			{"users", func(ctx context.Context, r *catalog.Repository) (int64, error) {
				return r.DeleteMarkedUsers(ctx, catalog.InsertPrefix)
			}},
		}
	case InsertMovie, InsertMoviePlus:
		// Links first: they reference both movies and persons.
		return []resetStep{
			{"directors", func(ctx context.Context, r *catalog.Repository) (int64, error) {
				return r.DeleteMarkedDirectors(ctx, catalog.InsertPrefix)
			}},
			{"actors", func(ctx context.Context, r *catalog.Repository) (int64, error) {
				return r.DeleteMarkedActors(ctx, catalog.InsertPrefix)
			}},
			{"movies", func(ctx context.Context, r *catalog.Repository) (int64, error) {
				return r.DeleteMarkedMovies(ctx, catalog.InsertPrefix)
			}},
			{"persons", func(ctx context.Context, r *catalog.Repository) (int64, error) {
				return r.DeleteMarkedPersons(ctx, catalog.InsertPrefix)
			}},
		}
	default:
		return nil
	}
}

// Lifecycle restores the catalog before and after mutating benchmarks.
type Lifecycle struct {
	log *slog.Logger
}

func NewLifecycle(log *slog.Logger) *Lifecycle {
	return &Lifecycle{log: log.With(logger.Scope("bench.lifecycle"))}
}

// Setup removes whatever a previous run of the named benchmark left behind
// and commits before returning. It is a no-op for read-only or unknown
// benchmarks and safe to call repeatedly.
func (l *Lifecycle) Setup(ctx context.Context, db bun.IDB, name string) error {
	return l.reset(ctx, db, name, "setup")
}

// Cleanup is identical to Setup.
func (l *Lifecycle) Cleanup(ctx context.Context, db bun.IDB, name string) error {
	return l.reset(ctx, db, name, "cleanup")
}

func (l *Lifecycle) reset(ctx context.Context, db bun.IDB, name, phase string) error {
	plan := resetPlan(name)
	if len(plan) == 0 {
		return nil
	}

	ctx, span := tracing.Start(ctx, "bench."+phase,
		attribute.String("moviebench.benchmark", name),
	)
	defer span.End()

	err := database.InTx(ctx, db, func(tx bun.IDB) error {
		repo := catalog.NewRepository(tx, l.log)
		for _, step := range plan {
			n, err := step.run(ctx, repo)
			if err != nil {
				return err
			}
			LifecycleRowsAffected.WithLabelValues(name, step.name).Add(float64(n))
			l.log.Debug("reset step done",
				slog.String("phase", phase),
				slog.String("benchmark", name),
				slog.String("step", step.name),
				slog.Int64("rows", n),
			)
		}
		return nil
	})
	tracing.RecordError(span, err)
	return err
}
