package bench

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/catalog"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
	"github.com/emergent-company/moviebench/pkg/tracing"
)

// idSource samples random primary keys from the table behind model.
type idSource interface {
	RandomIDs(ctx context.Context, model any, limit int) ([]string, error)
}

// Sampler draws the fixture IDs a benchmark session runs against.
type Sampler struct {
	log       *slog.Logger
	newSource func(db bun.IDB) idSource
}

func NewSampler(log *slog.Logger) *Sampler {
	log = log.With(logger.Scope("bench.sampler"))
	return &Sampler{
		log: log,
		newSource: func(db bun.IDB) idSource {
			return catalog.NewRepository(db, log)
		},
	}
}

// LoadIDs samples n random users, movies and persons and builds the argument
// lists for every benchmark. Insert benchmarks get one seed per concurrent
// worker. update_movie reuses the get_movie sample.
//
// It fails with ErrInsufficientFixtureData when any table holds fewer than n
// rows, or when the persons table holds fewer than MovieSeedPeople rows.
func (s *Sampler) LoadIDs(ctx context.Context, db bun.IDB, n, concurrency int) (IDs, error) {
	ctx, span := tracing.Start(ctx, "bench.load_ids")
	defer span.End()

	if n < 1 {
		return IDs{}, apperror.NewBadRequest("number of ids must be at least 1")
	}
	if concurrency < 1 {
		return IDs{}, apperror.NewBadRequest("concurrency must be at least 1")
	}

	src := s.newSource(db)
	sample := func(table string, model any, limit int) ([]string, error) {
		ids, err := src.RandomIDs(ctx, model, limit)
		if err != nil {
			return nil, err
		}
		if len(ids) < limit {
			return nil, insufficient(table, len(ids), limit)
		}
		return ids, nil
	}

	users, err := sample("users", (*catalog.User)(nil), n)
	if err != nil {
		tracing.RecordError(span, err)
		return IDs{}, err
	}
	movies, err := sample("movies", (*catalog.Movie)(nil), n)
	if err != nil {
		tracing.RecordError(span, err)
		return IDs{}, err
	}
	// One persons sample serves get_person and the insert_movie seeds.
	people, err := sample("persons", (*catalog.Person)(nil), max(n, MovieSeedPeople))
	if err != nil {
		tracing.RecordError(span, err)
		return IDs{}, err
	}

	ids := IDs{
		GetUser:         users,
		GetMovie:        movies,
		GetPerson:       people[:n],
		UpdateMovie:     movies,
		InsertUser:      repeat(catalog.InsertPrefix, concurrency),
		InsertMovie:     make([]MovieSeed, concurrency),
		InsertMoviePlus: repeat(catalog.InsertPrefix, concurrency),
	}
	for i := range ids.InsertMovie {
		ids.InsertMovie[i] = MovieSeed{
			Prefix: catalog.InsertPrefix,
			People: append([]string(nil), people[:MovieSeedPeople]...),
		}
	}

	s.log.Debug("fixture ids loaded",
		slog.Int("number_of_ids", n),
		slog.Int("concurrency", concurrency),
	)
	return ids, nil
}

func insufficient(table string, have, want int) error {
	return apperror.ErrInsufficientFixtureData.WithDetails(map[string]any{
		"table": table,
		"have":  have,
		"want":  want,
	})
}

func repeat[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}
