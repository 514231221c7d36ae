package bench

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/moviebench/domain/catalog"
	"github.com/emergent-company/moviebench/internal/database"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
	"github.com/emergent-company/moviebench/pkg/tracing"
)

// maxSuffix bounds the random number appended to inserted names.
const maxSuffix = 1_000_000

const (
	directorLastName = "Director"
	actorLastName    = "Actor"
)

// Service implements the benchmark operations. Every operation runs on the
// bun.IDB it is given, which is the connection of the current invocation.
type Service struct {
	log   *slog.Logger
	randN func(n int) int
}

func NewService(log *slog.Logger) *Service {
	return &Service{
		log:   log.With(logger.Scope("bench.svc")),
		randN: rand.IntN,
	}
}

func (s *Service) repo(db bun.IDB) *catalog.Repository {
	return catalog.NewRepository(db, s.log)
}

// Execute runs the named benchmark with arg, records its latency and outcome
// and returns the JSON-serialisable result.
func (s *Service) Execute(ctx context.Context, db bun.IDB, name string, arg any) (any, error) {
	if !IsKnown(name) {
		return nil, apperror.ErrUnknownBenchmark.WithMessage(fmt.Sprintf("unknown benchmark %q", name))
	}

	ctx, span := tracing.Start(ctx, "bench."+name, attribute.String("moviebench.benchmark", name))
	defer span.End()

	start := time.Now()
	result, err := s.dispatch(ctx, db, name, arg)
	elapsed := time.Since(start)

	label := outcome(err)
	OperationDuration.WithLabelValues(name, label).Observe(elapsed.Seconds())
	OperationsTotal.WithLabelValues(name, label).Inc()
	tracing.RecordError(span, err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, db bun.IDB, name string, arg any) (any, error) {
	if name == InsertMovie {
		seed, err := seedArg(arg)
		if err != nil {
			return nil, err
		}
		return s.InsertMovie(ctx, db, seed)
	}

	str, ok := arg.(string)
	if !ok {
		return nil, apperror.NewBadRequest(fmt.Sprintf("%s expects a string argument, got %T", name, arg))
	}
	switch name {
	case GetUser:
		return s.GetUser(ctx, db, str)
	case GetMovie:
		return s.GetMovie(ctx, db, str)
	case GetPerson:
		return s.GetPerson(ctx, db, str)
	case UpdateMovie:
		return s.UpdateMovie(ctx, db, str)
	case InsertUser:
		return s.InsertUser(ctx, db, str)
	case InsertMoviePlus:
		return s.InsertMoviePlus(ctx, db, str)
	}
	return nil, apperror.ErrUnknownBenchmark.WithMessage(fmt.Sprintf("unknown benchmark %q", name))
}

func seedArg(arg any) (MovieSeed, error) {
	switch v := arg.(type) {
	case MovieSeed:
		return v, nil
	case *MovieSeed:
		if v != nil {
			return *v, nil
		}
	}
	return MovieSeed{}, apperror.NewBadRequest(fmt.Sprintf("insert_movie expects a movie seed, got %T", arg))
}

func validID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewBadRequest(fmt.Sprintf("invalid %s id %q", kind, id))
	}
	return nil
}

func validPrefix(prefix string) error {
	if !catalog.HasMarker(prefix) {
		return apperror.NewBadRequest(fmt.Sprintf("insert prefix must start with %q", catalog.InsertPrefix))
	}
	return nil
}

// GetUser returns the user and their latest reviews, newest first.
func (s *Service) GetUser(ctx context.Context, db bun.IDB, id string) (*UserDetail, error) {
	if err := validID("user", id); err != nil {
		return nil, err
	}
	rows, err := s.repo(db).UserWithLatestReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	return userDetail(rows), nil
}

// userDetail folds the one-row-per-review result into a single user.
func userDetail(rows []catalog.UserReviewRow) *UserDetail {
	first := rows[0]
	out := &UserDetail{
		ID:            first.ID,
		Name:          first.Name,
		Image:         first.Image,
		LatestReviews: make([]UserReview, 0, len(rows)),
	}
	for _, r := range rows {
		if r.ReviewID == nil {
			continue
		}
		out.LatestReviews = append(out.LatestReviews, UserReview{
			ID:     *r.ReviewID,
			Body:   deref(r.ReviewBody),
			Rating: deref(r.ReviewRating),
			Movie: ReviewMovie{
				ID:        deref(r.MovieID),
				Image:     deref(r.MovieImage),
				Title:     deref(r.MovieTitle),
				AvgRating: r.MovieAvgRating,
			},
		})
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// GetMovie returns the movie with its directors, cast and reviews.
func (s *Service) GetMovie(ctx context.Context, db bun.IDB, id string) (*MovieDetail, error) {
	if err := validID("movie", id); err != nil {
		return nil, err
	}
	repo := s.repo(db)

	movie, err := repo.Movie(ctx, id)
	if err != nil {
		return nil, err
	}
	directors, err := repo.MovieDirectors(ctx, id)
	if err != nil {
		return nil, err
	}
	cast, err := repo.MovieCast(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := repo.MovieReviews(ctx, id)
	if err != nil {
		return nil, err
	}

	return movieDetail(movie, directors, cast, reviews), nil
}

func movieDetail(movie *catalog.Movie, directors, cast []catalog.PersonRef, reviews []catalog.MovieReviewRow) *MovieDetail {
	out := &MovieDetail{
		ID:          movie.ID,
		Image:       movie.Image,
		Title:       movie.Title,
		Year:        movie.Year,
		Description: movie.Description,
		AvgRating:   movie.AvgRating,
		Directors:   nonNil(directors),
		Cast:        nonNil(cast),
		Reviews:     make([]MovieReview, 0, len(reviews)),
	}
	for _, r := range reviews {
		out.Reviews = append(out.Reviews, MovieReview{
			ID:     r.ID,
			Body:   r.Body,
			Rating: r.Rating,
			Author: ReviewAuthor{ID: r.AuthorID, Name: r.AuthorName, Image: r.AuthorImage},
		})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// GetPerson returns the person with the movies they acted in and directed.
func (s *Service) GetPerson(ctx context.Context, db bun.IDB, id string) (*PersonDetail, error) {
	if err := validID("person", id); err != nil {
		return nil, err
	}
	repo := s.repo(db)

	person, err := repo.Person(ctx, id)
	if err != nil {
		return nil, err
	}
	actedIn, err := repo.ActedIn(ctx, id)
	if err != nil {
		return nil, err
	}
	directed, err := repo.Directed(ctx, id)
	if err != nil {
		return nil, err
	}

	return &PersonDetail{
		ID:       person.ID,
		FullName: person.FullName,
		Image:    person.Image,
		Bio:      person.Bio,
		ActedIn:  nonNil(actedIn),
		Directed: nonNil(directed),
	}, nil
}

// UpdateMovie appends the id-derived suffix to the movie's title.
func (s *Service) UpdateMovie(ctx context.Context, db bun.IDB, id string) (*MovieTitle, error) {
	if err := validID("movie", id); err != nil {
		return nil, err
	}

	var out *MovieTitle
	err := database.InTx(ctx, db, func(tx bun.IDB) error {
		movie, err := s.repo(tx).AppendTitleSuffix(ctx, id)
		if err != nil {
			return err
		}
		out = &MovieTitle{ID: movie.ID, Title: movie.Title}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// newUser builds the row insert_user stores for prefix and suffix number n.
func newUser(prefix string, n int) *catalog.User {
	return &catalog.User{
		Name:  fmt.Sprintf("%s%d", prefix, n),
		Image: fmt.Sprintf("image_%s%d", prefix, n),
	}
}

// InsertUser inserts a marked user with a random suffix.
func (s *Service) InsertUser(ctx context.Context, db bun.IDB, prefix string) (*UserSummary, error) {
	if err := validPrefix(prefix); err != nil {
		return nil, err
	}
	user := newUser(prefix, s.randN(maxSuffix))

	err := database.InTx(ctx, db, func(tx bun.IDB) error {
		return s.repo(tx).InsertUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return &UserSummary{ID: user.ID, Name: user.Name, Image: user.Image}, nil
}

// newMovie builds the row the insert benchmarks store for prefix and n.
func newMovie(prefix string, n int) *catalog.Movie {
	return &catalog.Movie{
		Title:       fmt.Sprintf("%s%d", prefix, n),
		Image:       fmt.Sprintf("%simage%d.jpeg", prefix, n),
		Description: fmt.Sprintf("%sdescription%d", prefix, n),
		Year:        n,
	}
}

// InsertMovie inserts a marked movie directed by seed.People[0] and starring
// seed.People[1:].
func (s *Service) InsertMovie(ctx context.Context, db bun.IDB, seed MovieSeed) (*InsertedMovie, error) {
	if err := validPrefix(seed.Prefix); err != nil {
		return nil, err
	}
	if len(seed.People) != MovieSeedPeople {
		return nil, apperror.NewBadRequest(fmt.Sprintf("insert_movie needs %d person ids, got %d", MovieSeedPeople, len(seed.People)))
	}
	for _, id := range seed.People {
		if err := validID("person", id); err != nil {
			return nil, err
		}
	}
	movie := newMovie(seed.Prefix, s.randN(maxSuffix))

	var out *InsertedMovie
	err := database.InTx(ctx, db, func(tx bun.IDB) error {
		repo := s.repo(tx)
		if err := repo.InsertMovie(ctx, movie); err != nil {
			return err
		}

		people, err := repo.PersonRefs(ctx, seed.People)
		if err != nil {
			return err
		}
		if len(people) != MovieSeedPeople {
			return apperror.NewNotFound("person", fmt.Sprintf("one of %v", seed.People))
		}
		directors, cast := people[:1], people[1:]

		if err := repo.InsertDirectors(ctx, directorLinks(movie.ID, directors)); err != nil {
			return err
		}
		if err := repo.InsertActors(ctx, actorLinks(movie.ID, cast)); err != nil {
			return err
		}

		out = insertedMovie(movie, directors, cast)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// plusPersons builds the three persons insert_movie_plus creates: one
// director and two actors.
func plusPersons(prefix string, n int) []catalog.Person {
	person := func(first, last string, k int) catalog.Person {
		return catalog.Person{
			FirstName: prefix + first,
			LastName:  prefix + last,
			Image:     fmt.Sprintf("%simage%d.jpeg", prefix, k),
		}
	}
	return []catalog.Person{
		person("Alice", directorLastName, n),
		person("Billie", actorLastName, n+1),
		person("Cameron", actorLastName, n+2),
	}
}

// InsertMoviePlus inserts a marked movie together with a new director and
// two new actors.
func (s *Service) InsertMoviePlus(ctx context.Context, db bun.IDB, prefix string) (*InsertedMovie, error) {
	if err := validPrefix(prefix); err != nil {
		return nil, err
	}
	n := s.randN(maxSuffix)
	movie := newMovie(prefix, n)

	var out *InsertedMovie
	err := database.InTx(ctx, db, func(tx bun.IDB) error {
		repo := s.repo(tx)
		if err := repo.InsertMovie(ctx, movie); err != nil {
			return err
		}

		stored, err := repo.InsertPersons(ctx, plusPersons(prefix, n))
		if err != nil {
			return err
		}
		directors, cast := splitByRole(stored)

		if err := repo.InsertDirectors(ctx, directorLinks(movie.ID, directors)); err != nil {
			return err
		}
		if err := repo.InsertActors(ctx, actorLinks(movie.ID, cast)); err != nil {
			return err
		}

		out = insertedMovie(movie, directors, cast)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// splitByRole separates freshly inserted persons into directors and cast by
// the role encoded in their last name.
func splitByRole(stored []catalog.Person) (directors, cast []catalog.PersonRef) {
	directors, cast = []catalog.PersonRef{}, []catalog.PersonRef{}
	for _, p := range stored {
		ref := catalog.PersonRef{ID: p.ID, FullName: p.FullName, Image: p.Image}
		if strings.HasSuffix(p.LastName, directorLastName) {
			directors = append(directors, ref)
		} else {
			cast = append(cast, ref)
		}
	}
	return directors, cast
}

func directorLinks(movieID string, people []catalog.PersonRef) []catalog.Director {
	links := make([]catalog.Director, len(people))
	for i, p := range people {
		links[i] = catalog.Director{PersonID: p.ID, MovieID: movieID}
	}
	return links
}

func actorLinks(movieID string, people []catalog.PersonRef) []catalog.Actor {
	links := make([]catalog.Actor, len(people))
	for i, p := range people {
		links[i] = catalog.Actor{PersonID: p.ID, MovieID: movieID}
	}
	return links
}

func insertedMovie(movie *catalog.Movie, directors, cast []catalog.PersonRef) *InsertedMovie {
	return &InsertedMovie{
		ID:          movie.ID,
		Image:       movie.Image,
		Title:       movie.Title,
		Description: movie.Description,
		Year:        movie.Year,
		Directors:   nonNil(directors),
		Cast:        nonNil(cast),
	}
}
