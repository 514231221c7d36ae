package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
	"github.com/emergent-company/moviebench/pkg/pgutils"
)

// LatestReviewsLimit is how many reviews the user query returns.
const LatestReviewsLimit = 10

const castSQL = `
SELECT person.id, full_name(person) AS full_name, person.image
FROM actors
JOIN persons AS person ON person.id = actors.person_id
WHERE actors.movie_id = ?
ORDER BY actors.list_order NULLS LAST, person.last_name`

const movieReviewsSQL = `
SELECT review.id, review.body, review.rating,
       author.id AS author_id, author.name AS author_name, author.image AS author_image
FROM reviews AS review
JOIN users AS author ON author.id = review.author_id
WHERE review.movie_id = ?
ORDER BY review.creation_time DESC`

const appendTitleSuffixSQL = `
UPDATE movies SET title = movies.title || ?
WHERE movies.id = ?
RETURNING movies.id, movies.title`

const resetTitlesSQL = `
UPDATE movies SET title = split_part(movies.title, ?, 1)
WHERE movies.title LIKE ?`

const insertPersonsSQL = `
INSERT INTO persons AS p (first_name, middle_name, last_name, image, bio)
VALUES %s
RETURNING p.id, p.first_name, p.middle_name, p.last_name, p.image, p.bio, full_name(p) AS full_name`

const deleteMarkedLinksSQL = `
DELETE FROM ? AS link
USING movies AS movie
WHERE link.movie_id = movie.id AND movie.image LIKE ?`

// Repository issues the catalog queries on one connection or transaction.
// It is cheap to build, so callers create one per call.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("catalog.repo")),
	}
}

func (r *Repository) fail(msg string, err error) error {
	r.log.Error(msg, logger.Error(err), slog.String("pg_class", pgutils.Class(err)))
	return apperror.ErrDatabase.WithInternal(err)
}

// RandomIDs returns up to limit random primary keys of model's table.
func (r *Repository) RandomIDs(ctx context.Context, model any, limit int) ([]string, error) {
	ids := []string{}
	err := r.randomIDsQuery(model, limit).Scan(ctx, &ids)
	if err != nil {
		return nil, r.fail("failed to sample ids", err)
	}
	return ids, nil
}

func (r *Repository) randomIDsQuery(model any, limit int) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(model).
		Column("id").
		OrderExpr("random()").
		Limit(limit)
}

// UserWithLatestReviews returns the user's row once per review (newest
// first, at most LatestReviewsLimit), or a single row with NULL review
// columns when the user has no reviews. It returns NotFound for an unknown id.
func (r *Repository) UserWithLatestReviews(ctx context.Context, id string) ([]UserReviewRow, error) {
	rows := []UserReviewRow{}
	if err := r.userWithLatestReviewsQuery(id).Scan(ctx, &rows); err != nil {
		return nil, r.fail("failed to get user", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NewNotFound("user", id)
	}
	return rows, nil
}

func (r *Repository) userWithLatestReviewsQuery(id string) *bun.SelectQuery {
	latest := r.db.NewSelect().
		TableExpr("reviews AS review").
		ColumnExpr("review.id AS review_id, review.body AS review_body, review.rating AS review_rating").
		ColumnExpr("review.creation_time AS review_creation_time").
		ColumnExpr("movie.id AS movie_id, movie.image AS movie_image, movie.title AS movie_title").
		ColumnExpr("avg_rating(movie) AS movie_avg_rating").
		Join("JOIN movies AS movie ON movie.id = review.movie_id").
		Where("review.author_id = u.id").
		OrderExpr("review.creation_time DESC").
		Limit(LatestReviewsLimit)

	return r.db.NewSelect().
		TableExpr("users AS u").
		ColumnExpr("u.id, u.name, u.image").
		ColumnExpr("q.*").
		Join("LEFT JOIN LATERAL (?) AS q ON TRUE", latest).
		Where("u.id = ?", id).
		OrderExpr("q.review_creation_time DESC")
}

// Movie returns the movie with its average rating.
func (r *Repository) Movie(ctx context.Context, id string) (*Movie, error) {
	movie := new(Movie)
	err := r.db.NewSelect().
		Model(movie).
		ColumnExpr("movie.*").
		ColumnExpr("avg_rating(movie) AS avg_rating").
		Where("movie.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("movie", id)
	}
	if err != nil {
		return nil, r.fail("failed to get movie", err)
	}
	return movie, nil
}

// MovieDirectors lists the movie's directors by list order, then last name.
func (r *Repository) MovieDirectors(ctx context.Context, movieID string) ([]PersonRef, error) {
	people := []PersonRef{}
	if err := r.movieDirectorsQuery(movieID).Scan(ctx, &people); err != nil {
		return nil, r.fail("failed to get directors", err)
	}
	return people, nil
}

func (r *Repository) movieDirectorsQuery(movieID string) *bun.SelectQuery {
	return r.db.NewSelect().
		TableExpr("directors").
		ColumnExpr("person.id, full_name(person) AS full_name, person.image").
		Join("JOIN persons AS person ON person.id = directors.person_id").
		Where("directors.movie_id = ?", movieID).
		OrderExpr("directors.list_order NULLS LAST, person.last_name")
}

// MovieCast lists the movie's actors by list order, then last name.
func (r *Repository) MovieCast(ctx context.Context, movieID string) ([]PersonRef, error) {
	people := []PersonRef{}
	if err := r.db.NewRaw(castSQL, movieID).Scan(ctx, &people); err != nil {
		return nil, r.fail("failed to get cast", err)
	}
	return people, nil
}

// MovieReviews lists the movie's reviews, newest first, with their authors.
func (r *Repository) MovieReviews(ctx context.Context, movieID string) ([]MovieReviewRow, error) {
	rows := []MovieReviewRow{}
	if err := r.db.NewRaw(movieReviewsSQL, movieID).Scan(ctx, &rows); err != nil {
		return nil, r.fail("failed to get reviews", err)
	}
	return rows, nil
}

// Person returns the person with their full name.
func (r *Repository) Person(ctx context.Context, id string) (*Person, error) {
	person := new(Person)
	err := r.db.NewSelect().
		Model(person).
		ColumnExpr("person.*").
		ColumnExpr("full_name(person) AS full_name").
		Where("person.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("person", id)
	}
	if err != nil {
		return nil, r.fail("failed to get person", err)
	}
	return person, nil
}

// ActedIn lists the movies the person appears in by year, then title.
func (r *Repository) ActedIn(ctx context.Context, personID string) ([]MovieRef, error) {
	return r.filmography(ctx, "actors", personID)
}

// Directed lists the movies the person directed by year, then title.
func (r *Repository) Directed(ctx context.Context, personID string) ([]MovieRef, error) {
	return r.filmography(ctx, "directors", personID)
}

func (r *Repository) filmography(ctx context.Context, linkTable, personID string) ([]MovieRef, error) {
	movies := []MovieRef{}
	if err := r.filmographyQuery(linkTable, personID).Scan(ctx, &movies); err != nil {
		return nil, r.fail("failed to get filmography", err)
	}
	return movies, nil
}

func (r *Repository) filmographyQuery(linkTable, personID string) *bun.SelectQuery {
	return r.db.NewSelect().
		TableExpr("? AS link", bun.Ident(linkTable)).
		ColumnExpr("movie.id, movie.image, movie.title, movie.year").
		ColumnExpr("avg_rating(movie) AS avg_rating").
		Join("JOIN movies AS movie ON movie.id = link.movie_id").
		Where("link.person_id = ?", personID).
		OrderExpr("movie.year ASC, movie.title ASC")
}

// AppendTitleSuffix appends TitleSuffix(id) to the movie's title and returns
// the updated id and title.
func (r *Repository) AppendTitleSuffix(ctx context.Context, id string) (*Movie, error) {
	movie := new(Movie)
	err := r.db.NewRaw(appendTitleSuffixSQL, TitleSuffix(id), id).Scan(ctx, movie)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("movie", id)
	}
	if err != nil {
		return nil, r.fail("failed to update movie title", err)
	}
	return movie, nil
}

// InsertUser inserts user and fills in its generated id.
func (r *Repository) InsertUser(ctx context.Context, user *User) error {
	_, err := r.db.NewInsert().
		Model(user).
		Column(UserColumns.Name, UserColumns.Image).
		Returning(UserColumns.ID).
		Exec(ctx)
	if err != nil {
		return r.fail("failed to insert user", err)
	}
	return nil
}

// InsertMovie inserts movie and fills in its generated id.
func (r *Repository) InsertMovie(ctx context.Context, movie *Movie) error {
	_, err := r.db.NewInsert().
		Model(movie).
		Column(MovieColumns.Title, MovieColumns.Image, MovieColumns.Description, MovieColumns.Year).
		Returning(MovieColumns.ID).
		Exec(ctx)
	if err != nil {
		return r.fail("failed to insert movie", err)
	}
	return nil
}

// InsertPersons inserts people in one statement and returns the stored rows,
// in insertion order, with their generated ids and full names.
func (r *Repository) InsertPersons(ctx context.Context, people []Person) ([]Person, error) {
	stored := []Person{}
	if len(people) == 0 {
		return stored, nil
	}
	query, args := insertPersonsQuery(people)
	if err := r.db.NewRaw(query, args...).Scan(ctx, &stored); err != nil {
		return nil, r.fail("failed to insert persons", err)
	}
	return stored, nil
}

func insertPersonsQuery(people []Person) (string, []any) {
	rows := make([]string, 0, len(people))
	args := make([]any, 0, len(people)*5)
	for _, p := range people {
		rows = append(rows, "(?, ?, ?, ?, ?)")
		args = append(args, p.FirstName, p.MiddleName, p.LastName, p.Image, p.Bio)
	}
	return fmt.Sprintf(insertPersonsSQL, strings.Join(rows, ", ")), args
}

// PersonRefs returns the people with the given ids, in the order of ids.
// Unknown ids are skipped.
func (r *Repository) PersonRefs(ctx context.Context, ids []string) ([]PersonRef, error) {
	found := []PersonRef{}
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.NewSelect().
		Model((*Person)(nil)).
		ColumnExpr("person.id, full_name(person) AS full_name, person.image").
		Where("person.id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return nil, r.fail("failed to get persons", err)
	}

	byID := make(map[string]PersonRef, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]PersonRef, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// InsertDirectors links directors to movies in one statement.
func (r *Repository) InsertDirectors(ctx context.Context, links []Director) error {
	if len(links) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(&links).
		Column(DirectorColumns.PersonID, DirectorColumns.MovieID).
		Exec(ctx)
	if err != nil {
		return r.fail("failed to insert directors", err)
	}
	return nil
}

// InsertActors links actors to movies in one statement.
func (r *Repository) InsertActors(ctx context.Context, links []Actor) error {
	if len(links) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(&links).
		Column(ActorColumns.PersonID, ActorColumns.MovieID).
		Exec(ctx)
	if err != nil {
		return r.fail("failed to insert actors", err)
	}
	return nil
}

// ResetTitles strips update suffixes from every movie title.
func (r *Repository) ResetTitles(ctx context.Context) (int64, error) {
	return r.exec(ctx, "failed to reset titles",
		r.db.NewRaw(resetTitlesSQL, TitleSuffixSeparator, "%"+TitleSuffixSeparator+"%"))
}

// DeleteMarkedUsers deletes users whose name starts with prefix.
func (r *Repository) DeleteMarkedUsers(ctx context.Context, prefix string) (int64, error) {
	return r.exec(ctx, "failed to delete marked users",
		r.db.NewDelete().Model((*User)(nil)).Where("u.name LIKE ?", MarkerPattern(prefix)))
}

// DeleteMarkedDirectors deletes director links of movies whose image starts with prefix.
func (r *Repository) DeleteMarkedDirectors(ctx context.Context, prefix string) (int64, error) {
	return r.exec(ctx, "failed to delete marked directors",
		r.db.NewRaw(deleteMarkedLinksSQL, bun.Ident("directors"), MarkerPattern(prefix)))
}

// DeleteMarkedActors deletes actor links of movies whose image starts with prefix.
func (r *Repository) DeleteMarkedActors(ctx context.Context, prefix string) (int64, error) {
	return r.exec(ctx, "failed to delete marked actors",
		r.db.NewRaw(deleteMarkedLinksSQL, bun.Ident("actors"), MarkerPattern(prefix)))
}

// DeleteMarkedMovies deletes movies whose image starts with prefix.
func (r *Repository) DeleteMarkedMovies(ctx context.Context, prefix string) (int64, error) {
	return r.exec(ctx, "failed to delete marked movies",
		r.db.NewDelete().Model((*Movie)(nil)).Where("movie.image LIKE ?", MarkerPattern(prefix)))
}

// DeleteMarkedPersons deletes persons whose image starts with prefix.
func (r *Repository) DeleteMarkedPersons(ctx context.Context, prefix string) (int64, error) {
	return r.exec(ctx, "failed to delete marked persons",
		r.db.NewDelete().Model((*Person)(nil)).Where("person.image LIKE ?", MarkerPattern(prefix)))
}

func (r *Repository) exec(ctx context.Context, msg string, q interface {
	Exec(ctx context.Context, dest ...any) (sql.Result, error)
}) (int64, error) {
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, r.fail(msg, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.fail(msg, err)
	}
	return n, nil
}
