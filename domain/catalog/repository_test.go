package catalog

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
)

// newOfflineDB returns a bun.DB that can render queries but never connects.
func newOfflineDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://bench@127.0.0.1:1/none?sslmode=disable")))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newOfflineRepo(t *testing.T) *Repository {
	return NewRepository(newOfflineDB(t), logger.Discard())
}

func TestRandomIDsQuery(t *testing.T) {
	repo := newOfflineRepo(t)

	tests := []struct {
		name  string
		model any
		table string
	}{
		{"users", (*User)(nil), `FROM "users" AS "u"`},
		{"movies", (*Movie)(nil), `FROM "movies" AS "movie"`},
		{"persons", (*Person)(nil), `FROM "persons" AS "person"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := repo.randomIDsQuery(tt.model, 25).String()
			assert.Contains(t, q, tt.table)
			assert.Contains(t, q, `"id"`)
			assert.Contains(t, q, "ORDER BY random()")
			assert.Contains(t, q, "LIMIT 25")
		})
	}
}

func TestUserWithLatestReviewsQuery(t *testing.T) {
	q := newOfflineRepo(t).userWithLatestReviewsQuery("7b0c1d2e-0000-0000-0000-000000000001").String()

	assert.Contains(t, q, "FROM users AS u")
	assert.Contains(t, q, "LEFT JOIN LATERAL (SELECT review.id AS review_id")
	assert.Contains(t, q, "avg_rating(movie) AS movie_avg_rating")
	assert.Contains(t, q, "WHERE (review.author_id = u.id)")
	assert.Contains(t, q, "ORDER BY review.creation_time DESC LIMIT 10) AS q ON TRUE")
	assert.Contains(t, q, "WHERE (u.id = '7b0c1d2e-0000-0000-0000-000000000001')")
	assert.Contains(t, q, "ORDER BY q.review_creation_time DESC")
}

func TestMovieDirectorsQuery(t *testing.T) {
	q := newOfflineRepo(t).movieDirectorsQuery("m1").String()

	assert.Contains(t, q, "full_name(person) AS full_name")
	assert.Contains(t, q, "JOIN persons AS person ON person.id = directors.person_id")
	assert.Contains(t, q, "WHERE (directors.movie_id = 'm1')")
	assert.Contains(t, q, "ORDER BY directors.list_order NULLS LAST, person.last_name")
}

func TestFilmographyQuery(t *testing.T) {
	repo := newOfflineRepo(t)

	for _, link := range []string{"actors", "directors"} {
		t.Run(link, func(t *testing.T) {
			q := repo.filmographyQuery(link, "p1").String()
			assert.Contains(t, q, `FROM "`+link+`" AS link`)
			assert.Contains(t, q, "JOIN movies AS movie ON movie.id = link.movie_id")
			assert.Contains(t, q, "WHERE (link.person_id = 'p1')")
			assert.Contains(t, q, "ORDER BY movie.year ASC, movie.title ASC")
		})
	}
}

func TestInsertPersonsQuery(t *testing.T) {
	query, args := insertPersonsQuery([]Person{
		{FirstName: "insert_test__Alice", LastName: "insert_test__Director", Image: "insert_test__image1.jpeg"},
		{FirstName: "insert_test__Billie", LastName: "insert_test__Actor", Image: "insert_test__image2.jpeg"},
	})

	assert.Contains(t, query, "VALUES (?, ?, ?, ?, ?), (?, ?, ?, ?, ?)")
	assert.Contains(t, query, "full_name(p) AS full_name")
	require.Len(t, args, 10)
	assert.Equal(t, []any{"insert_test__Alice", "", "insert_test__Director", "insert_test__image1.jpeg", ""}, args[:5])
	assert.Equal(t, "insert_test__image2.jpeg", args[8])
}

func TestColumnTablesMatchModels(t *testing.T) {
	db := newOfflineDB(t)

	tests := []struct {
		model   any
		columns any
	}{
		{(*Movie)(nil), MovieColumns},
		{(*Person)(nil), PersonColumns},
		{(*Director)(nil), DirectorColumns},
		{(*Actor)(nil), ActorColumns},
		{(*User)(nil), UserColumns},
		{(*Review)(nil), ReviewColumns},
	}

	for _, tt := range tests {
		typ := reflect.TypeOf(tt.model).Elem()
		t.Run(typ.Name(), func(t *testing.T) {
			table := db.Table(typ)
			cols := reflect.ValueOf(tt.columns)
			for i := 0; i < cols.NumField(); i++ {
				col := cols.Field(i).String()
				_, ok := table.FieldMap[col]
				assert.True(t, ok, "%s has no column %q", typ.Name(), col)
			}
		})
	}
}

// stubExec returns a fixed sql.Result from Exec.
type stubExec struct {
	res sql.Result
	err error
}

func (s stubExec) Exec(context.Context, ...any) (sql.Result, error) {
	return s.res, s.err
}

type stubResult struct {
	rows int64
	err  error
}

func (r stubResult) LastInsertId() (int64, error) { return 0, nil }
func (r stubResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestExec_RowsAffected(t *testing.T) {
	repo := newOfflineRepo(t)
	ctx := context.Background()

	n, err := repo.exec(ctx, "reset", stubExec{res: stubResult{rows: 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	unsupported := errors.New("rows affected not supported")
	_, err = repo.exec(ctx, "reset", stubExec{res: stubResult{err: unsupported}})
	assert.True(t, errors.Is(err, apperror.ErrDatabase))
	assert.ErrorIs(t, err, unsupported)

	failed := errors.New("connection reset")
	_, err = repo.exec(ctx, "reset", stubExec{err: failed})
	assert.True(t, errors.Is(err, apperror.ErrDatabase))
}
