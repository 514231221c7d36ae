package bench

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/moviebench/domain/catalog"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
)

func ptr[T any](v T) *T { return &v }

func TestNewUser(t *testing.T) {
	u := newUser("insert_test__", 42)
	assert.Equal(t, "insert_test__42", u.Name)
	assert.Equal(t, "image_insert_test__42", u.Image)
	assert.Empty(t, u.ID)
}

func TestNewMovie(t *testing.T) {
	m := newMovie("insert_test__", 7)
	assert.Equal(t, "insert_test__7", m.Title)
	assert.Equal(t, "insert_test__image7.jpeg", m.Image)
	assert.Equal(t, "insert_test__description7", m.Description)
	assert.Equal(t, 7, m.Year)
	assert.True(t, catalog.HasMarker(m.Image))
}

func TestPlusPersons(t *testing.T) {
	people := plusPersons("insert_test__", 10)
	require.Len(t, people, 3)

	assert.Equal(t, "insert_test__Alice", people[0].FirstName)
	assert.Equal(t, "insert_test__Director", people[0].LastName)
	assert.Equal(t, "insert_test__image10.jpeg", people[0].Image)

	assert.Equal(t, "insert_test__Billie", people[1].FirstName)
	assert.Equal(t, "insert_test__Actor", people[1].LastName)
	assert.Equal(t, "insert_test__image11.jpeg", people[1].Image)

	assert.Equal(t, "insert_test__Cameron", people[2].FirstName)
	assert.Equal(t, "insert_test__image12.jpeg", people[2].Image)

	for _, p := range people {
		assert.True(t, catalog.HasMarker(p.Image), "cleanup matches persons by image")
	}
}

func TestSplitByRole(t *testing.T) {
	stored := []catalog.Person{
		{ID: "a", LastName: "insert_test__Actor", FullName: "A", Image: "a.jpeg"},
		{ID: "d", LastName: "insert_test__Director", FullName: "D", Image: "d.jpeg"},
		{ID: "b", LastName: "insert_test__Actor", FullName: "B", Image: "b.jpeg"},
	}

	directors, cast := splitByRole(stored)
	assert.Equal(t, []catalog.PersonRef{{ID: "d", FullName: "D", Image: "d.jpeg"}}, directors)
	assert.Equal(t, []catalog.PersonRef{
		{ID: "a", FullName: "A", Image: "a.jpeg"},
		{ID: "b", FullName: "B", Image: "b.jpeg"},
	}, cast)

	directors, cast = splitByRole(nil)
	assert.NotNil(t, directors)
	assert.NotNil(t, cast)
}

func TestUserDetail(t *testing.T) {
	t.Run("with reviews", func(t *testing.T) {
		created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rows := []catalog.UserReviewRow{
			{
				ID: "u", Name: "critic", Image: "critic.png",
				ReviewID: ptr("r2"), ReviewBody: ptr("newer"), ReviewRating: ptr(4),
				ReviewCreationTime: ptr(created.Add(time.Hour)),
				MovieID:            ptr("m2"), MovieImage: ptr("m2.jpeg"), MovieTitle: ptr("Arrival"),
				MovieAvgRating: ptr(4.0),
			},
			{
				ID: "u", Name: "critic", Image: "critic.png",
				ReviewID: ptr("r1"), ReviewBody: ptr("older"), ReviewRating: ptr(5),
				ReviewCreationTime: ptr(created),
				MovieID:            ptr("m1"), MovieImage: ptr("m1.jpeg"), MovieTitle: ptr("Blade Runner"),
			},
		}

		got := userDetail(rows)
		assert.Equal(t, "u", got.ID)
		assert.Equal(t, "critic", got.Name)
		require.Len(t, got.LatestReviews, 2)
		assert.Equal(t, "r2", got.LatestReviews[0].ID)
		assert.Equal(t, ReviewMovie{ID: "m2", Image: "m2.jpeg", Title: "Arrival", AvgRating: ptr(4.0)}, got.LatestReviews[0].Movie)
		assert.Equal(t, "r1", got.LatestReviews[1].ID)
		assert.Nil(t, got.LatestReviews[1].Movie.AvgRating)
	})

	t.Run("without reviews", func(t *testing.T) {
		got := userDetail([]catalog.UserReviewRow{{ID: "u", Name: "lurker", Image: "lurker.png"}})

		body, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"u","name":"lurker","image":"lurker.png","latest_reviews":[]}`, string(body))
	})
}

func TestMovieDetail_EmptyListsMarshalAsArrays(t *testing.T) {
	got := movieDetail(&catalog.Movie{ID: "m", Title: "Dune", Year: 2021}, nil, nil, nil)

	body, err := json.Marshal(got)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, []any{}, out["directors"])
	assert.Equal(t, []any{}, out["cast"])
	assert.Equal(t, []any{}, out["reviews"])
	assert.Nil(t, out["avg_rating"])
}

func TestMovieDetail_Reviews(t *testing.T) {
	got := movieDetail(&catalog.Movie{ID: "m"}, nil, nil, []catalog.MovieReviewRow{
		{ID: "r", Body: "good", Rating: 5, AuthorID: "u", AuthorName: "critic", AuthorImage: "c.png"},
	})
	require.Len(t, got.Reviews, 1)
	assert.Equal(t, ReviewAuthor{ID: "u", Name: "critic", Image: "c.png"}, got.Reviews[0].Author)
}

func TestSeedArg(t *testing.T) {
	seed := MovieSeed{Prefix: "insert_test__", People: []string{"a"}}

	got, err := seedArg(seed)
	require.NoError(t, err)
	assert.Equal(t, seed, got)

	got, err = seedArg(&seed)
	require.NoError(t, err)
	assert.Equal(t, seed, got)

	_, err = seedArg((*MovieSeed)(nil))
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))

	_, err = seedArg("insert_test__")
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}

func TestValidPrefix(t *testing.T) {
	assert.NoError(t, validPrefix("insert_test__"))
	assert.NoError(t, validPrefix("insert_test__worker_3_"))
	assert.Error(t, validPrefix("insert_"))
	assert.Error(t, validPrefix(""))
}

// The cases below all fail before touching the database, so a nil handle is
// never dereferenced.
func TestExecute_RejectsBadInput(t *testing.T) {
	svc := NewService(logger.Discard())
	goodUUID := "7b1d7a6e-3c5e-4c1d-9f0a-2f9a3a6b8c11"

	tests := []struct {
		name      string
		benchmark string
		arg       any
		want      error
	}{
		{"unknown benchmark", "drop_tables", "x", apperror.ErrUnknownBenchmark},
		{"malformed user id", GetUser, "not-a-uuid", apperror.ErrBadRequest},
		{"malformed movie id", GetMovie, "", apperror.ErrBadRequest},
		{"malformed person id", GetPerson, "123", apperror.ErrBadRequest},
		{"malformed update id", UpdateMovie, "movie", apperror.ErrBadRequest},
		{"non-string argument", GetUser, 42, apperror.ErrBadRequest},
		{"unmarked user prefix", InsertUser, "user_", apperror.ErrBadRequest},
		{"unmarked plus prefix", InsertMoviePlus, "plus_", apperror.ErrBadRequest},
		{"seed of wrong type", InsertMovie, "insert_test__", apperror.ErrBadRequest},
		{"unmarked seed prefix", InsertMovie, MovieSeed{Prefix: "x", People: []string{goodUUID, goodUUID, goodUUID, goodUUID}}, apperror.ErrBadRequest},
		{"short seed", InsertMovie, MovieSeed{Prefix: catalog.InsertPrefix, People: []string{goodUUID}}, apperror.ErrBadRequest},
		{"malformed seed person", InsertMovie, MovieSeed{Prefix: catalog.InsertPrefix, People: []string{goodUUID, goodUUID, goodUUID, "nope"}}, apperror.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Execute(context.Background(), nil, tt.benchmark, tt.arg)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestExecute_RecordsOutcome(t *testing.T) {
	svc := NewService(logger.Discard())
	counter := OperationsTotal.WithLabelValues(GetPerson, "bad_request")
	before := testutil.ToFloat64(counter)

	_, err := svc.Execute(context.Background(), nil, GetPerson, "nope")
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestExecute_UnknownBenchmarkNotRecorded(t *testing.T) {
	svc := NewService(logger.Discard())
	counter := OperationsTotal.WithLabelValues("drop_tables", "unknown_benchmark")
	before := testutil.ToFloat64(counter)

	_, _ = svc.Execute(context.Background(), nil, "drop_tables", nil)
	assert.Equal(t, before, testutil.ToFloat64(counter))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "not_found", outcome(apperror.NewNotFound("movie", "x")))
	assert.Equal(t, "database_error", outcome(apperror.ErrDatabase.WithInternal(errors.New("x"))))
	assert.Equal(t, "error", outcome(errors.New("plain")))
}
