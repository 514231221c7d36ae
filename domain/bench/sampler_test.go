package bench

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/catalog"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
)

// fakeSource serves a fixed number of rows per table.
type fakeSource struct {
	rows  map[string]int
	err   error
	calls []string
}

func (f *fakeSource) RandomIDs(_ context.Context, model any, limit int) ([]string, error) {
	var table string
	switch model.(type) {
	case *catalog.User:
		table = "users"
	case *catalog.Movie:
		table = "movies"
	case *catalog.Person:
		table = "persons"
	default:
		return nil, fmt.Errorf("unexpected model %T", model)
	}
	f.calls = append(f.calls, table)
	if f.err != nil {
		return nil, f.err
	}

	n := min(limit, f.rows[table])
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", table, i)
	}
	return ids, nil
}

func newTestSampler(src *fakeSource) *Sampler {
	s := NewSampler(logger.Discard())
	s.newSource = func(bun.IDB) idSource { return src }
	return s
}

func TestLoadIDs(t *testing.T) {
	src := &fakeSource{rows: map[string]int{"users": 10, "movies": 10, "persons": 10}}
	s := newTestSampler(src)

	ids, err := s.LoadIDs(context.Background(), nil, 5, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"users", "movies", "persons"}, src.calls)
	assert.Len(t, ids.GetUser, 5)
	assert.Len(t, ids.GetMovie, 5)
	assert.Len(t, ids.GetPerson, 5)
	assert.Equal(t, ids.GetMovie, ids.UpdateMovie)

	assert.Equal(t, []string{catalog.InsertPrefix, catalog.InsertPrefix, catalog.InsertPrefix}, ids.InsertUser)
	assert.Equal(t, ids.InsertUser, ids.InsertMoviePlus)

	require.Len(t, ids.InsertMovie, 3)
	for _, seed := range ids.InsertMovie {
		assert.Equal(t, catalog.InsertPrefix, seed.Prefix)
		assert.Equal(t, ids.GetPerson[:MovieSeedPeople], seed.People)
	}
}

func TestLoadIDs_SeedsDoNotShareBacking(t *testing.T) {
	s := newTestSampler(&fakeSource{rows: map[string]int{"users": 4, "movies": 4, "persons": 4}})

	ids, err := s.LoadIDs(context.Background(), nil, 4, 2)
	require.NoError(t, err)

	ids.InsertMovie[0].People[0] = "changed"
	assert.Equal(t, "persons-0", ids.InsertMovie[1].People[0])
	assert.Equal(t, "persons-0", ids.GetPerson[0])
}

func TestLoadIDs_Insufficient(t *testing.T) {
	tests := []struct {
		name  string
		rows  map[string]int
		n     int
		table string
		want  int
	}{
		{"few users", map[string]int{"users": 2, "movies": 10, "persons": 10}, 5, "users", 5},
		{"few movies", map[string]int{"users": 10, "movies": 0, "persons": 10}, 5, "movies", 5},
		{"few persons", map[string]int{"users": 10, "movies": 10, "persons": 4}, 5, "persons", 5},
		{"persons below seed size", map[string]int{"users": 10, "movies": 10, "persons": 3}, 2, "persons", MovieSeedPeople},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSampler(&fakeSource{rows: tt.rows})

			_, err := s.LoadIDs(context.Background(), nil, tt.n, 1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrInsufficientFixtureData))

			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, 409, appErr.HTTPStatus)
			assert.Equal(t, tt.table, appErr.Details["table"])
			assert.Equal(t, tt.want, appErr.Details["want"])
		})
	}
}

func TestLoadIDs_FewerIDsThanSeedSize(t *testing.T) {
	src := &fakeSource{rows: map[string]int{"users": 10, "movies": 10, "persons": 10}}
	s := newTestSampler(src)

	ids, err := s.LoadIDs(context.Background(), nil, 2, 1)
	require.NoError(t, err)

	assert.Len(t, ids.GetUser, 2)
	assert.Len(t, ids.GetMovie, 2)
	assert.Equal(t, []string{"persons-0", "persons-1"}, ids.GetPerson)
	require.Len(t, ids.InsertMovie, 1)
	assert.Equal(t, []string{"persons-0", "persons-1", "persons-2", "persons-3"}, ids.InsertMovie[0].People)
}

func TestLoadIDs_BadArguments(t *testing.T) {
	src := &fakeSource{}
	s := newTestSampler(src)

	_, err := s.LoadIDs(context.Background(), nil, 0, 1)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))

	_, err = s.LoadIDs(context.Background(), nil, 1, 0)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))

	assert.Empty(t, src.calls)
}

func TestLoadIDs_SourceError(t *testing.T) {
	boom := apperror.ErrDatabase.WithInternal(errors.New("boom"))
	src := &fakeSource{err: boom}
	s := newTestSampler(src)

	_, err := s.LoadIDs(context.Background(), nil, 1, 1)
	assert.True(t, errors.Is(err, apperror.ErrDatabase))
	assert.Equal(t, []string{"users"}, src.calls)
}
