package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/bench"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
)

type fakeLifecycle struct {
	events     []string
	setupErr   error
	cleanupErr error
}

func (f *fakeLifecycle) Setup(_ context.Context, _ bun.IDB, name string) error {
	f.events = append(f.events, "setup "+name)
	return f.setupErr
}

func (f *fakeLifecycle) Cleanup(_ context.Context, _ bun.IDB, name string) error {
	f.events = append(f.events, "cleanup "+name)
	return f.cleanupErr
}

func testIDs() bench.IDs {
	return bench.IDs{
		GetUser:     []string{"u1", "u2"},
		GetMovie:    []string{"m1"},
		UpdateMovie: []string{"m1"},
		InsertUser:  []string{"insert_test__", "insert_test__"},
	}
}

func newTestSession(exec Executor, lc Lifecycle) (*Session, *fakePool) {
	pool := &fakePool{}
	r := New(exec, pool.conn, Options{Concurrency: 2, Iterations: 3}, logger.Discard())
	return NewSession(r, lc, pool.conn, logger.Discard()), pool
}

func TestSession_SetupAndCleanupOnlyAroundMutating(t *testing.T) {
	lc := &fakeLifecycle{}
	s, pool := newTestSession(&fakeExecutor{}, lc)

	results, err := s.Run(context.Background(), []string{bench.GetUser, bench.InsertUser, bench.GetMovie}, testIDs())
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, bench.GetUser, results[0].Benchmark)
	assert.Equal(t, bench.InsertUser, results[1].Benchmark)
	assert.Equal(t, 6, results[1].Summary.Total)
	assert.Equal(t, []string{"setup insert_user", "cleanup insert_user"}, lc.events)
	assert.Equal(t, pool.acquired.Load(), pool.released.Load())
}

func TestSession_UnknownBenchmarkRejectedUpFront(t *testing.T) {
	exec := &fakeExecutor{}
	s, _ := newTestSession(exec, &fakeLifecycle{})

	_, err := s.Run(context.Background(), []string{bench.GetUser, "drop_tables"}, testIDs())
	assert.True(t, errors.Is(err, apperror.ErrUnknownBenchmark))
	assert.Zero(t, exec.calls)
}

func TestSession_SetupFailureStops(t *testing.T) {
	exec := &fakeExecutor{}
	lc := &fakeLifecycle{setupErr: apperror.ErrDatabase}
	s, _ := newTestSession(exec, lc)

	results, err := s.Run(context.Background(), []string{bench.UpdateMovie, bench.GetUser}, testIDs())
	assert.True(t, errors.Is(err, apperror.ErrDatabase))
	assert.Empty(t, results)
	assert.Zero(t, exec.calls)
	assert.Equal(t, []string{"setup update_movie"}, lc.events)
}

func TestSession_CleanupRunsAfterFailedRun(t *testing.T) {
	lc := &fakeLifecycle{}
	s, _ := newTestSession(&fakeExecutor{}, lc)

	// insert_movie has no seeds in testIDs, so the run itself fails.
	_, err := s.Run(context.Background(), []string{bench.InsertMovie}, testIDs())
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
	assert.Equal(t, []string{"setup insert_movie", "cleanup insert_movie"}, lc.events)
}

func TestSession_CleanupErrorReported(t *testing.T) {
	lc := &fakeLifecycle{cleanupErr: errors.New("locked")}
	s, _ := newTestSession(&fakeExecutor{}, lc)

	results, err := s.Run(context.Background(), []string{bench.InsertUser}, testIDs())
	assert.ErrorContains(t, err, "cleanup: locked")
	assert.Empty(t, results)
}
