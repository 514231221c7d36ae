package bench

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/moviebench/domain/catalog"
	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
)

func newContext(method, target, body string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestParseArg(t *testing.T) {
	t.Run("id benchmarks read the id param", func(t *testing.T) {
		for _, name := range []string{GetUser, GetMovie, GetPerson, UpdateMovie} {
			arg, err := parseArg(newContext(http.MethodGet, "/"+name+"?id=abc", ""), name)
			require.NoError(t, err)
			assert.Equal(t, "abc", arg)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := parseArg(newContext(http.MethodGet, "/get_user", ""), GetUser)
		assert.True(t, errors.Is(err, apperror.ErrBadRequest))
	})

	t.Run("prefix defaults to the marker", func(t *testing.T) {
		for _, name := range []string{InsertUser, InsertMoviePlus} {
			arg, err := parseArg(newContext(http.MethodPost, "/"+name, ""), name)
			require.NoError(t, err)
			assert.Equal(t, catalog.InsertPrefix, arg)
		}
	})

	t.Run("explicit prefix", func(t *testing.T) {
		arg, err := parseArg(newContext(http.MethodPost, "/insert_user?prefix=insert_test__w1_", ""), InsertUser)
		require.NoError(t, err)
		assert.Equal(t, "insert_test__w1_", arg)
	})

	t.Run("movie seed body", func(t *testing.T) {
		body := `{"people":["a","b","c","d"]}`
		arg, err := parseArg(newContext(http.MethodPost, "/insert_movie", body), InsertMovie)
		require.NoError(t, err)
		assert.Equal(t, MovieSeed{Prefix: catalog.InsertPrefix, People: []string{"a", "b", "c", "d"}}, arg)
	})

	t.Run("malformed movie seed body", func(t *testing.T) {
		_, err := parseArg(newContext(http.MethodPost, "/insert_movie", `{"people":`), InsertMovie)
		assert.True(t, errors.Is(err, apperror.ErrBadRequest))
	})
}

func TestIntParam(t *testing.T) {
	got, err := intParam(newContext(http.MethodGet, "/ids", ""), "n", 250)
	require.NoError(t, err)
	assert.Equal(t, 250, got)

	got, err = intParam(newContext(http.MethodGet, "/ids?n=12", ""), "n", 250)
	require.NoError(t, err)
	assert.Equal(t, 12, got)

	for _, raw := range []string{"0", "-3", "ten"} {
		_, err := intParam(newContext(http.MethodGet, "/ids?n="+raw, ""), "n", 250)
		assert.True(t, errors.Is(err, apperror.ErrBadRequest), raw)
	}
}

func newTestHandler() *Handler {
	log := logger.Discard()
	return NewHandler(nil, NewService(log), NewSampler(log), NewLifecycle(log), &config.Config{
		Bench: config.BenchConfig{NumberOfIDs: 250, Concurrency: 4},
	})
}

func TestHandler_ResetUnknownBenchmark(t *testing.T) {
	h := newTestHandler()
	c := newContext(http.MethodPost, "/setup/drop_tables", "")
	c.SetParamNames("name")
	c.SetParamValues("drop_tables")

	err := h.Setup(c)
	assert.True(t, errors.Is(err, apperror.ErrUnknownBenchmark))

	err = h.Cleanup(c)
	assert.True(t, errors.Is(err, apperror.ErrUnknownBenchmark))
}

func TestHandler_RunRejectsMissingID(t *testing.T) {
	h := newTestHandler()
	err := h.Run(GetMovie)(newContext(http.MethodGet, "/get_movie", ""))
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}

func TestHandler_IDsRejectsBadParams(t *testing.T) {
	h := newTestHandler()
	err := h.IDs(newContext(http.MethodGet, "/ids?concurrency=0", ""))
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, newTestHandler())

	var got []string
	for _, r := range e.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	sort.Strings(got)

	assert.Equal(t, []string{
		"GET /get_movie",
		"GET /get_person",
		"GET /get_user",
		"GET /ids",
		"POST /cleanup/:name",
		"POST /insert_movie",
		"POST /insert_movie_plus",
		"POST /insert_user",
		"POST /setup/:name",
		"POST /update_movie",
	}, got)
}
