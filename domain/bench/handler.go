package bench

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/catalog"
	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/internal/database"
	"github.com/emergent-company/moviebench/pkg/apperror"
)

// Handler exposes the benchmark operations over HTTP. Each request runs on
// a connection of its own.
type Handler struct {
	db        *bun.DB
	svc       *Service
	sampler   *Sampler
	lifecycle *Lifecycle
	defaults  config.BenchConfig
}

func NewHandler(db *bun.DB, svc *Service, sampler *Sampler, lifecycle *Lifecycle, cfg *config.Config) *Handler {
	return &Handler{
		db:        db,
		svc:       svc,
		sampler:   sampler,
		lifecycle: lifecycle,
		defaults:  cfg.Bench,
	}
}

// Run returns the handler for GET /<name> (read benchmarks) or
// POST /<name> (mutating benchmarks).
func (h *Handler) Run(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		arg, err := parseArg(c, name)
		if err != nil {
			return err
		}

		var result any
		err = database.WithConn(c.Request().Context(), h.db, func(conn bun.IDB) error {
			var err error
			result, err = h.svc.Execute(c.Request().Context(), conn, name, arg)
			return err
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

// parseArg reads the benchmark argument from the request: the id query
// parameter for id-based benchmarks, an optional prefix query parameter for
// insert_user and insert_movie_plus, and a JSON seed body for insert_movie.
func parseArg(c echo.Context, name string) (any, error) {
	switch name {
	case InsertMovie:
		var seed MovieSeed
		if err := c.Bind(&seed); err != nil {
			return nil, apperror.NewBadRequest("invalid movie seed body")
		}
		if seed.Prefix == "" {
			seed.Prefix = catalog.InsertPrefix
		}
		return seed, nil
	case InsertUser, InsertMoviePlus:
		prefix := c.QueryParam("prefix")
		if prefix == "" {
			prefix = catalog.InsertPrefix
		}
		return prefix, nil
	default:
		id := c.QueryParam("id")
		if id == "" {
			return nil, apperror.NewBadRequest("id query param is required")
		}
		return id, nil
	}
}

// Setup handles POST /setup/:name
func (h *Handler) Setup(c echo.Context) error {
	return h.reset(c, h.lifecycle.Setup)
}

// Cleanup handles POST /cleanup/:name
func (h *Handler) Cleanup(c echo.Context) error {
	return h.reset(c, h.lifecycle.Cleanup)
}

func (h *Handler) reset(c echo.Context, fn func(ctx context.Context, db bun.IDB, name string) error) error {
	name := c.Param("name")
	if !IsKnown(name) {
		return apperror.ErrUnknownBenchmark.WithMessage("unknown benchmark " + strconv.Quote(name))
	}
	ctx := c.Request().Context()
	err := database.WithConn(ctx, h.db, func(conn bun.IDB) error {
		return fn(ctx, conn, name)
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// IDs handles GET /ids?n=&concurrency=
func (h *Handler) IDs(c echo.Context) error {
	n, err := intParam(c, "n", h.defaults.NumberOfIDs)
	if err != nil {
		return err
	}
	concurrency, err := intParam(c, "concurrency", h.defaults.Concurrency)
	if err != nil {
		return err
	}

	ids, err := h.sampler.LoadIDs(c.Request().Context(), h.db, n, concurrency)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ids)
}

func intParam(c echo.Context, key string, def int) (int, error) {
	raw := c.QueryParam(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, apperror.NewBadRequest(key + " must be a positive integer")
	}
	return v, nil
}
