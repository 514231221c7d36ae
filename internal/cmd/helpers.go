package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/bench"
	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/internal/database"
	"github.com/emergent-company/moviebench/pkg/logger"
)

// session bundles what every database-backed command needs.
type session struct {
	cfg   *config.Config
	log   *slog.Logger
	db    *bun.DB
	close func() error
}

// openSession loads configuration and connects with a pool sized for
// concurrency workers. A failed ping is returned as an error.
func openSession(ctx context.Context, concurrency int) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return connect(ctx, cfg, concurrency)
}

// connect opens a session over an already loaded configuration.
func connect(ctx context.Context, cfg *config.Config, concurrency int) (*session, error) {
	log := logger.NewLogger()

	db, closeFn, err := database.Open(ctx, cfg.Database, cfg.Database.PoolSize(concurrency), log)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, db: db, close: closeFn}, nil
}

func (s *session) Close() {
	if err := s.close(); err != nil {
		s.log.Warn("closing database", logger.Error(err))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireKnown(name string) error {
	if !bench.IsKnown(name) {
		return fmt.Errorf("unknown benchmark %q, expected one of %v", name, bench.Benchmarks)
	}
	return nil
}
