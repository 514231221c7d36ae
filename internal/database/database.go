// Package database is the connection provider: it opens a *bun.DB over one
// of the supported PostgreSQL drivers and hands out per-call connections and
// transactions.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/fx"

	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/pkg/apperror"
	"github.com/emergent-company/moviebench/pkg/logger"
)

var Module = fx.Module("database",
	fx.Provide(
		NewBunDB,
		fx.Annotate(
			func(db *bun.DB) bun.IDB { return db },
			fx.As(new(bun.IDB)),
		),
	),
)

// NewBunDB opens the database for the fx graph and closes it on stop.
func NewBunDB(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*bun.DB, error) {
	db, closeFn, err := Open(context.Background(), cfg.Database, cfg.Database.PoolSize(cfg.Bench.Concurrency), log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing database", logger.Scope("database"))
			return closeFn()
		},
	})
	return db, nil
}

// Open connects with the driver named in cfg.Driver, sizes the pool to
// poolSize connections and pings the server. The returned close function
// releases the *bun.DB and any driver-level pool behind it.
func Open(ctx context.Context, cfg config.DatabaseConfig, poolSize int, log *slog.Logger) (*bun.DB, func() error, error) {
	log = log.With(logger.Scope("database"))

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		sqldb   *sql.DB
		cleanup = func() {}
	)
	switch cfg.Driver {
	case config.DriverPgx:
		pool, err := newPgxPool(ctx, cfg, poolSize)
		if err != nil {
			return nil, nil, err
		}
		sqldb = stdlib.OpenDBFromPool(pool)
		cleanup = pool.Close
	case config.DriverPgdriver:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN())))
	case config.DriverPq:
		connector, err := pq.NewConnector(cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("parse pq dsn: %w", err)
		}
		sqldb = sql.OpenDB(connector)
	}

	sqldb.SetMaxOpenConns(poolSize)
	sqldb.SetMaxIdleConns(idleConns(cfg, poolSize))
	sqldb.SetConnMaxIdleTime(cfg.MaxIdleTime)

	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.QueryDebug {
		db.AddQueryHook(&queryLoggingHook{log: log.With(logger.Scope("bun"))})
	}

	closeFn := func() error {
		err := db.Close()
		cleanup()
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("ping database %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	log.Info("database connected",
		slog.String("driver", cfg.Driver),
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database),
		slog.Int("max_conns", poolSize),
	)

	return db, closeFn, nil
}

func newPgxPool(ctx context.Context, cfg config.DatabaseConfig, poolSize int) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	poolConfig.MaxConns = int32(poolSize)
	poolConfig.MaxConnIdleTime = cfg.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return pool, nil
}

func idleConns(cfg config.DatabaseConfig, poolSize int) int {
	if cfg.MaxIdleConns > 0 && cfg.MaxIdleConns < poolSize {
		return cfg.MaxIdleConns
	}
	return poolSize
}

// WithConn runs fn on a connection of its own taken from db's pool. The
// connection goes back to the pool when fn returns, whatever the outcome.
func WithConn(ctx context.Context, db *bun.DB, fn func(bun.IDB) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	defer conn.Close()
	return fn(&conn)
}

// InTx runs fn inside a transaction on db and commits when fn succeeds.
// When fn fails the transaction is rolled back before InTx returns.
func InTx(ctx context.Context, db bun.IDB, fn func(tx bun.IDB) error) error {
	tx, err := BeginSafeTx(ctx, db)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	defer tx.Rollback()

	if err := fn(&tx.Tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// queryLoggingHook implements bun.QueryHook for query logging
type queryLoggingHook struct {
	log *slog.Logger
}

func (h *queryLoggingHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLoggingHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)

	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.log.Error("query error",
			slog.String("query", event.Query),
			slog.Duration("duration", duration),
			logger.Error(event.Err),
		)
		return
	}

	if duration > time.Second {
		h.log.Warn("slow query",
			slog.String("query", event.Query),
			slog.Duration("duration", duration),
		)
		return
	}

	h.log.Debug("query",
		slog.String("query", event.Query),
		slog.Duration("duration", duration),
	)
}

// SafeTx wraps a bun.Tx so Rollback is a no-op after a successful Commit.
//
//	tx, err := BeginSafeTx(ctx, db)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//	// ... do work ...
//	return tx.Commit()
type SafeTx struct {
	bun.Tx
	committed bool
}

// BeginSafeTx starts a new transaction and returns a SafeTx wrapper.
func BeginSafeTx(ctx context.Context, db bun.IDB) (*SafeTx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SafeTx{Tx: tx}, nil
}

func (tx *SafeTx) Commit() error {
	if tx.committed {
		return nil
	}
	err := tx.Tx.Commit()
	if err == nil {
		tx.committed = true
	}
	return err
}

func (tx *SafeTx) Rollback() error {
	if tx.committed {
		return nil
	}
	return tx.Tx.Rollback()
}
