// Package testutil provides the database-backed test harness: an isolated
// database per suite with the catalog schema migrated and fixtures seeded.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/internal/database"
	"github.com/emergent-company/moviebench/internal/migrate"
	"github.com/emergent-company/moviebench/pkg/logger"
)

// DSNEnv names the variable holding an admin DSN for integration tests.
// Suites skip when it is unset.
const DSNEnv = "MOVIEBENCH_TEST_DSN"

// TestDB is a throwaway database with the catalog schema applied.
type TestDB struct {
	Config  config.DatabaseConfig
	DB      *bun.DB
	Name    string
	cleanup func()
}

// Close drops the database.
func (t *TestDB) Close() {
	if t.cleanup != nil {
		t.cleanup()
	}
}

// ParseDSN turns a postgres:// URL into connection settings. The driver comes
// from DB_DRIVER and defaults to pgx.
func ParseDSN(dsn string) (config.DatabaseConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("parse dsn: %w", err)
	}

	cfg := config.DatabaseConfig{
		Host:        u.Hostname(),
		Port:        5432,
		User:        u.User.Username(),
		Database:    strings.TrimPrefix(u.Path, "/"),
		SSLMode:     u.Query().Get("sslmode"),
		Driver:      os.Getenv("DB_DRIVER"),
		MaxIdleTime: time.Minute,
		PingTimeout: 5 * time.Second,
	}
	if pw, ok := u.User.Password(); ok {
		cfg.Password = pw
	}
	if p := u.Port(); p != "" {
		if cfg.Port, err = strconv.Atoi(p); err != nil {
			return config.DatabaseConfig{}, fmt.Errorf("parse dsn port: %w", err)
		}
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.Driver == "" {
		cfg.Driver = config.DriverPgx
	}
	return cfg, nil
}

// SetupTestDB creates a database named after suffix, applies the migrations
// and returns a handle sized for poolSize connections.
func SetupTestDB(ctx context.Context, dsn, suffix string, poolSize int) (*TestDB, error) {
	adminCfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	log := logger.Discard()

	admin, closeAdmin, err := database.Open(ctx, adminCfg, 1, log)
	if err != nil {
		return nil, fmt.Errorf("connect admin db: %w", err)
	}
	defer closeAdmin()

	name := fmt.Sprintf("moviebench_test_%s_%d", suffix, time.Now().UnixNano())
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE ?", bun.Ident(name)); err != nil {
		return nil, fmt.Errorf("create test db: %w", err)
	}
	drop := func() {
		a, closeA, err := database.Open(context.Background(), adminCfg, 1, log)
		if err != nil {
			return
		}
		defer closeA()
		_, _ = a.ExecContext(context.Background(), "DROP DATABASE IF EXISTS ? WITH (FORCE)", bun.Ident(name))
	}

	testCfg := adminCfg
	testCfg.Database = name
	db, closeDB, err := database.Open(ctx, testCfg, poolSize, log)
	if err != nil {
		drop()
		return nil, fmt.Errorf("connect test db: %w", err)
	}

	m, err := migrate.NewMigrator(db.DB, zap.NewNop())
	if err == nil {
		err = m.Up(ctx)
	}
	if err != nil {
		_ = closeDB()
		drop()
		return nil, err
	}

	return &TestDB{
		Config: testCfg,
		DB:     db,
		Name:   name,
		cleanup: func() {
			_ = closeDB()
			drop()
		},
	}, nil
}
