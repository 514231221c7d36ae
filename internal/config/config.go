package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all moviebench configuration
type Config struct {
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8089"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`

	Database DatabaseConfig
	Bench    BenchConfig
	Otel     OtelConfig

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Supported DB_DRIVER values.
const (
	DriverPgx      = "pgx"
	DriverPgdriver = "pgdriver"
	DriverPq       = "pq"
)

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"postgres_bench"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:"edgedbbenchmark"`
	Database     string        `env:"POSTGRES_DB" envDefault:"moviebench"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	Driver       string        `env:"DB_DRIVER" envDefault:"pgx"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"0"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"0"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	PingTimeout  time.Duration `env:"DB_PING_TIMEOUT" envDefault:"5s"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection URL. User and password are escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// Validate rejects driver names the connection provider cannot open.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverPgx, DriverPgdriver, DriverPq:
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s, %s or %s)", d.Driver, DriverPgx, DriverPgdriver, DriverPq)
	}
}

// PoolSize returns the connection pool ceiling for the given worker
// concurrency: DB_MAX_OPEN_CONNS when set, otherwise one connection per
// worker plus one for sampling and lifecycle calls.
func (d *DatabaseConfig) PoolSize(concurrency int) int {
	if d.MaxOpenConns > 0 {
		return d.MaxOpenConns
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return concurrency + 1
}

// BenchConfig holds the defaults for the load runner; CLI flags override them.
type BenchConfig struct {
	NumberOfIDs int           `env:"BENCH_NUMBER_OF_IDS" envDefault:"250"`
	Concurrency int           `env:"BENCH_CONCURRENCY" envDefault:"4"`
	Duration    time.Duration `env:"BENCH_DURATION" envDefault:"10s"`
	Iterations  int           `env:"BENCH_ITERATIONS" envDefault:"0"`
	Warmup      time.Duration `env:"BENCH_WARMUP" envDefault:"2s"`
	Rate        float64       `env:"BENCH_RATE" envDefault:"0"`
	Timeout     time.Duration `env:"BENCH_TIMEOUT" envDefault:"30s"`
	LogFile     string        `env:"BENCH_LOG_FILE" envDefault:""`
}

// Load parses the environment without logging. The CLI uses it before a
// logger is configured.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func NewConfig(log *slog.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.String("db_driver", cfg.Database.Driver),
	)

	return cfg, nil
}
