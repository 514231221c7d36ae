// Package runner drives concurrent load against the benchmark operations
// and aggregates latency and throughput into a run report.
package runner

import (
	"time"

	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/pkg/apperror"
)

// Options shapes one benchmark run.
type Options struct {
	// Concurrency is the number of workers, each with its own slot.
	Concurrency int
	// Duration bounds the measured phase. Zero means unbounded, in which
	// case Iterations must be set.
	Duration time.Duration
	// Iterations is the number of invocations per worker. Zero means run
	// until Duration elapses.
	Iterations int
	// Warmup runs the workers for this long before measuring.
	Warmup time.Duration
	// Rate caps invocations per second across all workers. Zero is unlimited.
	Rate float64
	// Timeout bounds a single invocation.
	Timeout time.Duration
}

// OptionsFromConfig takes the run defaults from the environment configuration.
func OptionsFromConfig(cfg config.BenchConfig) Options {
	return Options{
		Concurrency: cfg.Concurrency,
		Duration:    cfg.Duration,
		Iterations:  cfg.Iterations,
		Warmup:      cfg.Warmup,
		Rate:        cfg.Rate,
		Timeout:     cfg.Timeout,
	}
}

func (o Options) Validate() error {
	switch {
	case o.Concurrency < 1:
		return apperror.NewBadRequest("concurrency must be at least 1")
	case o.Duration < 0 || o.Warmup < 0 || o.Timeout < 0:
		return apperror.NewBadRequest("durations must not be negative")
	case o.Iterations < 0:
		return apperror.NewBadRequest("iterations must not be negative")
	case o.Duration == 0 && o.Iterations == 0:
		return apperror.NewBadRequest("either duration or iterations must be set")
	case o.Rate < 0:
		return apperror.NewBadRequest("rate must not be negative")
	}
	return nil
}
