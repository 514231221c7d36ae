package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emergent-company/moviebench/domain/bench"
	"github.com/emergent-company/moviebench/pkg/apperror"
)

// Plan is a run described in a YAML file. Zero fields keep the defaults.
//
//	benchmarks: [get_movie, insert_user]
//	number_of_ids: 250
//	concurrency: 8
//	duration: 30s
//	warmup: 5s
//	rate: 500
type Plan struct {
	Benchmarks  []string      `yaml:"benchmarks"`
	NumberOfIDs int           `yaml:"number_of_ids"`
	Concurrency int           `yaml:"concurrency"`
	Duration    time.Duration `yaml:"duration"`
	Iterations  int           `yaml:"iterations"`
	Warmup      time.Duration `yaml:"warmup"`
	Rate        float64       `yaml:"rate"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (*Plan, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(body)
}

// ParsePlan decodes a plan. Unknown keys and unknown benchmark names are
// rejected.
func ParsePlan(body []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(body))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperror.NewBadRequest("invalid plan: " + err.Error())
	}
	for _, name := range p.Benchmarks {
		if !bench.IsKnown(name) {
			return nil, apperror.ErrUnknownBenchmark.WithMessage(fmt.Sprintf("unknown benchmark %q in plan", name))
		}
	}
	return &p, nil
}

// Apply overrides opts with the plan's non-zero settings.
func (p *Plan) Apply(opts Options) Options {
	if p.Concurrency > 0 {
		opts.Concurrency = p.Concurrency
	}
	if p.Duration > 0 {
		opts.Duration = p.Duration
	}
	if p.Iterations > 0 {
		opts.Iterations = p.Iterations
	}
	if p.Warmup > 0 {
		opts.Warmup = p.Warmup
	}
	if p.Rate > 0 {
		opts.Rate = p.Rate
	}
	if p.Timeout > 0 {
		opts.Timeout = p.Timeout
	}
	return opts
}
