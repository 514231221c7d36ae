package runner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/emergent-company/moviebench/internal/version"
)

// Report is the envelope of a run: where and how it ran plus one result per
// benchmark.
type Report struct {
	BenchVersion string     `json:"bench_version"`
	StartedAt    time.Time  `json:"started_at"`
	Driver       string     `json:"driver"`
	Concurrency  int        `json:"concurrency"`
	NumberOfIDs  int        `json:"number_of_ids"`
	GoVersion    string     `json:"go_version"`
	GitCommit    string     `json:"git_commit"`
	Host         HostInfo   `json:"host"`
	Pool         *PoolStats `json:"pool,omitempty"`
	Results      []Result   `json:"-"`
}

// NewReport starts a report stamped with the current host.
func NewReport(ctx context.Context, driver string, numberOfIDs int, opts Options) *Report {
	return newReport(ctx, newHostProbe(), driver, numberOfIDs, opts)
}

func newReport(ctx context.Context, probe *hostProbe, driver string, numberOfIDs int, opts Options) *Report {
	return &Report{
		BenchVersion: version.Version,
		StartedAt:    time.Now().UTC(),
		Driver:       driver,
		Concurrency:  opts.Concurrency,
		NumberOfIDs:  numberOfIDs,
		GoVersion:    runtime.Version(),
		GitCommit:    version.Commit(),
		Host:         probe.collect(ctx),
	}
}

// SetPool records the pool statistics of db.
func (r *Report) SetPool(db *sql.DB) {
	s := poolStats(db.Stats())
	r.Pool = &s
}

type resultRecord struct {
	Benchmark  string         `json:"benchmark"`
	Total      int            `json:"total"`
	Successes  int            `json:"successes"`
	Failures   int            `json:"failures"`
	MinMs      float64        `json:"min_ms"`
	AvgMs      float64        `json:"avg_ms"`
	P50Ms      float64        `json:"p50_ms"`
	P95Ms      float64        `json:"p95_ms"`
	P99Ms      float64        `json:"p99_ms"`
	MaxMs      float64        `json:"max_ms"`
	WallMs     float64        `json:"wall_ms"`
	Throughput float64        `json:"requests_per_second"`
	Errors     map[string]int `json:"errors,omitempty"`
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (r *Report) records() []resultRecord {
	out := make([]resultRecord, len(r.Results))
	for i, res := range r.Results {
		s := res.Summary
		out[i] = resultRecord{
			Benchmark:  res.Benchmark,
			Total:      s.Total,
			Successes:  s.Successes,
			Failures:   s.Failures,
			MinMs:      ms(s.Min),
			AvgMs:      ms(s.Avg),
			P50Ms:      ms(s.P50),
			P95Ms:      ms(s.P95),
			P99Ms:      ms(s.P99),
			MaxMs:      ms(s.Max),
			WallMs:     ms(res.Wall),
			Throughput: res.Throughput,
			Errors:     s.Errors,
		}
	}
	return out
}

// MarshalJSON renders latencies in milliseconds.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		*plain
		Results []resultRecord `json:"results"`
	}{(*plain)(r), r.records()})
}

// Print writes the report as a header block and a results table.
func (r *Report) Print(w io.Writer) error {
	fmt.Fprintf(w, "moviebench %s  driver=%s  concurrency=%d  ids=%d\n",
		r.BenchVersion, r.Driver, r.Concurrency, r.NumberOfIDs)
	fmt.Fprintf(w, "host=%s  %s/%s  cpu=%q x%d  go=%s  commit=%s\n",
		r.Host.Hostname, r.Host.OS, r.Host.Arch, r.Host.CPUModel, r.Host.CPUCores, r.GoVersion, r.GitCommit)
	if r.Pool != nil {
		fmt.Fprintf(w, "pool max_open=%d open=%d waits=%d wait=%.1fms\n",
			r.Pool.MaxOpen, r.Pool.Open, r.Pool.WaitCount, r.Pool.WaitMs)
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("Benchmark", "Total", "Failed", "Min ms", "Avg ms", "P50 ms", "P95 ms", "P99 ms", "Max ms", "Req/s")
	for _, rec := range r.records() {
		if err := table.Append(
			rec.Benchmark,
			fmt.Sprint(rec.Total),
			fmt.Sprint(rec.Failures),
			fmt.Sprintf("%.2f", rec.MinMs),
			fmt.Sprintf("%.2f", rec.AvgMs),
			fmt.Sprintf("%.2f", rec.P50Ms),
			fmt.Sprintf("%.2f", rec.P95Ms),
			fmt.Sprintf("%.2f", rec.P99Ms),
			fmt.Sprintf("%.2f", rec.MaxMs),
			fmt.Sprintf("%.1f", rec.Throughput),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, res := range r.Results {
		if len(res.Summary.Errors) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s errors: %s\n", res.Benchmark, formatErrors(res.Summary.Errors))
	}
	return nil
}

func formatErrors(errs map[string]int) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, errs[k])
	}
	return strings.Join(parts, " ")
}

// WriteJSON writes the report to path as indented JSON.
func (r *Report) WriteJSON(path string) error {
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(body, '\n'), 0o644)
}

// AppendLog appends the report as one JSON line to logFile, creating the
// file and its directory when missing.
func (r *Report) AppendLog(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}
