package runner

import (
	"context"
	"database/sql"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the machine a run executed on.
type HostInfo struct {
	Hostname    string  `json:"hostname"`
	OS          string  `json:"os"`
	Platform    string  `json:"platform,omitempty"`
	Arch        string  `json:"arch"`
	CPUModel    string  `json:"cpu_model,omitempty"`
	CPUCores    int     `json:"cpu_cores"`
	MemoryTotal uint64  `json:"memory_total_bytes,omitempty"`
	MemoryUsed  float64 `json:"memory_used_percent,omitempty"`
	Load1       float64 `json:"load1,omitempty"`
}

// hostProbe collects HostInfo; the functions are fields so tests can stub them.
type hostProbe struct {
	getHostInfo func(context.Context) (*host.InfoStat, error)
	getCPUInfo  func(context.Context) ([]cpu.InfoStat, error)
	getMemStats func(context.Context) (*mem.VirtualMemoryStat, error)
	getLoadAvg  func(context.Context) (*load.AvgStat, error)
	getCPUCores func() int
	hostname    func() (string, error)
}

func newHostProbe() *hostProbe {
	return &hostProbe{
		getHostInfo: host.InfoWithContext,
		getCPUInfo:  cpu.InfoWithContext,
		getMemStats: mem.VirtualMemoryWithContext,
		getLoadAvg:  load.AvgWithContext,
		getCPUCores: runtime.NumCPU,
		hostname:    os.Hostname,
	}
}

// collect fills in whatever the host exposes. Probe failures leave the
// corresponding fields empty.
func (p *hostProbe) collect(ctx context.Context) HostInfo {
	info := HostInfo{
		Hostname: "unknown",
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		CPUCores: p.getCPUCores(),
	}
	if h, err := p.hostname(); err == nil {
		info.Hostname = h
	}
	if h, err := p.getHostInfo(ctx); err == nil && h != nil {
		info.Platform = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
	}
	if cpus, err := p.getCPUInfo(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if v, err := p.getMemStats(ctx); err == nil && v != nil {
		info.MemoryTotal = v.Total
		info.MemoryUsed = v.UsedPercent
	}
	if l, err := p.getLoadAvg(ctx); err == nil && l != nil {
		info.Load1 = l.Load1
	}
	return info
}

// PoolStats is a snapshot of the connection pool after a run.
type PoolStats struct {
	MaxOpen     int     `json:"max_open"`
	Open        int     `json:"open"`
	InUse       int     `json:"in_use"`
	Idle        int     `json:"idle"`
	WaitCount   int64   `json:"wait_count"`
	WaitMs      float64 `json:"wait_ms"`
	Utilization float64 `json:"utilization_percent"`
}

func poolStats(s sql.DBStats) PoolStats {
	out := PoolStats{
		MaxOpen:   s.MaxOpenConnections,
		Open:      s.OpenConnections,
		InUse:     s.InUse,
		Idle:      s.Idle,
		WaitCount: s.WaitCount,
		WaitMs:    float64(s.WaitDuration.Microseconds()) / 1000,
	}
	if s.MaxOpenConnections > 0 {
		out.Utilization = float64(s.InUse) / float64(s.MaxOpenConnections) * 100.0
	}
	return out
}
