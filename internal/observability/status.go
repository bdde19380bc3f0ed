package observability

import (
	"os"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/tphakala/pcmring/internal/logger"
	"github.com/tphakala/pcmring/internal/observability/metrics"
)

// Status is the body of GET /status
type Status struct {
	Time    time.Time                `json:"time"`
	Uptime  string                   `json:"uptime"`
	Host    HostStatus               `json:"host"`
	Buffers []metrics.BufferSnapshot `json:"buffers"`
}

// HostStatus describes the machine and this process
type HostStatus struct {
	CPU          string  `json:"cpu"`
	LogicalCores int     `json:"logical_cores"`
	Goroutines   int     `json:"goroutines"`
	RSSBytes     uint64  `json:"rss_bytes,omitempty"`
	CPUPercent   float64 `json:"cpu_percent,omitempty"`
}

// hostStatus collects host details. Process figures are best effort and
// left at zero when the platform does not provide them.
func hostStatus() HostStatus {
	hs := HostStatus{
		CPU:          cpuid.CPU.BrandName,
		LogicalCores: cpuid.CPU.LogicalCores,
		Goroutines:   runtime.NumGoroutine(),
	}
	if hs.LogicalCores == 0 {
		hs.LogicalCores = runtime.NumCPU()
	}

	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		getLogger().Debug("process stats unavailable", logger.Error(err))
		return hs
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		hs.RSSBytes = mem.RSS
	}
	if pct, err := proc.CPUPercent(); err == nil {
		hs.CPUPercent = pct
	}
	return hs
}
