package services

import (
	"context"
	"errors"
	"math"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"nabz/internal/models"
)

const GB = 1024 * 1024 * 1024

// SystemProbe gathers OS-level stats via gopsutil and Go runtime stats for
// the agent's own process. Partial failures degrade the affected fields to
// zero instead of failing the whole probe; only an unreadable CPU or memory
// reading counts as a probe error.
type SystemProbe struct {
	pid int32
}

// NewSystemProbe creates a probe bound to the current process.
func NewSystemProbe() *SystemProbe {
	return &SystemProbe{pid: int32(os.Getpid())}
}

// SystemStats implements SystemProber.
func (sp *SystemProbe) SystemStats(ctx context.Context) (models.SystemStats, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return models.SystemStats{}, err
	}
	if len(percentages) == 0 {
		return models.SystemStats{}, errors.New("no cpu usage reading")
	}

	virtualMemory, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.SystemStats{}, err
	}

	stats := models.SystemStats{
		CPUUsagePercent: percentages[0],
		GoroutineCount:  runtime.NumGoroutine(),
		Memory: models.MemoryBreakdown{
			TotalGB:      float64(virtualMemory.Total) / GB,
			UsedGB:       float64(virtualMemory.Used) / GB,
			AvailableGB:  float64(virtualMemory.Available) / GB,
			UsagePercent: virtualMemory.UsedPercent,
		},
	}

	if pids, err := process.PidsWithContext(ctx); err == nil {
		stats.ProcessCount = len(pids)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		stats.QueueLength = int(math.Round(avg.Load1))
	}

	if proc, err := process.NewProcessWithContext(ctx, sp.pid); err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil && info != nil {
			stats.Memory.ProcessGB = float64(info.RSS) / GB
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.Memory.HeapAllocGB = float64(ms.HeapAlloc) / GB
	stats.GC = models.GCCounters{
		NumGC:        ms.NumGC,
		PauseTotalMS: float64(ms.PauseTotalNs) / 1e6,
	}

	return stats, nil
}
