package services

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type HostStats struct {
	CapturedAt        time.Time `json:"captured_at"`
	GoVersion         string    `json:"go_version"`
	Goroutines        int       `json:"goroutines"`
	HeapAllocBytes    uint64    `json:"heap_alloc_bytes"`
	ProcessRSSBytes   uint64    `json:"process_rss_bytes"`
	ProcessCPULoad    float64   `json:"process_cpu_load"`
	SystemCPULoad     float64   `json:"system_cpu_load"`
	SystemMemoryTotal uint64    `json:"system_memory_total_bytes"`
	SystemMemoryUsed  uint64    `json:"system_memory_used_bytes"`
	DiskTotalBytes    uint64    `json:"disk_total_bytes"`
	DiskUsedBytes     uint64    `json:"disk_used_bytes"`
	WorkingDirectory  string    `json:"working_directory"`
}

// CaptureHostStats samples the runtime and host. Readings that fail leave
// their fields zero.
func CaptureHostStats(ctx context.Context, diskPath string) HostStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	wd, _ := os.Getwd()

	stats := HostStats{
		CapturedAt:       time.Now().UTC(),
		GoVersion:        runtime.Version(),
		Goroutines:       runtime.NumGoroutine(),
		HeapAllocBytes:   ms.HeapAlloc,
		WorkingDirectory: wd,
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfoWithContext(ctx); err == nil && rss != nil {
			stats.ProcessRSSBytes = rss.RSS
		}
		if perc, err := proc.CPUPercentWithContext(ctx); err == nil {
			stats.ProcessCPULoad = perc / 100.0
		}
	}
	if memStat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.SystemMemoryTotal = memStat.Total
		stats.SystemMemoryUsed = memStat.Total - memStat.Available
	}
	if sysCPU, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(sysCPU) > 0 {
		stats.SystemCPULoad = sysCPU[0] / 100.0
	}
	if diskPath == "" {
		diskPath = "/"
	}
	diskStat, err := disk.UsageWithContext(ctx, diskPath)
	if err != nil {
		diskStat, err = disk.UsageWithContext(ctx, "/")
	}
	if err == nil && diskStat != nil {
		stats.DiskTotalBytes = diskStat.Total
		stats.DiskUsedBytes = diskStat.Used
	}
	return stats
}
