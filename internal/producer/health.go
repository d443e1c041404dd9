// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package producer

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/tomtom215/pulseboard/internal/config"
	"github.com/tomtom215/pulseboard/internal/logging"
	"github.com/tomtom215/pulseboard/internal/models"
)

// HealthSampler reads host metrics.
type HealthSampler interface {
	Sample(ctx context.Context) (models.SystemHealth, error)
}

// HostSampler samples the local host with gopsutil.
type HostSampler struct {
	DiskPath string
}

// NewHostSampler returns a sampler reporting disk usage for diskPath
// (the filesystem root when empty).
func NewHostSampler(diskPath string) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSampler{DiskPath: diskPath}
}

// Sample reads CPU, memory and disk usage. Load average, uptime and process
// figures are best effort since not every platform reports them.
func (s *HostSampler) Sample(ctx context.Context) (models.SystemHealth, error) {
	h := models.SystemHealth{SampledAt: time.Now().UTC()}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return models.SystemHealth{}, fmt.Errorf("sample cpu: %w", err)
	}
	if len(percents) > 0 {
		h.CPU.UsagePercent = round2(percents[0])
	}
	h.CPU.Count = runtime.NumCPU()
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		h.CPU.Model = infos[0].ModelName
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.SystemHealth{}, fmt.Errorf("sample memory: %w", err)
	}
	h.Memory = models.MemoryMetrics{
		TotalBytes:  vm.Total,
		UsedBytes:   vm.Used,
		UsedPercent: round2(vm.UsedPercent),
	}

	du, err := disk.UsageWithContext(ctx, s.DiskPath)
	if err != nil {
		return models.SystemHealth{}, fmt.Errorf("sample disk %s: %w", s.DiskPath, err)
	}
	h.Disk = models.DiskMetrics{
		Path:        s.DiskPath,
		TotalBytes:  du.Total,
		UsedBytes:   du.Used,
		UsedPercent: round2(du.UsedPercent),
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		h.Load = []float64{round2(avg.Load1), round2(avg.Load5), round2(avg.Load15)}
	} else {
		logging.Trace().Err(err).Msg("Load average unavailable")
	}
	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		h.Uptime = uptime
	}

	h.Process.PID = int32(os.Getpid()) //nolint:gosec // pids fit in int32
	h.Process.Goroutines = runtime.NumGoroutine()
	if proc, err := process.NewProcessWithContext(ctx, h.Process.PID); err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
			h.Process.RSSBytes = info.RSS
		}
	}

	return h, nil
}

// EvaluateHealth fills the per-component and overall status of h from the
// warning/critical thresholds.
func EvaluateHealth(h *models.SystemHealth, t config.ThresholdConfig) {
	h.Components = models.HealthComponents{
		CPU:     classify(h.CPU.UsagePercent, t.CPUWarning, t.CPUCritical),
		Memory:  classify(h.Memory.UsedPercent, t.MemoryWarning, t.MemoryCritical),
		Disk:    classify(h.Disk.UsedPercent, t.DiskWarning, t.DiskCritical),
		Process: models.HealthHealthy,
	}
	overall := models.HealthHealthy
	for _, status := range []string{h.Components.CPU, h.Components.Memory, h.Components.Disk, h.Components.Process} {
		overall = models.WorseOf(overall, status)
	}
	h.Overall = overall
}

func classify(value, warning, critical float64) string {
	switch {
	case critical > 0 && value >= critical:
		return models.HealthCritical
	case warning > 0 && value >= warning:
		return models.HealthWarning
	default:
		return models.HealthHealthy
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
