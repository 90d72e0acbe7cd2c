package util

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

const GB = 1024 * 1024 * 1024

type DiskInfo struct {
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	FreeGB  float64 `json:"free_gb"`
}

type MemoryInfo struct {
	TotalGB     float64 `json:"total_gb"`
	AvailableGB float64 `json:"available_gb"`
	UsedPercent float64 `json:"used_percent"`
}

type CPUInfo struct {
	Cores   int     `json:"cores"`
	Percent float64 `json:"percent"`
}

type SystemInfo struct {
	Disk   DiskInfo   `json:"disk"`
	Memory MemoryInfo `json:"memory"`
	CPU    CPUInfo    `json:"cpu"`
}

// GetSystemInfo samples disk usage for path, memory and CPU load.
// Partial results are returned alongside any errors.
func GetSystemInfo(ctx context.Context, path string) (SystemInfo, error) {
	var info SystemInfo
	var errs []error

	if d, err := disk.UsageWithContext(ctx, path); err == nil {
		info.Disk = DiskInfo{
			TotalGB: float64(d.Total) / GB,
			UsedGB:  float64(d.Used) / GB,
			FreeGB:  float64(d.Free) / GB,
		}
	} else {
		errs = append(errs, err)
	}

	if m, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.Memory = MemoryInfo{
			TotalGB:     float64(m.Total) / GB,
			AvailableGB: float64(m.Available) / GB,
			UsedPercent: m.UsedPercent,
		}
	} else {
		errs = append(errs, err)
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPU.Cores = n
	} else {
		errs = append(errs, err)
	}
	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		info.CPU.Percent = p[0]
	} else if err != nil {
		errs = append(errs, err)
	}

	return info, errors.Join(errs...)
}
