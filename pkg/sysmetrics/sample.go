// Package sysmetrics is C1: it produces an immutable SystemMetrics value on
// demand by sampling the host through gopsutil, the same library the wider
// ecosystem reaches for instead of hand-parsing /proc.
package sysmetrics

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/wolfstacksystems/wolfstack/pkg/metrics"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// Sample builds a SystemMetrics snapshot for the local host. Any individual
// collector failing (e.g. a disk unmounted mid-sample) just omits that
// section rather than failing the whole snapshot.
func Sample(ctx context.Context) types.SystemMetrics {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MetricsSampleDuration)

	hostname, _ := os.Hostname()
	snap := types.SystemMetrics{Hostname: hostname}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.UptimeSeconds = info.Uptime
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snap.CPUUsagePercent = percents[0]
	}
	if counts, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUCount = counts
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		snap.CPUModel = infos[0].ModelName
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryTotalBytes = vm.Total
		snap.MemoryUsedBytes = vm.Used
		snap.MemoryPercent = vm.UsedPercent
	}
	if sm, err := mem.SwapMemoryWithContext(ctx); err == nil {
		snap.SwapTotalBytes = sm.Total
		snap.SwapUsedBytes = sm.Used
	}

	snap.Disks = sampleDisks(ctx)
	snap.Network = sampleNetwork(ctx)

	if avg, err := load.AvgWithContext(ctx); err == nil {
		snap.LoadAverage = types.LoadAverage{One: avg.Load1, Five: avg.Load5, Fifteen: avg.Load15}
	}

	if pids, err := process.PidsWithContext(ctx); err == nil {
		snap.Processes = len(pids)
	}

	return snap
}

func sampleDisks(ctx context.Context) []types.DiskMetrics {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil
	}

	var out []types.DiskMetrics
	for _, p := range parts {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		out = append(out, types.DiskMetrics{
			Name:           p.Device,
			MountPoint:     p.Mountpoint,
			FilesystemType: p.Fstype,
			TotalBytes:     usage.Total,
			UsedBytes:      usage.Used,
			AvailableBytes: usage.Free,
			UsagePercent:   usage.UsedPercent,
		})
	}
	return out
}

func sampleNetwork(ctx context.Context) []types.NetworkMetrics {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil
	}

	out := make([]types.NetworkMetrics, 0, len(counters))
	for _, c := range counters {
		out = append(out, types.NetworkMetrics{
			Interface: c.Name,
			RxBytes:   c.BytesRecv,
			TxBytes:   c.BytesSent,
			RxPackets: c.PacketsRecv,
			TxPackets: c.PacketsSent,
		})
	}
	return out
}
