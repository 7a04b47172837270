// Package scheduler implements the pure placement function (C7): given a
// service and a snapshot of the cluster, decide which node should host the
// next instance.
package scheduler

import (
	"time"

	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// Pick returns the node_id that should host the next instance of svc, or ""
// if no eligible node exists. nodes is the cluster registry's current
// snapshot; on equal scores the node that comes first in nodes wins.
// Registry.ListNodes returns nodes in no defined order, so ties between
// registry nodes are not broken by the order the nodes were added.
func Pick(svc types.WolfRunService, nodes []types.Node) string {
	eligible := filterEligible(svc, nodes)
	if len(eligible) == 0 {
		return ""
	}

	if svc.Placement.Kind == types.PlacementPreferNode {
		for _, n := range eligible {
			if n.ID == svc.Placement.NodeID {
				return n.ID
			}
		}
	}

	counts := instanceCountsByNode(svc)

	best := ""
	bestScore := 0.0
	haveBest := false
	for _, n := range eligible {
		score := loadScore(n) + 100*float64(counts[n.ID])
		if !haveBest || score < bestScore {
			best = n.ID
			bestScore = score
			haveBest = true
		}
	}
	return best
}

// filterEligible narrows nodes to those that can legally host svc: online,
// matching cluster_name, not a reporting-only proxmox host, advertising the
// required runtime, and satisfying a RequireNode placement constraint.
func filterEligible(svc types.WolfRunService, nodes []types.Node) []types.Node {
	now := time.Now()
	var out []types.Node
	for _, n := range nodes {
		if !n.Online(now) {
			continue
		}
		if n.NodeType == types.NodeTypeProxmox {
			continue
		}
		if svc.ClusterName != "" && n.ClusterName != svc.ClusterName {
			continue
		}
		switch svc.Runtime {
		case types.RuntimeDocker:
			if !n.HasDocker {
				continue
			}
		case types.RuntimeLxc:
			if !n.HasLxc {
				continue
			}
		}
		if svc.Placement.Kind == types.PlacementRequireNode && n.ID != svc.Placement.NodeID {
			continue
		}
		out = append(out, n)
	}
	return out
}

// instanceCountsByNode counts svc's currently running or pending instances
// per node_id, used as the spread penalty.
func instanceCountsByNode(svc types.WolfRunService) map[string]int {
	counts := make(map[string]int)
	for _, inst := range svc.Instances {
		if inst.Status == types.InstanceRunning || inst.Status == types.InstancePending {
			counts[inst.NodeID]++
		}
	}
	return counts
}

// loadScore is 0.4*cpu% + 0.4*mem% + 0.2*max(disk%). A node with no metrics
// yet (just joined, hasn't been polled) scores 0 so it is preferred, matching
// the bias toward using newly-available capacity.
func loadScore(n types.Node) float64 {
	if n.Metrics == nil {
		return 0
	}
	maxDisk := 0.0
	for _, d := range n.Metrics.Disks {
		if d.UsagePercent > maxDisk {
			maxDisk = d.UsagePercent
		}
	}
	return 0.4*n.Metrics.CPUUsagePercent + 0.4*n.Metrics.MemoryPercent + 0.2*maxDisk
}
