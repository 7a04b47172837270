package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

func node(id string, online bool, hasDocker bool, cpu, mem float64) types.Node {
	lastSeen := int64(0)
	if online {
		lastSeen = 9999999999
	}
	return types.Node{
		ID:          id,
		ClusterName: types.DefaultClusterName,
		HasDocker:   hasDocker,
		LastSeen:    lastSeen,
		Metrics:     &types.SystemMetrics{CPUUsagePercent: cpu, MemoryPercent: mem},
	}
}

func TestPick_PrefersLowestLoad(t *testing.T) {
	svc := types.WolfRunService{Runtime: types.RuntimeDocker, ClusterName: types.DefaultClusterName}
	nodes := []types.Node{
		node("a", true, true, 80, 80),
		node("b", true, true, 10, 10),
	}
	assert.Equal(t, "b", Pick(svc, nodes))
}

func TestPick_ExcludesProxmoxAndWrongCluster(t *testing.T) {
	svc := types.WolfRunService{Runtime: types.RuntimeDocker, ClusterName: types.DefaultClusterName}
	proxmox := node("p", true, true, 1, 1)
	proxmox.NodeType = types.NodeTypeProxmox
	wrongCluster := node("w", true, true, 1, 1)
	wrongCluster.ClusterName = "other"
	good := node("g", true, true, 50, 50)

	assert.Equal(t, "g", Pick(svc, []types.Node{proxmox, wrongCluster, good}))
}

func TestPick_RequiresRuntimeCapability(t *testing.T) {
	svc := types.WolfRunService{Runtime: types.RuntimeLxc, ClusterName: types.DefaultClusterName}
	dockerOnly := node("d", true, true, 1, 1)
	lxcNode := node("l", true, true, 1, 1)
	lxcNode.HasLxc = true

	assert.Equal(t, "l", Pick(svc, []types.Node{dockerOnly, lxcNode}))
}

func TestPick_PreferNodeHonoredWhenEligible(t *testing.T) {
	svc := types.WolfRunService{
		Runtime:     types.RuntimeDocker,
		ClusterName: types.DefaultClusterName,
		Placement:   types.Placement{Kind: types.PlacementPreferNode, NodeID: "b"},
	}
	nodes := []types.Node{
		node("a", true, true, 1, 1),
		node("b", true, true, 90, 90),
	}
	assert.Equal(t, "b", Pick(svc, nodes))
}

func TestPick_RequireNodeExcludesOthers(t *testing.T) {
	svc := types.WolfRunService{
		Runtime:     types.RuntimeDocker,
		ClusterName: types.DefaultClusterName,
		Placement:   types.Placement{Kind: types.PlacementRequireNode, NodeID: "b"},
	}
	nodes := []types.Node{
		node("a", true, true, 1, 1),
		node("b", true, true, 90, 90),
	}
	assert.Equal(t, "b", Pick(svc, nodes))
}

func TestPick_SpreadPenaltyAvoidsCrowdedNode(t *testing.T) {
	svc := types.WolfRunService{
		Runtime:     types.RuntimeDocker,
		ClusterName: types.DefaultClusterName,
		Instances: []types.ServiceInstance{
			{NodeID: "a", Status: types.InstanceRunning},
		},
	}
	nodes := []types.Node{
		node("a", true, true, 5, 5),
		node("b", true, true, 50, 50),
	}
	assert.Equal(t, "b", Pick(svc, nodes))
}

func TestPick_NoEligibleNodesReturnsEmpty(t *testing.T) {
	svc := types.WolfRunService{Runtime: types.RuntimeDocker, ClusterName: types.DefaultClusterName}
	offline := node("a", false, true, 1, 1)
	assert.Equal(t, "", Pick(svc, []types.Node{offline}))
}
