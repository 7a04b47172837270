// Package types defines the data model shared by the cluster registry,
// scheduler, reconciler, and load balancer.
package types

import "time"

// Node is a member of the peer-to-peer cluster, as seen by this process.
type Node struct {
	ID          string
	Hostname    string
	Address     string
	Port        int
	LastSeen    int64 // unix seconds
	Metrics     *SystemMetrics
	HasDocker   bool
	HasLxc      bool
	NodeType    NodeType
	ClusterName string
	IsSelf      bool
}

// NodeType distinguishes a WolfStack peer from a Proxmox host reporting in.
type NodeType string

const (
	NodeTypeWolfStack NodeType = "wolfstack"
	NodeTypeProxmox   NodeType = "proxmox"
)

// DefaultClusterName is assumed for any node that does not advertise one.
const DefaultClusterName = "WolfStack"

// NodeStalenessWindow is how long a remote node may go unheard before Online
// recomputes to false.
const NodeStalenessWindow = 30 * time.Second

// Online reports whether the node should be considered reachable right now.
// The self row is always online; remote rows are online iff they have been
// heard from within NodeStalenessWindow.
func (n *Node) Online(now time.Time) bool {
	if n.IsSelf {
		return true
	}
	return now.Unix()-n.LastSeen < int64(NodeStalenessWindow.Seconds())
}

// SystemMetrics is an immutable host metrics snapshot (C1).
type SystemMetrics struct {
	Hostname         string
	UptimeSeconds    uint64
	CPUUsagePercent  float64
	CPUCount         int
	CPUModel         string
	MemoryTotalBytes uint64
	MemoryUsedBytes  uint64
	MemoryPercent    float64
	SwapTotalBytes   uint64
	SwapUsedBytes    uint64
	Disks            []DiskMetrics
	Network          []NetworkMetrics
	LoadAverage      LoadAverage
	Processes        int
}

// DiskMetrics describes one mounted filesystem.
type DiskMetrics struct {
	Name            string
	MountPoint      string
	FilesystemType  string
	TotalBytes      uint64
	UsedBytes       uint64
	AvailableBytes  uint64
	UsagePercent    float64
}

// NetworkMetrics describes one network interface's cumulative counters.
type NetworkMetrics struct {
	Interface  string
	RxBytes    uint64
	TxBytes    uint64
	RxPackets  uint64
	TxPackets  uint64
}

// LoadAverage mirrors /proc/loadavg's three windows.
type LoadAverage struct {
	One     float64
	Five    float64
	Fifteen float64
}

// Runtime selects which container driver a service or instance runs under.
type Runtime string

const (
	RuntimeDocker Runtime = "docker"
	RuntimeLxc    Runtime = "lxc"
)

// PlacementKind is the tag of a Placement value.
type PlacementKind string

const (
	PlacementAny         PlacementKind = "any"
	PlacementPreferNode  PlacementKind = "prefer_node"
	PlacementRequireNode PlacementKind = "require_node"
)

// Placement constrains which node a service's instances may land on.
// NodeID is meaningful only for PlacementPreferNode and PlacementRequireNode.
type Placement struct {
	Kind   PlacementKind
	NodeID string
}

// AnyPlacement is the zero-value, no-constraint placement.
func AnyPlacement() Placement { return Placement{Kind: PlacementAny} }

// RestartPolicy governs whether the reconciler restarts a stopped instance.
type RestartPolicy string

const (
	RestartAlways    RestartPolicy = "always"
	RestartOnFailure RestartPolicy = "on-failure"
	RestartNever     RestartPolicy = "never"
)

// LxcConfig parameterises an LXC container created from a distro template.
type LxcConfig struct {
	Distribution string `json:"distribution"`
	Release      string `json:"release"`
	Architecture string `json:"architecture"`
}

// DefaultLxcConfig matches the original source's template defaults.
func DefaultLxcConfig() LxcConfig {
	return LxcConfig{Distribution: "ubuntu", Release: "jammy", Architecture: "amd64"}
}

// InstanceStatus is the observed state of a ServiceInstance's container.
type InstanceStatus string

const (
	InstanceRunning InstanceStatus = "running"
	InstanceStopped InstanceStatus = "stopped"
	InstanceExited  InstanceStatus = "exited"
	InstanceDead    InstanceStatus = "dead"
	InstancePending InstanceStatus = "pending"
	InstanceLost    InstanceStatus = "lost"
)

// ServiceInstance is one concrete container belonging to a WolfRunService.
type ServiceInstance struct {
	NodeID        string         `json:"node_id"`
	ContainerName string         `json:"container_name"`
	WolfnetIP     string         `json:"wolfnet_ip,omitempty"`
	Status        InstanceStatus `json:"status"`
	LastSeen      int64          `json:"last_seen"`
}

// WolfRunService is a declarative "run N instances of this recipe" record (C6).
type WolfRunService struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Runtime        Runtime           `json:"runtime"`
	Image          string            `json:"image,omitempty"`
	LxcConfig      *LxcConfig        `json:"lxc_config,omitempty"`
	Replicas       int               `json:"replicas"`
	MinReplicas    int               `json:"min_replicas"`
	MaxReplicas    int               `json:"max_replicas"`
	Ports          []string          `json:"ports"`
	Env            []string          `json:"env"`
	Volumes        []string          `json:"volumes"`
	ClusterName    string            `json:"cluster_name"`
	Placement      Placement         `json:"placement"`
	RestartPolicy  RestartPolicy     `json:"restart_policy"`
	Instances      []ServiceInstance `json:"instances"`
	ServiceIP      string            `json:"service_ip,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// DefaultMaxReplicas matches the original source's ceiling for services
// created without an explicit bound.
const DefaultMaxReplicas = 10

// ClampReplicas enforces 0 <= min <= replicas <= max, raising max up to min
// if the caller set it below min.
func ClampReplicas(min, max, replicas int) (clampedMin, clampedMax, clampedReplicas int) {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	if replicas < min {
		replicas = min
	}
	if replicas > max {
		replicas = max
	}
	return min, max, replicas
}

// ContainerInfo is the C2 adapter's view of one container on a node,
// regardless of runtime.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	Status    string // human-readable, e.g. "Up 3 minutes"
	State     string // adapter's lowercase state word: running/exited/...
	Ports     []string
	IPAddress string // may contain "<ip> (wolfnet)" annotation; see runtime pkg
	Runtime   Runtime
}

// StatusReport is what the peer poller (C5) requests from /agent/status.
type StatusReport struct {
	NodeID      string         `json:"node_id"`
	Hostname    string         `json:"hostname"`
	Metrics     SystemMetrics  `json:"metrics"`
	HasDocker   bool           `json:"has_docker"`
	HasLxc      bool           `json:"has_lxc"`
	NodeType    NodeType       `json:"node_type"`
	ClusterName string         `json:"cluster_name"`
}
