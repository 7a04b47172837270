package metrics

import (
	"time"

	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// NodeLister is satisfied by the cluster registry (C4).
type NodeLister interface {
	ListNodes() []types.Node
}

// ServiceLister is satisfied by the wolfrun service registry (C6).
type ServiceLister interface {
	ListServices() []types.WolfRunService
}

// Collector periodically samples the cluster and service registries into
// the package's gauges so a Prometheus scrape never blocks on registry locks.
type Collector struct {
	nodes    NodeLister
	services ServiceLister
	stopCh   chan struct{}
}

// NewCollector builds a collector over the given registries.
func NewCollector(nodes NodeLister, services ServiceLister) *Collector {
	return &Collector{
		nodes:    nodes,
		services: services,
		stopCh:   make(chan struct{}),
	}
}

// Start begins sampling on a 15s interval, collecting once immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts sampling.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectServiceMetrics()
}

func (c *Collector) collectNodeMetrics() {
	if c.nodes == nil {
		return
	}
	nodes := c.nodes.ListNodes()

	counts := make(map[string]map[string]int)
	now := time.Now()
	for _, n := range nodes {
		status := "offline"
		if n.Online(now) {
			status = "online"
		}
		nodeType := string(n.NodeType)
		if counts[nodeType] == nil {
			counts[nodeType] = make(map[string]int)
		}
		counts[nodeType][status]++
	}

	NodesTotal.Reset()
	for nodeType, statuses := range counts {
		for status, count := range statuses {
			NodesTotal.WithLabelValues(nodeType, status).Set(float64(count))
		}
	}
}

func (c *Collector) collectServiceMetrics() {
	if c.services == nil {
		return
	}
	services := c.services.ListServices()
	ServicesTotal.Set(float64(len(services)))

	counts := make(map[string]int)
	for _, svc := range services {
		for _, inst := range svc.Instances {
			counts[string(inst.Status)]++
		}
	}

	InstancesTotal.Reset()
	for status, count := range counts {
		InstancesTotal.WithLabelValues(status).Set(float64(count))
	}
}
