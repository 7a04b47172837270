package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfstacksystems/wolfstack/pkg/log"
	"github.com/wolfstacksystems/wolfstack/pkg/metrics"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// StatusClient is the subset of pkg/client.Client the poller needs.
type StatusClient interface {
	Status(ctx context.Context, node types.Node) (types.StatusReport, error)
}

// Poller is C5: every Period, it asks each known non-self node for its
// StatusReport and folds the answer into the Registry. A peer that errors
// or times out is left untouched; Node.Online recomputes it offline once
// the staleness window elapses.
type Poller struct {
	registry *Registry
	client   StatusClient
	logger   zerolog.Logger
	Period   time.Duration
	stopCh   chan struct{}
}

// NewPoller builds a poller over registry, polling every 10s by default.
func NewPoller(registry *Registry, client StatusClient) *Poller {
	return &Poller{
		registry: registry,
		client:   client,
		logger:   log.WithComponent("cluster-poller"),
		Period:   10 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the poll loop in a new goroutine.
func (p *Poller) Start() {
	go p.run()
}

// Stop halts the poll loop.
func (p *Poller) Stop() {
	close(p.stopCh)
}

func (p *Poller) run() {
	ticker := time.NewTicker(p.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pollOnce()
		case <-p.stopCh:
			return
		}
	}
}

// pollOnce dials every known peer concurrently; a single peer never has two
// outstanding polls because each tick waits for all of the previous tick's
// goroutines to finish before the ticker fires again.
func (p *Poller) pollOnce() {
	var wg sync.WaitGroup
	for _, peer := range p.registry.Peers() {
		wg.Add(1)
		go func(peer types.Node) {
			defer wg.Done()
			p.pollPeer(peer)
		}(peer)
	}
	wg.Wait()
}

func (p *Poller) pollPeer(peer types.Node) {
	timer := metrics.NewTimer()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report, err := p.client.Status(ctx, peer)
	timer.ObserveDuration(metrics.PollDuration)
	if err != nil {
		metrics.PollFailuresTotal.WithLabelValues(peer.ID).Inc()
		p.logger.Warn().Err(err).Str("node_id", peer.ID).Msg("peer status poll failed")
		return
	}

	p.registry.UpdateRemote(types.Node{
		ID:          report.NodeID,
		Hostname:    report.Hostname,
		Address:     peer.Address,
		Port:        peer.Port,
		LastSeen:    time.Now().Unix(),
		Metrics:     &report.Metrics,
		HasDocker:   report.HasDocker,
		HasLxc:      report.HasLxc,
		NodeType:    report.NodeType,
		ClusterName: report.ClusterName,
	})
}
