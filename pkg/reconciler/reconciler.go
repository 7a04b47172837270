package reconciler

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfstacksystems/wolfstack/pkg/client"
	"github.com/wolfstacksystems/wolfstack/pkg/cluster"
	"github.com/wolfstacksystems/wolfstack/pkg/lb"
	"github.com/wolfstacksystems/wolfstack/pkg/log"
	"github.com/wolfstacksystems/wolfstack/pkg/metrics"
	"github.com/wolfstacksystems/wolfstack/pkg/overlay"
	"github.com/wolfstacksystems/wolfstack/pkg/runtime"
	"github.com/wolfstacksystems/wolfstack/pkg/storage"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolfrun"
)

// remoteOps is the subset of *client.Client the reconciler drives peers
// through; satisfied by the real client and by test fakes.
type remoteOps interface {
	ListContainers(ctx context.Context, node types.Node, rt types.Runtime, all bool) ([]types.ContainerInfo, error)
	ContainerAction(ctx context.Context, node types.Node, rt types.Runtime, name, action string) error
	CreateContainer(ctx context.Context, node types.Node, rt types.Runtime, req client.CreateContainerRequest) error
	PullImage(ctx context.Context, node types.Node, image string) error
	CloneContainer(ctx context.Context, node types.Node, template, newName string) error
}

// Reconciler is C8: it owns no state of its own beyond the exclusion flag —
// the cluster and service registries are passed in and remain owned by the
// caller, per the design notes' stance against back-references.
type Reconciler struct {
	registry *cluster.Registry
	store    *wolfrun.Store
	remote   remoteOps
	lbBuild  *lb.Builder
	cache    *storage.Cache
	logger   zerolog.Logger

	Period  time.Duration
	running atomic.Bool
	stopCh  chan struct{}
}

// AttachCache wires a bbolt sidecar into the reconciler so each tick records
// a bounded history entry for operator inspection. Optional: with no cache
// attached, Tick runs exactly as before.
func (r *Reconciler) AttachCache(cache *storage.Cache) {
	r.cache = cache
}

// New builds a Reconciler. lbBuilder may be nil in environments without
// iptables access (e.g. most test runs); LB rebuild is then a no-op.
func New(registry *cluster.Registry, store *wolfrun.Store, remote remoteOps, lbBuilder *lb.Builder) *Reconciler {
	return &Reconciler{
		registry: registry,
		store:    store,
		remote:   remote,
		lbBuild:  lbBuilder,
		logger:   log.WithComponent("reconciler"),
		Period:   10 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the tick loop in a new goroutine.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop halts the tick loop.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Tick()
		case <-r.stopCh:
			return
		}
	}
}

// Tick runs one reconciliation pass over every declared service, unless a
// prior tick is still in flight, in which case it returns immediately.
func (r *Reconciler) Tick() {
	if !r.running.CompareAndSwap(false, true) {
		metrics.ReconcileSkippedTotal.Inc()
		return
	}
	defer r.running.Store(false)

	start := time.Now()
	services := r.store.ListServices()
	errCount := 0
	for _, svc := range services {
		if !r.reconcileService(svc) {
			errCount++
		}
	}

	if r.cache != nil {
		rec := storage.ReconcileRecord{
			Timestamp:    start.Unix(),
			ServiceCount: len(services),
			Errors:       errCount,
			DurationMS:   time.Since(start).Milliseconds(),
		}
		if err := r.cache.AppendReconcileRecord(rec); err != nil {
			r.logger.Warn().Err(err).Msg("append reconcile history")
		}
	}
}

// reconcileService runs all six steps for one service and reports whether
// persisting its observed state succeeded.
func (r *Reconciler) reconcileService(svc types.WolfRunService) bool {
	logger := log.WithServiceID(svc.ID)

	svc.Instances = r.observe(svc)
	ok := true
	if err := r.store.ReplaceInstances(svc.ID, svc.Instances); err != nil {
		logger.Error().Err(err).Msg("persist observed instances")
		ok = false
	}

	r.ensureServiceIP(&svc)
	r.rebuildLB(svc)
	r.scaleUp(&svc)
	r.scaleDown(&svc)
	r.restart(&svc)
	r.gcLost(&svc)
	return ok
}

// observe is Step 1: it re-derives every instance's status and wolfnet_ip
// from the owning node's live container list, leaving an instance on an
// unreachable node (or missing from an otherwise-reachable node) as "lost"
// with its prior last_seen preserved.
func (r *Reconciler) observe(svc types.WolfRunService) []types.ServiceInstance {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, "observe")

	byNode := make(map[string][]types.ContainerInfo)
	asked := make(map[string]bool)
	for _, inst := range svc.Instances {
		if asked[inst.NodeID] {
			continue
		}
		asked[inst.NodeID] = true
		if containers, ok := r.listContainers(svc, inst.NodeID); ok {
			byNode[inst.NodeID] = containers
		}
	}

	now := time.Now()
	out := make([]types.ServiceInstance, len(svc.Instances))
	for i, inst := range svc.Instances {
		containers, reachable := byNode[inst.NodeID]
		if !reachable {
			inst.Status = types.InstanceLost
			out[i] = inst
			continue
		}
		found := false
		for _, c := range containers {
			if c.Name != inst.ContainerName {
				continue
			}
			inst.Status = mapContainerState(c.State)
			inst.WolfnetIP = extractOverlayIP(c.IPAddress)
			inst.LastSeen = now.Unix()
			found = true
			break
		}
		if !found {
			inst.Status = types.InstanceLost
		}
		out[i] = inst
	}
	return out
}

func (r *Reconciler) listContainers(svc types.WolfRunService, nodeID string) ([]types.ContainerInfo, bool) {
	node, ok := r.registry.Get(nodeID)
	if !ok || !node.Online(time.Now()) {
		return nil, false
	}

	if node.IsSelf {
		containers, err := runtime.For(svc.Runtime).List(context.Background(), true)
		if err != nil {
			metrics.ReconcileErrorsTotal.WithLabelValues("observe").Inc()
			return nil, false
		}
		return containers, true
	}

	ctx, cancel := context.WithTimeout(context.Background(), client.ReconcileOpTimeout)
	defer cancel()
	containers, err := r.remote.ListContainers(ctx, node, svc.Runtime, true)
	if err != nil {
		metrics.ReconcileErrorsTotal.WithLabelValues("observe").Inc()
		return nil, false
	}
	return containers, true
}

func mapContainerState(state string) types.InstanceStatus {
	switch state {
	case "running":
		return types.InstanceRunning
	case "exited":
		return types.InstanceExited
	case "dead":
		return types.InstanceDead
	case "stopped", "stopping":
		return types.InstanceStopped
	default:
		return types.InstanceStopped
	}
}

// extractOverlayIP pulls the 10.10.10.* address out of an adapter-reported
// IP string, which may carry the docker.go " (wolfnet)" dual-address
// annotation or be a bridge-only address outside the overlay subnet.
func extractOverlayIP(ip string) string {
	candidate := strings.TrimSuffix(strings.TrimSpace(ip), " (wolfnet)")
	if strings.HasPrefix(candidate, "10.10.10.") {
		return candidate
	}
	return ""
}

// ensureServiceIP retries the VIP allocation Store.Create already attempts
// at creation time, for the case where that attempt found every local
// allocation source unreachable (e.g. the overlay link wasn't up yet). Once
// assigned, a VIP is never reassigned here.
func (r *Reconciler) ensureServiceIP(svc *types.WolfRunService) {
	if svc.ServiceIP != "" {
		return
	}
	used, err := overlay.UsedOctets(overlay.Interface)
	if err != nil {
		return
	}
	svc.ServiceIP = overlay.NextFree(used)
	if err := r.store.SetServiceIP(svc.ID, svc.ServiceIP); err != nil {
		log.WithServiceID(svc.ID).Error().Err(err).Msg("persist service vip")
	}
}

// rebuildLB is Step 2: recompute the VIP's DNAT set from the instances that
// are currently running with a known overlay address.
func (r *Reconciler) rebuildLB(svc types.WolfRunService) {
	if svc.ServiceIP == "" || r.lbBuild == nil {
		return
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.LBRebuildDuration)

	var backends []string
	for _, inst := range svc.Instances {
		if inst.Status == types.InstanceRunning && inst.WolfnetIP != "" {
			backends = append(backends, inst.WolfnetIP)
		}
	}

	if err := r.lbBuild.Rebuild(svc.ServiceIP, backends, parsePorts(svc.Ports)); err != nil {
		metrics.ReconcileErrorsTotal.WithLabelValues("lb").Inc()
		log.WithServiceID(svc.ID).Error().Err(err).Msg("lb rebuild failed")
	}
}
