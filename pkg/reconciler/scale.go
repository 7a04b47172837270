package reconciler

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wolfstacksystems/wolfstack/pkg/client"
	"github.com/wolfstacksystems/wolfstack/pkg/cluster"
	"github.com/wolfstacksystems/wolfstack/pkg/lb"
	"github.com/wolfstacksystems/wolfstack/pkg/log"
	"github.com/wolfstacksystems/wolfstack/pkg/metrics"
	"github.com/wolfstacksystems/wolfstack/pkg/overlay"
	"github.com/wolfstacksystems/wolfstack/pkg/runtime"
	"github.com/wolfstacksystems/wolfstack/pkg/scheduler"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// pickNode asks the scheduler for the next placement, given the current
// cluster snapshot.
func pickNode(svc types.WolfRunService, registry *cluster.Registry) string {
	return scheduler.Pick(svc, registry.ListNodes())
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)

func slug(name string) string {
	return nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
}

func parsePorts(specs []string) []lb.Port {
	var out []lb.Port
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			continue
		}
		out = append(out, lb.Port{Container: n})
	}
	return out
}

func countRunning(instances []types.ServiceInstance) int {
	n := 0
	for _, inst := range instances {
		if inst.Status == types.InstanceRunning {
			n++
		}
	}
	return n
}

// scaleUp is Step 3: schedule new instances until replicas is met, stopping
// early (to retry next tick) the moment the scheduler has no eligible node.
func (r *Reconciler) scaleUp(svc *types.WolfRunService) {
	logger := log.WithServiceID(svc.ID)
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, "scale_up")

	needed := svc.Replicas - countRunning(svc.Instances)
	for i := 0; i < needed; i++ {
		nodeID, name, wolfnetIP, err := r.placeInstance(*svc)
		if nodeID == "" && err == nil {
			logger.Warn().Msg("no eligible node for scale up, retrying next tick")
			break
		}
		if err != nil {
			metrics.ReconcileErrorsTotal.WithLabelValues("scale_up").Inc()
			logger.Error().Err(err).Msg("scale up failed")
			break
		}

		svc.Instances = append(svc.Instances, types.ServiceInstance{
			NodeID:        nodeID,
			ContainerName: name,
			WolfnetIP:     wolfnetIP,
			Status:        types.InstanceRunning,
			LastSeen:      time.Now().Unix(),
		})
		if err := r.store.ReplaceInstances(svc.ID, svc.Instances); err != nil {
			logger.Error().Err(err).Msg("persist scale up")
		}
	}
}

// placeInstance picks a node via the scheduler and creates the next
// instance there, returning the node it actually landed on (which for Lxc
// is the template's owning node, not necessarily the scheduler's pick — see
// the design notes) along with its generated container name and overlay IP.
func (r *Reconciler) placeInstance(svc types.WolfRunService) (nodeID, name, wolfnetIP string, err error) {
	picked := pickNode(svc, r.registry)
	if picked == "" {
		return "", "", "", nil
	}

	ordinal := len(svc.Instances) + 1
	name = fmt.Sprintf("%d-wolfrun-%s", ordinal, slug(svc.Name))

	if svc.Runtime == types.RuntimeLxc {
		nodeID, wolfnetIP, err = r.createLxcInstance(svc, picked, name)
		return nodeID, name, wolfnetIP, err
	}

	wolfnetIP, err = r.createDockerInstance(svc, picked, name)
	return picked, name, wolfnetIP, err
}

func (r *Reconciler) createDockerInstance(svc types.WolfRunService, nodeID, name string) (string, error) {
	node, ok := r.registry.Get(nodeID)
	if !ok {
		return "", fmt.Errorf("node %s not found", nodeID)
	}

	used, _ := overlay.UsedOctets(overlay.Interface)
	ip := overlay.NextFree(used)
	env := append(append([]string{}, svc.Env...), "WOLFRUN_SERVICE="+svc.ID, "WOLFRUN_SERVICE_NAME="+svc.Name)

	if node.IsSelf {
		ctx := context.Background()
		adapter := runtime.For(types.RuntimeDocker)
		if svc.Image != "" {
			if err := adapter.Pull(ctx, svc.Image); err != nil {
				return "", fmt.Errorf("pull %s: %w", svc.Image, err)
			}
		}
		spec := runtime.CreateSpec{Name: name, Image: svc.Image, Ports: svc.Ports, Env: env, Volumes: svc.Volumes, WolfnetIP: ip}
		if err := adapter.Create(ctx, spec); err != nil {
			return "", err
		}
		return ip, adapter.Start(ctx, name)
	}

	if svc.Image != "" {
		pullCtx, pullCancel := context.WithTimeout(context.Background(), client.TransferTimeout)
		err := r.remote.PullImage(pullCtx, node, svc.Image)
		pullCancel()
		if err != nil {
			return "", fmt.Errorf("pull %s on %s: %w", svc.Image, node.ID, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), client.ReconcileOpTimeout)
	defer cancel()
	req := client.CreateContainerRequest{Name: name, Image: svc.Image, Ports: svc.Ports, Env: env, Volumes: svc.Volumes, WolfnetIP: ip}
	if err := r.remote.CreateContainer(ctx, node, types.RuntimeDocker, req); err != nil {
		return "", err
	}
	return ip, r.remote.ContainerAction(ctx, node, types.RuntimeDocker, name, "start")
}

// createLxcInstance clones the service's chosen template instance — first
// the first running one, else the first declared one, else a container
// named after the service itself — onto the new instance's name. Because
// lxc-copy only operates on local filesystem state, the clone always lands
// on the template's own node, which may differ from the scheduler's pick.
func (r *Reconciler) createLxcInstance(svc types.WolfRunService, pickedNode, name string) (string, string, error) {
	templateName := svc.Name
	templateNode := pickedNode
	for _, inst := range svc.Instances {
		if inst.Status == types.InstanceRunning {
			templateName, templateNode = inst.ContainerName, inst.NodeID
			break
		}
	}
	if templateName == svc.Name && len(svc.Instances) > 0 {
		templateName, templateNode = svc.Instances[0].ContainerName, svc.Instances[0].NodeID
	}

	node, ok := r.registry.Get(templateNode)
	if !ok {
		return "", "", fmt.Errorf("template node %s not found", templateNode)
	}

	if node.IsSelf {
		adapter := runtime.For(types.RuntimeLxc)
		ctx := context.Background()
		_ = adapter.Stop(ctx, templateName)
		cloneErr := adapter.Clone(ctx, templateName, name)
		_ = adapter.Start(ctx, templateName)
		if cloneErr != nil {
			return "", "", cloneErr
		}
		if err := adapter.Start(ctx, name); err != nil {
			return "", "", err
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), client.ReconcileOpTimeout)
		defer cancel()
		if err := r.remote.CloneContainer(ctx, node, templateName, name); err != nil {
			return "", "", err
		}
		if err := r.remote.ContainerAction(ctx, node, types.RuntimeLxc, name, "start"); err != nil {
			return "", "", err
		}
	}

	ip, _ := overlay.ReadLxcMarker(name)
	return templateNode, ip, nil
}

// scaleDown is Step 4: un-manage excess running instances only, preferring
// to remove from whichever node currently hosts the most of them. The
// underlying containers are left running; teardown is an operator action.
func (r *Reconciler) scaleDown(svc *types.WolfRunService) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, "scale_down")

	var running []types.ServiceInstance
	for _, inst := range svc.Instances {
		if inst.Status == types.InstanceRunning {
			running = append(running, inst)
		}
	}
	excess := len(running) - svc.Replicas
	if excess <= 0 {
		return
	}

	counts := make(map[string]int)
	for _, inst := range running {
		counts[inst.NodeID]++
	}
	sort.Slice(running, func(i, j int) bool { return counts[running[i].NodeID] > counts[running[j].NodeID] })

	remove := make(map[string]bool, excess)
	for i := 0; i < excess; i++ {
		remove[running[i].ContainerName] = true
	}

	kept := make([]types.ServiceInstance, 0, len(svc.Instances)-excess)
	for _, inst := range svc.Instances {
		if !remove[inst.ContainerName] {
			kept = append(kept, inst)
		}
	}
	svc.Instances = kept
	if err := r.store.ReplaceInstances(svc.ID, svc.Instances); err != nil {
		log.WithServiceID(svc.ID).Error().Err(err).Msg("persist scale down")
	}
}

// restart is Step 5: start every stopped/exited/dead instance when the
// service's restart policy says to. It does not persist its own optimistic
// status change — the next tick's Observe step is the source of truth.
func (r *Reconciler) restart(svc *types.WolfRunService) {
	if svc.RestartPolicy != types.RestartAlways {
		return
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, "restart")

	for i, inst := range svc.Instances {
		switch inst.Status {
		case types.InstanceExited, types.InstanceDead, types.InstanceStopped:
		default:
			continue
		}

		node, ok := r.registry.Get(inst.NodeID)
		if !ok || !node.Online(time.Now()) {
			continue
		}

		var err error
		if node.IsSelf {
			err = runtime.For(svc.Runtime).Start(context.Background(), inst.ContainerName)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), client.ReconcileOpTimeout)
			err = r.remote.ContainerAction(ctx, node, svc.Runtime, inst.ContainerName, "start")
			cancel()
		}
		if err != nil {
			metrics.ReconcileErrorsTotal.WithLabelValues("restart").Inc()
			log.WithInstanceID(inst.ContainerName).Error().Err(err).Msg("restart failed")
			continue
		}
		svc.Instances[i].Status = types.InstancePending
	}
}

// gcLost is Step 6: drop instances that have been lost for over 5 minutes,
// freeing the next tick's scale-up to reschedule a replacement.
func (r *Reconciler) gcLost(svc *types.WolfRunService) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, "gc")

	now := time.Now().Unix()
	kept := make([]types.ServiceInstance, 0, len(svc.Instances))
	changed := false
	for _, inst := range svc.Instances {
		if inst.Status == types.InstanceLost && now-inst.LastSeen > 300 {
			changed = true
			continue
		}
		kept = append(kept, inst)
	}
	if !changed {
		return
	}
	svc.Instances = kept
	if err := r.store.ReplaceInstances(svc.ID, svc.Instances); err != nil {
		log.WithServiceID(svc.ID).Error().Err(err).Msg("persist gc")
	}
}
