package reconciler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfstacksystems/wolfstack/pkg/client"
	"github.com/wolfstacksystems/wolfstack/pkg/cluster"
	"github.com/wolfstacksystems/wolfstack/pkg/storage"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolfrun"
)

type fakeRemote struct {
	created []client.CreateContainerRequest
	pulled  []string
	actions []string
	cloned  []string
	err     error
}

func (f *fakeRemote) ListContainers(_ context.Context, _ types.Node, _ types.Runtime, _ bool) ([]types.ContainerInfo, error) {
	return nil, f.err
}

func (f *fakeRemote) ContainerAction(_ context.Context, _ types.Node, _ types.Runtime, name, action string) error {
	f.actions = append(f.actions, name+":"+action)
	return f.err
}

func (f *fakeRemote) CreateContainer(_ context.Context, _ types.Node, _ types.Runtime, req client.CreateContainerRequest) error {
	f.created = append(f.created, req)
	return f.err
}

func (f *fakeRemote) PullImage(_ context.Context, _ types.Node, image string) error {
	f.pulled = append(f.pulled, image)
	return f.err
}

func (f *fakeRemote) CloneContainer(_ context.Context, _ types.Node, template, newName string) error {
	f.cloned = append(f.cloned, template+"->"+newName)
	return f.err
}

func newTestReconciler(t *testing.T) (*Reconciler, *cluster.Registry, *wolfrun.Store, *fakeRemote) {
	t.Helper()
	registry := cluster.NewRegistry()
	store, err := wolfrun.NewStore(filepath.Join(t.TempDir(), "services.json"))
	require.NoError(t, err)
	remote := &fakeRemote{}
	return New(registry, store, remote, nil), registry, store, remote
}

func TestScaleUp_PicksLeastLoadedNode(t *testing.T) {
	r, registry, store, remote := newTestReconciler(t)
	registry.AddManual(types.Node{
		ID: "b", Address: "10.10.10.101", Port: 9090, HasDocker: true,
		LastSeen: time.Now().Unix(),
		Metrics:  &types.SystemMetrics{CPUUsagePercent: 10, MemoryPercent: 10},
	})
	registry.AddManual(types.Node{
		ID: "c", Address: "10.10.10.102", Port: 9090, HasDocker: true,
		LastSeen: time.Now().Unix(),
		Metrics:  &types.SystemMetrics{CPUUsagePercent: 90, MemoryPercent: 90},
	})

	svc, err := store.Create(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, Image: "nginx", Replicas: 1})
	require.NoError(t, err)

	r.scaleUp(&svc)

	require.Len(t, svc.Instances, 1)
	assert.Equal(t, "b", svc.Instances[0].NodeID)
	assert.Equal(t, types.InstanceRunning, svc.Instances[0].Status)
	require.Len(t, remote.created, 1)
	assert.Equal(t, "nginx", remote.created[0].Image)
	assert.Contains(t, remote.actions, svc.Instances[0].ContainerName+":start")
}

func TestScaleUp_StopsWhenNoEligibleNode(t *testing.T) {
	r, _, store, remote := newTestReconciler(t)
	svc, err := store.Create(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, Replicas: 3})
	require.NoError(t, err)

	r.scaleUp(&svc)

	assert.Empty(t, svc.Instances)
	assert.Empty(t, remote.created)
}

func TestScaleDown_PrefersNodeWithMoreInstances(t *testing.T) {
	r, _, store, _ := newTestReconciler(t)
	svc, err := store.Create(types.WolfRunService{Name: "web", MinReplicas: 0, MaxReplicas: 5, Replicas: 1})
	require.NoError(t, err)
	svc.Instances = []types.ServiceInstance{
		{NodeID: "a", ContainerName: "1-wolfrun-web", Status: types.InstanceRunning},
		{NodeID: "b", ContainerName: "2-wolfrun-web", Status: types.InstanceRunning},
		{NodeID: "b", ContainerName: "3-wolfrun-web", Status: types.InstanceRunning},
	}

	r.scaleDown(&svc)

	require.Len(t, svc.Instances, 1)
	assert.Equal(t, "a", svc.Instances[0].NodeID)
}

func TestRestart_OnlyAppliesWhenPolicyIsAlways(t *testing.T) {
	r, registry, store, remote := newTestReconciler(t)
	registry.AddManual(types.Node{ID: "b", HasDocker: true, LastSeen: time.Now().Unix()})

	svc, err := store.Create(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, RestartPolicy: types.RestartNever, Replicas: 1})
	require.NoError(t, err)
	svc.Instances = []types.ServiceInstance{{NodeID: "b", ContainerName: "1-wolfrun-web", Status: types.InstanceExited}}

	r.restart(&svc)
	assert.Empty(t, remote.actions)

	svc.RestartPolicy = types.RestartAlways
	r.restart(&svc)
	assert.Contains(t, remote.actions, "1-wolfrun-web:start")
	assert.Equal(t, types.InstancePending, svc.Instances[0].Status)
}

func TestGCLost_RemovesOnlyInstancesLostPastThreshold(t *testing.T) {
	r, _, store, _ := newTestReconciler(t)
	svc, err := store.Create(types.WolfRunService{Name: "web", Replicas: 1})
	require.NoError(t, err)

	now := time.Now().Unix()
	svc.Instances = []types.ServiceInstance{
		{NodeID: "a", ContainerName: "stale", Status: types.InstanceLost, LastSeen: now - 400},
		{NodeID: "a", ContainerName: "recent", Status: types.InstanceLost, LastSeen: now - 10},
		{NodeID: "a", ContainerName: "running", Status: types.InstanceRunning, LastSeen: now},
	}

	r.gcLost(&svc)

	names := make([]string, len(svc.Instances))
	for i, inst := range svc.Instances {
		names[i] = inst.ContainerName
	}
	assert.ElementsMatch(t, []string{"recent", "running"}, names)
}

func TestTick_SkipsOverlappingRun(t *testing.T) {
	r, _, _, _ := newTestReconciler(t)
	r.running.Store(true)
	r.Tick()
	// Tick returns immediately without panicking or resetting the flag itself.
	assert.True(t, r.running.Load())
	r.running.Store(false)
}

func TestTick_RecordsReconcileHistoryWhenCacheAttached(t *testing.T) {
	r, _, store, _ := newTestReconciler(t)
	cache, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	defer cache.Close()
	r.AttachCache(cache)

	_, err = store.Create(types.WolfRunService{Name: "web", Replicas: 0})
	require.NoError(t, err)

	r.Tick()

	history, err := cache.ReconcileHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].ServiceCount)
	assert.Equal(t, 0, history[0].Errors)
}
