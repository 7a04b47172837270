package wolfrun

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	path := filepath.Join(t.TempDir(), "services.json")
	s, err := NewStore(path)
	require.NoError(t, err)
	return s
}

func TestCreate_AssignsIDAndClampsReplicas(t *testing.T) {
	s := newTestStore(t)
	svc, err := s.Create(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, Replicas: 3, MaxReplicas: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, svc.ID)
	assert.Equal(t, 2, svc.Replicas, "replicas must be clamped to max_replicas")
}

func TestCreate_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	created, err := s.Create(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, Replicas: 1, MaxReplicas: 5})
	require.NoError(t, err)

	reopened, err := NewStore(path)
	require.NoError(t, err)

	got, err := reopened.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "web", got.Name)
}

func TestScale_ClampsToBounds(t *testing.T) {
	s := newTestStore(t)
	svc, err := s.Create(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, MinReplicas: 1, MaxReplicas: 3, Replicas: 1})
	require.NoError(t, err)

	scaled, err := s.Scale(svc.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, scaled.Replicas)

	scaled, err = s.Scale(svc.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, scaled.Replicas, "replicas must not drop below min_replicas")
}

func TestDelete_RemovesService(t *testing.T) {
	s := newTestStore(t)
	svc, err := s.Create(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, MaxReplicas: 1})
	require.NoError(t, err)

	require.NoError(t, s.Delete(svc.ID))

	_, err = s.Get(svc.ID)
	assert.Error(t, err)
}

func TestReplaceInstances_OverwritesList(t *testing.T) {
	s := newTestStore(t)
	svc, err := s.Create(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, MaxReplicas: 2})
	require.NoError(t, err)

	err = s.ReplaceInstances(svc.ID, []types.ServiceInstance{{NodeID: "n1", ContainerName: "1-wolfrun-web", Status: types.InstanceRunning}})
	require.NoError(t, err)

	got, err := s.Get(svc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Instances, 1)
}

func TestGet_UnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("svc-does-not-exist")
	assert.Error(t, err)
}
