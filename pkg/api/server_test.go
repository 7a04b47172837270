package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfstacksystems/wolfstack/pkg/cluster"
	"github.com/wolfstacksystems/wolfstack/pkg/security"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolfrun"
)

func newTestServer(t *testing.T) (*Server, *security.SessionManager, *security.ClusterSecret) {
	t.Helper()
	registry := cluster.NewRegistry()
	store, err := wolfrun.NewStore(filepath.Join(t.TempDir(), "services.json"))
	require.NoError(t, err)
	secret, err := security.LoadOrGenerateSecret(filepath.Join(t.TempDir(), "cluster.key"))
	require.NoError(t, err)
	sessions := security.NewSessionManager()

	return NewServer(registry, store, secret, sessions, "node-a", "default"), sessions, secret
}

func TestAgentStatus_RequiresClusterSecret(t *testing.T) {
	s, _, secret := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/agent/status", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/agent/status", nil)
	req.Header.Set("X-Cluster-Secret", secret.String())
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var report types.StatusReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, "node-a", report.NodeID)
}

func TestServiceCRUD_RequiresSession(t *testing.T) {
	s, sessions, _ := newTestServer(t)
	sess, err := sessions.Issue(time.Hour)
	require.NoError(t, err)

	body, _ := json.Marshal(types.WolfRunService{Name: "web", Runtime: types.RuntimeDocker, Replicas: 2})
	req := httptest.NewRequest(http.MethodPost, "/wolfrun/services", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created types.WolfRunService
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)

	req = httptest.NewRequest(http.MethodGet, "/wolfrun/services/"+created.ID, nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScaleService_ClampsReplicas(t *testing.T) {
	s, sessions, _ := newTestServer(t)
	sess, err := sessions.Issue(time.Hour)
	require.NoError(t, err)
	auth := func(r *http.Request) *http.Request {
		r.Header.Set("Authorization", "Bearer "+sess.Token)
		return r
	}

	createBody, _ := json.Marshal(types.WolfRunService{Name: "web", MinReplicas: 1, MaxReplicas: 5, Replicas: 2})
	req := auth(httptest.NewRequest(http.MethodPost, "/wolfrun/services", bytes.NewReader(createBody)))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	var created types.WolfRunService
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	scaleBody, _ := json.Marshal(map[string]int{"replicas": 99})
	req = auth(httptest.NewRequest(http.MethodPost, "/wolfrun/services/"+created.ID+"/scale", bytes.NewReader(scaleBody)))
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var scaled types.WolfRunService
	require.NoError(t, json.NewDecoder(w.Body).Decode(&scaled))
	assert.Equal(t, 5, scaled.Replicas)
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
