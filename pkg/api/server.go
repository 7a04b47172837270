package api

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/wolfstacksystems/wolfstack/pkg/cluster"
	"github.com/wolfstacksystems/wolfstack/pkg/log"
	"github.com/wolfstacksystems/wolfstack/pkg/metrics"
	"github.com/wolfstacksystems/wolfstack/pkg/runtime"
	"github.com/wolfstacksystems/wolfstack/pkg/security"
	"github.com/wolfstacksystems/wolfstack/pkg/sysmetrics"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolferr"
	"github.com/wolfstacksystems/wolfstack/pkg/wolfrun"
)

// Server is the process's inbound HTTP surface, serving both the
// peer-to-peer endpoints (§6) and the dashboard/CLI endpoints.
type Server struct {
	registry    *cluster.Registry
	store       *wolfrun.Store
	secret      *security.ClusterSecret
	sessions    *security.SessionManager
	nodeID      string
	hostname    string
	clusterName string
	hasDocker   bool
	hasLxc      bool
	startedAt   time.Time
	logger      zerolog.Logger
	router      *mux.Router
}

// NewServer wires a Server over the given registries and auth managers.
// Runtime capability detection (docker/lxc CLI presence) happens once here,
// not per-request, since it shells out to exec.LookPath.
func NewServer(registry *cluster.Registry, store *wolfrun.Store, secret *security.ClusterSecret, sessions *security.SessionManager, nodeID, clusterName string) *Server {
	hostname, _ := os.Hostname()
	hasDocker, hasLxc := runtime.DetectCapabilities()

	s := &Server{
		registry:    registry,
		store:       store,
		secret:      secret,
		sessions:    sessions,
		nodeID:      nodeID,
		hostname:    hostname,
		clusterName: clusterName,
		hasDocker:   hasDocker,
		hasLxc:      hasLxc,
		startedAt:   time.Now(),
		logger:      log.WithComponent("api"),
		router:      mux.NewRouter(),
	}
	s.routes()
	return s
}

// Router returns the handler to pass to http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/agent/status", s.requireClusterSecret(s.handleAgentStatus)).Methods(http.MethodGet)

	r.HandleFunc("/nodes", s.requireSession(s.handleListNodes)).Methods(http.MethodGet)
	r.HandleFunc("/nodes", s.requireSession(s.handleAddNode)).Methods(http.MethodPost)
	r.HandleFunc("/nodes/{id}", s.requireSession(s.handleGetNode)).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}", s.requireSession(s.handleRemoveNode)).Methods(http.MethodDelete)

	r.HandleFunc("/metrics", s.requireSession(s.handleSystemMetrics)).Methods(http.MethodGet)

	r.HandleFunc("/containers/{runtime}", s.requireSessionOrSecret(s.handleListContainers)).Methods(http.MethodGet)
	r.HandleFunc("/containers/{runtime}/create", s.requireSessionOrSecret(s.handleCreateContainer)).Methods(http.MethodPost)
	r.HandleFunc("/containers/{runtime}/{name}/action", s.requireSessionOrSecret(s.handleContainerAction)).Methods(http.MethodPost)
	r.HandleFunc("/containers/docker/pull", s.requireClusterSecret(s.handlePullImage)).Methods(http.MethodPost)
	r.HandleFunc("/containers/lxc/{name}/clone", s.requireClusterSecret(s.handleCloneContainer)).Methods(http.MethodPost)

	r.HandleFunc("/wolfrun/services", s.requireSession(s.handleListServices)).Methods(http.MethodGet)
	r.HandleFunc("/wolfrun/services", s.requireSession(s.handleCreateService)).Methods(http.MethodPost)
	r.HandleFunc("/wolfrun/services/{id}", s.requireSession(s.handleGetService)).Methods(http.MethodGet)
	r.HandleFunc("/wolfrun/services/{id}", s.requireSession(s.handleDeleteService)).Methods(http.MethodDelete)
	r.HandleFunc("/wolfrun/services/{id}/scale", s.requireSession(s.handleScaleService)).Methods(http.MethodPost)

	r.Handle("/healthz", metrics.LivenessHandler()).Methods(http.MethodGet)
	r.Handle("/metrics/prometheus", metrics.Handler()).Methods(http.MethodGet)
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.StatusReport{
		NodeID:      s.nodeID,
		Hostname:    s.hostname,
		Metrics:     sysmetrics.Sample(r.Context()),
		HasDocker:   s.hasDocker,
		HasLxc:      s.hasLxc,
		NodeType:    types.NodeTypeWolfStack,
		ClusterName: s.clusterName,
	})
}

func (s *Server) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sysmetrics.Sample(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := wolferr.HTTPStatus(wolferr.KindOf(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
