// Package wolfrun is the service registry (C6): a durable list of
// WolfRunService records, each carrying its own instance list. The registry
// file is the sole source of truth — unlike the cluster registry there is
// no in-memory-only peer reconciliation here, because services are declared
// locally and only ever reconciled by this node's own reconciler.
package wolfrun

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfstacksystems/wolfstack/pkg/log"
	"github.com/wolfstacksystems/wolfstack/pkg/overlay"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolferr"
)

// DefaultPath is a fixed registry location under /etc/wolfstack. Nothing in
// this module opens it: wolfstackd serve and the wolfrun CLI both keep the
// registry at <data-dir>/wolfrun/services.json.
const DefaultPath = "/etc/wolfstack/wolfrun/services.json"

// Store is a JSON-file-backed registry of WolfRunService records, guarded by
// a single exclusive lock per the single-writer-per-mutation discipline.
type Store struct {
	mu       sync.RWMutex
	path     string
	services map[string]types.WolfRunService
}

// NewStore loads path, creating an empty registry file if it doesn't exist.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, services: make(map[string]types.WolfRunService)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.persistLocked()
	}
	if err != nil {
		return wolferr.Wrap(wolferr.IO, err, "read service registry %s", s.path)
	}
	var list []types.WolfRunService
	if err := json.Unmarshal(data, &list); err != nil {
		return wolferr.Wrap(wolferr.IO, err, "parse service registry %s", s.path)
	}
	for _, svc := range list {
		s.services[svc.ID] = svc
	}
	return nil
}

// persistLocked rewrites the whole registry atomically: write to a temp
// file in the same directory, then rename over the target so a reader never
// observes a partially-written file.
func (s *Store) persistLocked() error {
	list := make([]types.WolfRunService, 0, len(s.services))
	for _, svc := range s.services {
		list = append(list, svc)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return wolferr.Wrap(wolferr.IO, err, "marshal service registry")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return wolferr.Wrap(wolferr.IO, err, "create registry directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".services-*.json.tmp")
	if err != nil {
		return wolferr.Wrap(wolferr.IO, err, "create temp registry file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wolferr.Wrap(wolferr.IO, err, "write temp registry file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return wolferr.Wrap(wolferr.IO, err, "close temp registry file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return wolferr.Wrap(wolferr.IO, err, "commit registry file")
	}
	return nil
}

// ListServices returns a snapshot copy of every service. Satisfies
// metrics.ServiceLister.
func (s *Store) ListServices() []types.WolfRunService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.WolfRunService, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, svc)
	}
	return out
}

// Get returns one service by ID.
func (s *Store) Get(id string) (types.WolfRunService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return types.WolfRunService{}, wolferr.New(wolferr.NotFound, "service %s not found", id)
	}
	return svc, nil
}

// Create validates and persists a new service, assigning it an ID and an
// overlay VIP. The VIP is allocated best-effort: if every local allocation
// source is unreachable (no overlay link, no docker, no lxc state — e.g. in
// a test sandbox), the service is still created with ServiceIP left empty;
// the reconciler retries the allocation on each tick until it succeeds.
func (s *Store) Create(svc types.WolfRunService) (types.WolfRunService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc.ID = "svc-" + uuid.New().String()
	if svc.MaxReplicas == 0 {
		svc.MaxReplicas = types.DefaultMaxReplicas
	}
	svc.MinReplicas, svc.MaxReplicas, svc.Replicas = types.ClampReplicas(svc.MinReplicas, svc.MaxReplicas, svc.Replicas)
	now := time.Now()
	svc.CreatedAt = now
	svc.UpdatedAt = now

	if svc.ServiceIP == "" {
		if used, err := overlay.UsedOctets(overlay.Interface); err != nil {
			log.WithComponent("wolfrun").Warn().Err(err).Msg("allocate service vip")
		} else {
			svc.ServiceIP = overlay.NextFree(used)
		}
	}

	s.services[svc.ID] = svc
	if err := s.persistLocked(); err != nil {
		delete(s.services, svc.ID)
		return types.WolfRunService{}, err
	}
	return svc, nil
}

// Delete removes a service and releases its overlay VIP, if it had one.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return wolferr.New(wolferr.NotFound, "service %s not found", id)
	}
	if svc.ServiceIP != "" {
		_ = overlay.RemoveVIP(overlay.Interface, svc.ServiceIP)
	}
	delete(s.services, id)
	return s.persistLocked()
}

// Scale sets the desired replica count, clamped to [min_replicas, max_replicas].
func (s *Store) Scale(id string, replicas int) (types.WolfRunService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return types.WolfRunService{}, wolferr.New(wolferr.NotFound, "service %s not found", id)
	}
	svc.MinReplicas, svc.MaxReplicas, svc.Replicas = types.ClampReplicas(svc.MinReplicas, svc.MaxReplicas, replicas)
	svc.UpdatedAt = time.Now()

	s.services[id] = svc
	if err := s.persistLocked(); err != nil {
		return types.WolfRunService{}, err
	}
	return svc, nil
}

// ReplaceInstances atomically overwrites a service's instance list — the
// reconciler's commit point at the end of every tick step that mutates it.
func (s *Store) ReplaceInstances(id string, instances []types.ServiceInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return wolferr.New(wolferr.NotFound, "service %s not found", id)
	}
	svc.Instances = instances
	svc.UpdatedAt = time.Now()
	s.services[id] = svc
	return s.persistLocked()
}

// SetServiceIP assigns or clears a service's overlay VIP.
func (s *Store) SetServiceIP(id, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return wolferr.New(wolferr.NotFound, "service %s not found", id)
	}
	svc.ServiceIP = ip
	svc.UpdatedAt = time.Now()
	s.services[id] = svc
	return s.persistLocked()
}
