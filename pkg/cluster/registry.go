// Package cluster implements the peer-to-peer cluster registry (C4) and the
// peer poller that keeps it current (C5). There is no consensus protocol:
// each node maintains its own view, refreshed by periodically asking every
// known peer how it sees itself, and resolves any disagreement by last
// writer wins on LastSeen.
package cluster

import (
	"sync"

	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// Registry holds this process's view of every node in the cluster: itself
// and whatever peers have been manually added or discovered. Writers take
// an exclusive lock; readers always copy out rather than returning internal
// state, so a caller's slice is never mutated out from under it.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]types.Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]types.Node)}
}

// UpdateSelf records this process's own status report under its node ID,
// marking the row IsSelf so Online always reports it reachable.
func (r *Registry) UpdateSelf(n types.Node) {
	n.IsSelf = true
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.ID] = n
}

// UpdateRemote records a peer's self-reported status, as observed by the
// poller. LastSeen is always set to the observation time by the caller
// before this is invoked, so the newest observation always wins.
func (r *Registry) UpdateRemote(n types.Node) {
	n.IsSelf = false
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.nodes[n.ID]; ok {
		n.IsSelf = existing.IsSelf
	}
	r.nodes[n.ID] = n
}

// AddManual registers a node the operator has told the cluster about
// directly (e.g. a newly-provisioned host or a Proxmox reporter) without
// waiting for a poll cycle to discover it.
func (r *Registry) AddManual(n types.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.ID] = n
}

// Remove deletes a node from the registry, e.g. after an operator
// decommissions it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

// Get returns the node by ID and whether it was found.
func (r *Registry) Get(id string) (types.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// ListNodes returns a snapshot copy of every known node. Satisfies
// metrics.NodeLister.
func (r *Registry) ListNodes() []types.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	return out
}

// Peers returns every node except the local one, for the poller to dial.
func (r *Registry) Peers() []types.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		if !n.IsSelf {
			out = append(out, n)
		}
	}
	return out
}

// Self returns the local node's row, if this process has reported one yet.
func (r *Registry) Self() (types.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.nodes {
		if n.IsSelf {
			return n, true
		}
	}
	return types.Node{}, false
}
