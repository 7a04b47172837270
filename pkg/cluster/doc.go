// Package cluster holds the registry of cluster membership (C4) and the
// poller that keeps peer rows current (C5). There is no leader election and
// no quorum: every node's view is its own, reconciled only by re-polling.
package cluster
