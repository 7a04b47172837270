// Package scheduler decides which node should host the next instance of a
// wolfrun service: a pure function of the service and a cluster snapshot, no
// state of its own. The reconciler (C8) is the only caller.
package scheduler
