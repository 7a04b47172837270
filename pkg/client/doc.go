// Package client is the HTTP client used for every inter-node call: the
// peer poller's status requests, the reconciler's remote container
// operations, and remote image pulls. Every request carries the
// X-Cluster-Secret header and an explicit per-call timeout; there is no
// connection pooling beyond what net/http already does for us.
package client
