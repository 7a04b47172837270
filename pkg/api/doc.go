// Package api is the inbound HTTP surface: the peer-to-peer endpoints the
// poller and reconciler call on other nodes, and the dashboard/CLI endpoints
// a session token authenticates. There is no RPC framework here — every
// handler reads and writes plain JSON through gorilla/mux routing, matching
// a REST-style control plane rather than the teacher's gRPC service.
package api
