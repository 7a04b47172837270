// Package security holds the two pieces of process-wide mutable state the
// design notes call out as legitimately global: the cluster shared secret
// (read-only after init, used to authenticate peer-to-peer HTTP calls) and
// the session token manager (used to authenticate dashboard/CLI calls).
//
// Neither is a CA or a TLS identity; inter-node auth here is a bearer
// secret compared in constant time, not mTLS.
package security
