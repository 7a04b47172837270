// Package storage is a peripheral bbolt-backed sidecar, not the authoritative
// store for anything: it caches the last-known cluster registry snapshot so a
// restarted node has a warm peer list before its first poll cycle completes,
// and it keeps a bounded history of reconciliation ticks for operator
// inspection. The service registry's durable source of truth remains
// pkg/wolfrun's services.json file; this package never competes with it.
package storage
