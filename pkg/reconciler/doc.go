// Package reconciler is C8, the heart of the core: a single-writer loop that
// periodically drives each locally-declared WolfRunService toward its
// desired replica count, restarts instances per policy, rebuilds the
// service's load-balancer rules, and garbage collects instances that have
// been unreachable too long.
//
// A tick never overlaps a prior tick still in flight; services within a
// tick are processed sequentially in the order §4.5 specifies. Every
// outbound call (to the local runtime adapter or a peer's HTTP API) is
// best-effort and bounded — a failure is logged and the affected service's
// state is left for the next tick to heal.
package reconciler
