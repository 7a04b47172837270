/*
Package types defines the data structures shared by every other package in
wolfstack: the cluster registry's Node, the metrics sampler's SystemMetrics,
and the service orchestrator's WolfRunService / ServiceInstance.

These types carry no behavior beyond small pure helpers (Online, ClampReplicas)
— mutation and I/O live in the packages that own each registry.
*/
package types
