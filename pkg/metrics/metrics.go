package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster registry (C4/C5)
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wolfstack_nodes_total",
			Help: "Cluster-visible nodes by node_type and online/offline",
		},
		[]string{"node_type", "status"},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wolfstack_peer_poll_duration_seconds",
			Help:    "Duration of a single peer /agent/status poll round",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wolfstack_peer_poll_failures_total",
			Help: "Peer poll attempts that returned an error or timed out, by peer node_id",
		},
		[]string{"node_id"},
	)

	// WolfRun service registry (C6)
	ServicesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wolfstack_services_total",
			Help: "Total number of wolfrun services",
		},
	)

	InstancesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wolfstack_instances_total",
			Help: "Service instances by status",
		},
		[]string{"status"},
	)

	// Scheduler (C7)
	SchedulingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wolfstack_scheduling_duration_seconds",
			Help:    "Duration of a single placement decision",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulingFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wolfstack_scheduling_failures_total",
			Help: "Placement attempts with no eligible node found",
		},
	)

	// Reconciler (C8)
	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wolfstack_reconcile_duration_seconds",
			Help:    "Duration of a single reconciler tick, by step",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	ReconcileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wolfstack_reconcile_errors_total",
			Help: "Reconciler tick errors by step",
		},
		[]string{"step"},
	)

	ReconcileSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wolfstack_reconcile_skipped_total",
			Help: "Ticks skipped because a prior tick was still running",
		},
	)

	// Load balancer (C9)
	LBRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wolfstack_lb_rebuild_duration_seconds",
			Help:    "Duration of an iptables DNAT rule rebuild for one VIP",
			Buckets: prometheus.DefBuckets,
		},
	)

	LBRulesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wolfstack_lb_rules_total",
			Help: "DNAT rules currently programmed across all service VIPs",
		},
	)

	// Container runtime adapters (C2)
	RuntimeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wolfstack_runtime_op_duration_seconds",
			Help:    "Duration of a container runtime adapter operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"runtime", "op"},
	)

	RuntimeOpErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wolfstack_runtime_op_errors_total",
			Help: "Container runtime adapter operations that returned an error",
		},
		[]string{"runtime", "op"},
	)

	// Host metrics sampler (C1)
	MetricsSampleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wolfstack_metrics_sample_duration_seconds",
			Help:    "Duration of a single local host metrics snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		NodesTotal,
		PollDuration,
		PollFailuresTotal,
		ServicesTotal,
		InstancesTotal,
		SchedulingDuration,
		SchedulingFailuresTotal,
		ReconcileDuration,
		ReconcileErrorsTotal,
		ReconcileSkippedTotal,
		LBRebuildDuration,
		LBRulesTotal,
		RuntimeOpDuration,
		RuntimeOpErrorsTotal,
		MetricsSampleDuration,
	)
}

// Handler returns the Prometheus scrape handler for GET /metrics/prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, started now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
