package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks the number of successful lock acquisitions.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_acquire_total",
		Help: "Total number of successful lock acquisitions",
	})
	// ConflictCounter tracks conditional writes lost to another holder.
	ConflictCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_conflict_total",
		Help: "Total number of lock writes rejected by a store precondition",
	})
	// StealCounter tracks acquisitions that overwrote an expired lease.
	StealCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_steal_total",
		Help: "Total number of expired leases stolen",
	})
	// ReleaseCounter tracks the number of lock releases.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_release_total",
		Help: "Total number of lock releases",
	})
	// HeldGauge reports the number of leases currently held by this process.
	HeldGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lease_held_locks",
		Help: "Current number of leases held by this process",
	})
	// CacheHitCounter tracks get-or-create calls served without locking.
	CacheHitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_cache_hits_total",
		Help: "Total number of get-or-create calls served from an existing object",
	})
	// FillCounter tracks get-or-create calls that ran the producer.
	FillCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_cache_fills_total",
		Help: "Total number of get-or-create calls that produced the object",
	})
	// DedupCounter tracks get-or-create calls that read another producer's result.
	DedupCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_cache_dedup_total",
		Help: "Total number of get-or-create calls deduplicated onto another producer's result",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers lease core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		AcquireCounter, ConflictCounter, StealCounter, ReleaseCounter,
		HeldGauge, CacheHitCounter, FillCounter, DedupCounter,
	)
}
