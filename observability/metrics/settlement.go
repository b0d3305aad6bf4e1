package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks engine operations.
type SettlementMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	settled    *prometheus.CounterVec
	volume     *prometheus.CounterVec
	fees       prometheus.Counter
}

var (
	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// Settlement returns the process-wide settlement registry.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "intent_operations_total",
				Help: "Engine operations by name and error class. Successful operations use class \"ok\".",
			}, []string{"operation", "class"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "intent_operation_duration_seconds",
				Help:    "Time spent inside the engine per operation, including commit.",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation"}),
			settled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "intent_settled_total",
				Help: "Settled intents by kind and venue.",
			}, []string{"kind", "venue"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "intent_settled_volume",
				Help: "Gross amount of settled intents in base units, by kind.",
			}, []string{"kind"}),
			fees: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "intent_fees_collected",
				Help: "Protocol fees moved to the treasury, in base units.",
			}),
		}
		prometheus.MustRegister(
			settlementRegistry.operations,
			settlementRegistry.latency,
			settlementRegistry.settled,
			settlementRegistry.volume,
			settlementRegistry.fees,
		)
	})
	return settlementRegistry
}

// ObserveOperation records one engine call. class is "ok" on success.
func (m *SettlementMetrics) ObserveOperation(operation, class string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, class).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordSettlement records a settled intent.
func (m *SettlementMetrics) RecordSettlement(kind, venue string, amount, fee uint64) {
	if m == nil {
		return
	}
	m.settled.WithLabelValues(kind, venue).Inc()
	m.volume.WithLabelValues(kind).Add(float64(amount))
	m.fees.Add(float64(fee))
}
