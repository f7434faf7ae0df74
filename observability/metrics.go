package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics bundles the collectors tracking the clearing engine's
// settlement cycle health: cycle outcomes, phase latency, stake flow, and
// the size of the order book feeding each cycle.
type SettlementMetrics struct {
	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	defaults      prometheus.Counter
	stakeSeized   *prometheus.CounterVec
	participants  prometheus.Gauge
}

var (
	settlementMetricsOnce sync.Once
	settlementRegistry    *SettlementMetrics
)

// Settlement returns the lazily-initialised singleton metrics registry for
// the settlement orchestrator.
func Settlement() *SettlementMetrics {
	settlementMetricsOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "clearing",
				Subsystem: "settlement",
				Name:      "cycles_total",
				Help:      "Count of settlement cycles segmented by terminal outcome.",
			}, []string{"outcome"}),
			cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "clearing",
				Subsystem: "settlement",
				Name:      "cycle_duration_seconds",
				Help:      "Wall-clock duration of a settlement cycle by phase.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"phase"}),
			defaults: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "clearing",
				Subsystem: "settlement",
				Name:      "participant_defaults_total",
				Help:      "Count of participants that failed to meet their pay-in during Phase 5.",
			}),
			stakeSeized: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "clearing",
				Subsystem: "settlement",
				Name:      "stake_seized_total",
				Help:      "Total stake seized from defaulters, by token.",
			}, []string{"token"}),
			participants: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "clearing",
				Subsystem: "settlement",
				Name:      "cycle_participants",
				Help:      "Number of distinct participants in the most recent cycle attempt.",
			}),
		}
		prometheus.MustRegister(
			settlementRegistry.cycles,
			settlementRegistry.cycleDuration,
			settlementRegistry.defaults,
			settlementRegistry.stakeSeized,
			settlementRegistry.participants,
		)
	})
	return settlementRegistry
}

// RecordOutcome increments the cycle counter for the given terminal outcome
// ("completed", "failed", "rolled_back", or "defaulted").
func (m *SettlementMetrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

// ObservePhase records how long a named phase took.
func (m *SettlementMetrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordDefault increments the participant-default counter.
func (m *SettlementMetrics) RecordDefault() {
	if m == nil {
		return
	}
	m.defaults.Inc()
}

// RecordSeizure adds to the seized-stake counter for a token.
func (m *SettlementMetrics) RecordSeizure(token string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.stakeSeized.WithLabelValues(token).Add(amount)
}

// SetParticipants records the size of the most recent cycle attempt.
func (m *SettlementMetrics) SetParticipants(n int) {
	if m == nil {
		return
	}
	m.participants.Set(float64(n))
}
