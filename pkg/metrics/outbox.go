package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records publish outcomes for the outbox dispatcher.
type OutboxMetrics struct {
	published  *prometheus.CounterVec
	failed     *prometheus.CounterVec
	deadLetter *prometheus.CounterVec
	batchSize  prometheus.Histogram
}

// NewOutboxMetrics registers the outbox publisher metrics on the provided
// registerer. A nil registerer yields a no-op collector.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published",
		Help: "Outbox events delivered to the broker.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures",
		Help: "Transient outbox publish failures queued for retry.",
	}, []string{"event_type"})
	deadLetter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_dead_lettered",
		Help: "Outbox events moved to the DLQ.",
	}, []string{"event_type", "reason"})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_size",
		Help:    "Rows claimed per publish batch.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(published, failed, deadLetter, batchSize)
	return &OutboxMetrics{
		published:  published,
		failed:     failed,
		deadLetter: deadLetter,
		batchSize:  batchSize,
	}
}

// IncPublished counts a delivered event.
func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed counts a transient failure left for retry.
func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDeadLettered counts an event parked in the DLQ.
func (m *OutboxMetrics) IncDeadLettered(eventType, reason string) {
	if m == nil || m.deadLetter == nil {
		return
	}
	m.deadLetter.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}

// ObserveBatchSize records how many rows one batch claimed.
func (m *OutboxMetrics) ObserveBatchSize(n int) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}
