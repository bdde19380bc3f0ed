package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics contains Prometheus metrics for the producer side of
// capture sessions
type SessionMetrics struct {
	packetsTotal     *prometheus.CounterVec
	packetBytesTotal *prometheus.CounterVec
	storedBytesTotal *prometheus.CounterVec
	packetSize       *prometheus.HistogramVec
	activeSessions   prometheus.Gauge

	collectors []prometheus.Collector
}

// NewSessionMetrics creates and registers new session metrics
func NewSessionMetrics(registry prometheus.Registerer) (*SessionMetrics, error) {
	m := &SessionMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SessionMetrics) initMetrics() {
	m.packetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "packets_total",
			Help:      "Packets received from the audio source",
		},
		[]string{LabelSession, LabelOutcome},
	)

	m.packetBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "packet_bytes_total",
			Help:      "Bytes offered to the ring buffer",
		},
		[]string{LabelSession},
	)

	m.storedBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "stored_bytes_total",
			Help:      "Bytes the ring buffer accepted",
		},
		[]string{LabelSession},
	)

	m.packetSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "packet_size_bytes",
			Help:      "Size distribution of source packets",
			Buckets:   prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount12),
		},
		[]string{LabelSession},
	)

	m.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions currently running",
	})

	m.collectors = []prometheus.Collector{
		m.packetsTotal,
		m.packetBytesTotal,
		m.storedBytesTotal,
		m.packetSize,
		m.activeSessions,
	}
}

// Describe implements the Collector interface
func (m *SessionMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *SessionMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordPacket implements PacketRecorder
func (m *SessionMetrics) RecordPacket(session string, offered, stored int, partial bool) {
	outcome := OutcomeStored
	if partial {
		outcome = OutcomePartial
	}
	m.packetsTotal.WithLabelValues(session, outcome).Inc()
	m.packetBytesTotal.WithLabelValues(session).Add(float64(offered))
	m.storedBytesTotal.WithLabelValues(session).Add(float64(stored))
	m.packetSize.WithLabelValues(session).Observe(float64(offered))
}

// SessionStarted increments the active session gauge
func (m *SessionMetrics) SessionStarted() {
	m.activeSessions.Inc()
}

// SessionEnded decrements the active session gauge and drops the session's
// series
func (m *SessionMetrics) SessionEnded(session string) {
	m.activeSessions.Dec()
	m.packetsTotal.DeletePartialMatch(prometheus.Labels{LabelSession: session})
	m.packetBytesTotal.DeleteLabelValues(session)
	m.storedBytesTotal.DeleteLabelValues(session)
	m.packetSize.DeleteLabelValues(session)
}
