package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Buffers  *metrics.RingBufferMetrics
	Sessions *metrics.SessionMetrics
}

// NewMetrics creates a registry with the process and Go runtime collectors
// and all pcmring collectors registered on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, wrapMetricsError(err, "go_collector")
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, wrapMetricsError(err, "process_collector")
	}

	buffers, err := metrics.NewRingBufferMetrics(registry)
	if err != nil {
		return nil, wrapMetricsError(err, "ringbuffer_metrics")
	}

	sessions, err := metrics.NewSessionMetrics(registry)
	if err != nil {
		return nil, wrapMetricsError(err, "session_metrics")
	}

	return &Metrics{
		registry: registry,
		Buffers:  buffers,
		Sessions: sessions,
	}, nil
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the registry in exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

func wrapMetricsError(err error, collector string) error {
	return errors.New(err).
		Component("observability").
		Category(errors.CategorySystem).
		Context("collector", collector).
		Build()
}
