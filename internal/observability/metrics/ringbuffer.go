package metrics

import (
	"maps"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/pcmring/internal/ringbuffer"
)

// BufferSource is the read-only view of a ring buffer the collector needs
type BufferSource interface {
	Stats() ringbuffer.Stats
	Available() int
	Capacity() int
}

// RingBufferMetrics exports ring buffer state. Values are read from the
// tracked buffers at scrape time, so Push and Read never touch Prometheus.
type RingBufferMetrics struct {
	mu      sync.RWMutex
	sources map[string]BufferSource

	available *prometheus.Desc
	capacity  *prometheus.Desc
	pushed    *prometheus.Desc
	read      *prometheus.Desc
	overwrite *prometheus.Desc
	dropped   *prometheus.Desc
	discarded *prometheus.Desc
	underruns *prometheus.Desc
	flushes   *prometheus.Desc
	descs     []*prometheus.Desc
}

// NewRingBufferMetrics creates the collector and registers it with registry
func NewRingBufferMetrics(registry prometheus.Registerer) (*RingBufferMetrics, error) {
	m := newRingBufferMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func newRingBufferMetrics() *RingBufferMetrics {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "buffer", name),
			help,
			[]string{LabelSession},
			nil,
		)
	}

	m := &RingBufferMetrics{
		sources:   make(map[string]BufferSource),
		available: desc("available_bytes", "Unread bytes currently held by the ring buffer"),
		capacity:  desc("capacity_bytes", "Storage size of the ring buffer in bytes"),
		pushed:    desc("pushed_blocks_total", "Blocks written into the ring buffer"),
		read:      desc("read_blocks_total", "Blocks handed to the consumer"),
		overwrite: desc("overwritten_blocks_total", "Unread blocks lost to overwrite on overflow"),
		dropped:   desc("dropped_blocks_total", "Incoming blocks rejected on overflow"),
		discarded: desc("discarded_bytes_total", "Trailing partial-block bytes discarded on push"),
		underruns: desc("underruns_total", "Reads that returned less data than requested"),
		flushes:   desc("flushes_total", "Times the ring buffer was flushed"),
	}
	m.descs = []*prometheus.Desc{
		m.available, m.capacity, m.pushed, m.read, m.overwrite,
		m.dropped, m.discarded, m.underruns, m.flushes,
	}
	return m
}

// Track starts exporting src under the given session label
func (m *RingBufferMetrics) Track(session string, src BufferSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[session] = src
}

// Untrack stops exporting the session
func (m *RingBufferMetrics) Untrack(session string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, session)
}

// Sessions returns the tracked session labels in sorted order
func (m *RingBufferMetrics) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.sources))
}

// Describe implements the Collector interface
func (m *RingBufferMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range m.descs {
		ch <- d
	}
}

// Collect implements the Collector interface
func (m *RingBufferMetrics) Collect(ch chan<- prometheus.Metric) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for session, src := range m.sources {
		stats := src.Stats()
		gauge := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, session)
		}
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), session)
		}

		gauge(m.available, float64(src.Available()))
		gauge(m.capacity, float64(src.Capacity()))
		counter(m.pushed, stats.PushedBlocks)
		counter(m.read, stats.ReadBlocks)
		counter(m.overwrite, stats.OverwrittenBlocks)
		counter(m.dropped, stats.DroppedBlocks)
		counter(m.discarded, stats.DiscardedBytes)
		counter(m.underruns, stats.Underruns)
		counter(m.flushes, stats.Flushes)
	}
}

// BufferSnapshot is a point-in-time view of one tracked buffer
type BufferSnapshot struct {
	Session        string           `json:"session"`
	CapacityBytes  int              `json:"capacity_bytes"`
	AvailableBytes int              `json:"available_bytes"`
	Stats          ringbuffer.Stats `json:"stats"`
}

// Snapshot returns the state of every tracked buffer ordered by session
func (m *RingBufferMetrics) Snapshot() []BufferSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]BufferSnapshot, 0, len(m.sources))
	for _, session := range slices.Sorted(maps.Keys(m.sources)) {
		src := m.sources[session]
		out = append(out, BufferSnapshot{
			Session:        session,
			CapacityBytes:  src.Capacity(),
			AvailableBytes: src.Available(),
			Stats:          src.Stats(),
		})
	}
	return out
}
