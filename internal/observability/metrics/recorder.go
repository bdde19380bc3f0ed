// Package metrics provides custom Prometheus metrics for pcmring.
package metrics

// PacketRecorder is the producer-side metrics hook of a session. Components
// depend on this interface rather than on SessionMetrics so tests can pass
// a fake.
type PacketRecorder interface {
	// RecordPacket records one packet of offered bytes of which stored
	// bytes reached the ring. partial is set when whole blocks were refused.
	RecordPacket(session string, offered, stored int, partial bool)
}

// NopRecorder discards everything
type NopRecorder struct{}

// RecordPacket implements PacketRecorder
func (NopRecorder) RecordPacket(string, int, int, bool) {}
