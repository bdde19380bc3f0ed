package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMetricsRecordPacket(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewSessionMetrics(registry)
	require.NoError(t, err)

	m.SessionStarted()
	m.RecordPacket("s1", 1920, 1920, false)
	m.RecordPacket("s1", 1920, 1920, false)
	m.RecordPacket("s1", 1920, 640, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.packetsTotal.WithLabelValues("s1", OutcomeStored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.packetsTotal.WithLabelValues("s1", OutcomePartial)))
	assert.Equal(t, 5760.0, testutil.ToFloat64(m.packetBytesTotal.WithLabelValues("s1")))
	assert.Equal(t, 4480.0, testutil.ToFloat64(m.storedBytesTotal.WithLabelValues("s1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))

	m.SessionEnded("s1")
	assert.Zero(t, testutil.ToFloat64(m.activeSessions))
	assert.Zero(t, testutil.CollectAndCount(m, "pcmring_session_packets_total"))
}

func TestSessionMetricsDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewSessionMetrics(registry)
	require.NoError(t, err)
	_, err = NewSessionMetrics(registry)
	assert.Error(t, err)
}

func TestNopRecorder(t *testing.T) {
	t.Parallel()

	var r PacketRecorder = NopRecorder{}
	assert.NotPanics(t, func() { r.RecordPacket("x", 1, 1, false) })
}
