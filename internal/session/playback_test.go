package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pcmring/internal/logger"
	"github.com/tphakala/pcmring/internal/ringbuffer"
)

func newTestPlayback(t *testing.T, gain float64) *Playback {
	t.Helper()
	p, err := NewPlayback(PlaybackConfig{Format: monoFormat, Gain: gain, Logger: logger.NewNop()})
	require.NoError(t, err)
	return p
}

func TestNewPlaybackValidation(t *testing.T) {
	t.Parallel()

	_, err := NewPlayback(PlaybackConfig{Format: monoFormat, Gain: -1})
	require.Error(t, err)

	_, err = NewPlayback(PlaybackConfig{Gain: 1})
	require.Error(t, err)
}

func TestPlaybackGain(t *testing.T) {
	t.Parallel()

	p := newTestPlayback(t, 0.5)
	assert.InDelta(t, 0.5, p.Gain(), 1e-12)
	p.SetGain(1.25)
	assert.InDelta(t, 1.25, p.Gain(), 1e-12)
}

func TestPlaybackRenderFullPeriod(t *testing.T) {
	t.Parallel()

	rb, err := ringbuffer.New(64, 2)
	require.NoError(t, err)
	rb.Push(pcm16(100, -200, 300, -400))

	p := newTestPlayback(t, 0.5)
	out := make([]byte, 8)
	p.render(out, rb)

	assert.Equal(t, pcm16(50, -100, 150, -200), out)
	assert.Zero(t, p.Underruns())
}

func TestPlaybackRenderPadsWithSilence(t *testing.T) {
	t.Parallel()

	rb, err := ringbuffer.New(64, 2)
	require.NoError(t, err)
	rb.Push(pcm16(7, 8))

	p := newTestPlayback(t, 1.0)
	out := pcm16(1, 1, 1, 1) // stale data from the previous period
	p.render(out, rb)

	assert.Equal(t, pcm16(7, 8, 0, 0), out)
	assert.EqualValues(t, 1, p.Underruns())
	assert.EqualValues(t, 4, p.silence.Load())

	p.render(out, rb)
	assert.Equal(t, pcm16(0, 0, 0, 0), out)
	assert.EqualValues(t, 2, p.Underruns())
	assert.EqualValues(t, 2, rb.Stats().Underruns)
}
