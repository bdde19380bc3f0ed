package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pcmring/internal/logger"
	"github.com/tphakala/pcmring/internal/testutil"
)

func rampSamples(n int) []int {
	samples := make([]int, n)
	for i := range samples {
		samples[i] = i*7 - n
	}
	return samples
}

func TestFLACSourceReplaysFile(t *testing.T) {
	t.Parallel()

	tests := []Format{
		{SampleRate: 8000, Channels: 1, BitDepth: 16},
		{SampleRate: 48000, Channels: 2, BitDepth: 16},
		{SampleRate: 16000, Channels: 2, BitDepth: 24},
	}

	for _, format := range tests {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()

			samples := rampSamples(1000 * format.Channels)
			path := testutil.WriteFLAC(t, format.SampleRate, format.Channels, format.BitDepth, samples)

			src, err := NewFLACSource(FileConfig{Path: path, PacketFrames: 160, Logger: logger.NewNop()})
			require.NoError(t, err)
			t.Cleanup(func() { _ = src.Close() })
			assert.Equal(t, format, src.Format())

			var c packetCollector
			require.NoError(t, src.Start(c.handle))
			testutil.WaitForChannel(t, src.Done(), testutil.DefaultTestTimeout, "replay did not finish")
			require.NoError(t, src.Stop())

			data, packets, frames := c.snapshot()
			want := make([]byte, len(samples)*format.BitDepth/8)
			encodePCM(want, samples, format.BitDepth/8)

			assert.Equal(t, want, data)
			assert.Equal(t, 7, packets, "packets span FLAC frame boundaries")
			assert.EqualValues(t, 1000, frames)
		})
	}
}

func TestFLACSourceLoops(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFLAC(t, 8000, 1, 16, rampSamples(100))
	src, err := NewFLACSource(FileConfig{Path: path, PacketFrames: 100, Loop: true, Logger: logger.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	var c packetCollector
	require.NoError(t, src.Start(c.handle))
	require.Eventually(t, func() bool {
		_, packets, _ := c.snapshot()
		return packets >= 3
	}, testutil.DefaultTestTimeout, time.Millisecond)
	require.NoError(t, src.Stop())

	data, _, _ := c.snapshot()
	assert.Equal(t, data[:200], data[200:400], "each loop replays the same samples")
}

func TestOpenFileDispatchesOnExtension(t *testing.T) {
	t.Parallel()

	flacPath := testutil.WriteFLAC(t, 8000, 1, 16, rampSamples(10))
	upper := filepath.Join(t.TempDir(), "UPPER.FLAC")
	data, err := os.ReadFile(flacPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(upper, data, 0o600))
	wavPath, _ := writeTestWAV(t, Format{SampleRate: 8000, Channels: 1, BitDepth: 16}, 10)

	for path, want := range map[string]PacketSource{
		flacPath: &FLACSource{},
		upper:    &FLACSource{},
		wavPath:  &WAVSource{},
	} {
		src, err := OpenFile(FileConfig{Path: path, Logger: logger.NewNop()})
		require.NoError(t, err, path)
		assert.IsType(t, want, src, path)
		require.NoError(t, src.Close())
	}
}

func TestNewFLACSourceErrors(t *testing.T) {
	t.Parallel()

	_, err := NewFLACSource(FileConfig{Path: filepath.Join(t.TempDir(), "missing.flac")})
	require.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.flac")
	require.NoError(t, os.WriteFile(bogus, []byte("definitely not a flac stream"), 0o600))
	_, err = NewFLACSource(FileConfig{Path: bogus})
	require.Error(t, err)

	// a WAV file under a FLAC name is rejected rather than replayed as noise
	wavPath, _ := writeTestWAV(t, Format{SampleRate: 8000, Channels: 1, BitDepth: 16}, 10)
	misnamed := filepath.Join(t.TempDir(), "misnamed.flac")
	data, err := os.ReadFile(wavPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(misnamed, data, 0o600))
	_, err = OpenFile(FileConfig{Path: misnamed})
	require.Error(t, err)
}
