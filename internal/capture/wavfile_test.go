package capture

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/pcmring/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeTestWAV writes frames of a counting ramp and returns the samples
func writeTestWAV(t *testing.T, format Format, frames int) (string, []int) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ramp.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	samples := make([]int, frames*format.Channels)
	for i := range samples {
		samples[i] = i - len(samples)/2
	}

	enc := wav.NewEncoder(f, format.SampleRate, format.BitDepth, format.Channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: format.SampleRate, NumChannels: format.Channels},
		SourceBitDepth: format.BitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	return path, samples
}

type packetCollector struct {
	mu      sync.Mutex
	data    []byte
	packets int
	frames  uint32
}

func (c *packetCollector) handle(p Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, p.Data...)
	c.packets++
	c.frames += p.Frames
}

func (c *packetCollector) snapshot() ([]byte, int, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...), c.packets, c.frames
}

func TestWAVSourceReplaysFile(t *testing.T) {
	t.Parallel()

	tests := []Format{
		{SampleRate: 8000, Channels: 1, BitDepth: 16},
		{SampleRate: 8000, Channels: 2, BitDepth: 16},
		{SampleRate: 8000, Channels: 2, BitDepth: 24},
	}

	for _, format := range tests {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()

			path, samples := writeTestWAV(t, format, 1000)
			src, err := NewWAVSource(FileConfig{Path: path, PacketFrames: 160, Logger: logger.NewNop()})
			require.NoError(t, err)
			t.Cleanup(func() { _ = src.Close() })
			assert.Equal(t, format, src.Format())

			var c packetCollector
			require.NoError(t, src.Start(c.handle))

			select {
			case <-src.Done():
			case <-time.After(5 * time.Second):
				t.Fatal("replay did not finish")
			}
			require.NoError(t, src.Stop())

			data, packets, frames := c.snapshot()
			want := make([]byte, len(samples)*format.BitDepth/8)
			encodePCM(want, samples, format.BitDepth/8)

			assert.Equal(t, want, data)
			assert.Equal(t, 7, packets, "1000 frames in packets of 160")
			assert.EqualValues(t, 1000, frames)
		})
	}
}

func TestWAVSourceRealtimePacing(t *testing.T) {
	t.Parallel()

	format := Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	path, _ := writeTestWAV(t, format, 800)
	src, err := NewWAVSource(FileConfig{Path: path, PacketFrames: 80, Realtime: true, Logger: logger.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	var c packetCollector
	start := time.Now()
	require.NoError(t, src.Start(c.handle))
	<-src.Done()
	elapsed := time.Since(start)

	// ten packets of 10 ms each
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
	_, packets, _ := c.snapshot()
	assert.Equal(t, 10, packets)
}

func TestWAVSourceLoops(t *testing.T) {
	t.Parallel()

	format := Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	path, _ := writeTestWAV(t, format, 100)
	src, err := NewWAVSource(FileConfig{Path: path, PacketFrames: 100, Loop: true, Logger: logger.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	var c packetCollector
	require.NoError(t, src.Start(c.handle))
	require.Eventually(t, func() bool {
		_, packets, _ := c.snapshot()
		return packets >= 5
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, src.Stop())

	data, _, _ := c.snapshot()
	assert.Equal(t, data[:200], data[200:400], "each loop replays the same samples")

	select {
	case <-src.Done():
		t.Fatal("looping source must not finish")
	default:
	}
}

func TestWAVSourceLifecycle(t *testing.T) {
	t.Parallel()

	format := Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	path, _ := writeTestWAV(t, format, 100)
	src, err := NewWAVSource(FileConfig{Path: path, Loop: true, Realtime: true, Logger: logger.NewNop()})
	require.NoError(t, err)

	require.NoError(t, src.Start(func(Packet) {}))
	assert.ErrorIs(t, src.Start(func(Packet) {}), ErrAlreadyRunning)

	require.NoError(t, src.Stop())
	require.NoError(t, src.Stop())

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.ErrorIs(t, src.Start(func(Packet) {}), ErrClosed)
}

func TestNewWAVSourceErrors(t *testing.T) {
	t.Parallel()

	_, err := NewWAVSource(FileConfig{Path: filepath.Join(t.TempDir(), "missing.wav")})
	require.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("definitely not a riff file"), 0o600))
	_, err = NewWAVSource(FileConfig{Path: bogus})
	require.Error(t, err)
}

func TestWAVSourceFlowControl(t *testing.T) {
	t.Parallel()

	format := Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	path, _ := writeTestWAV(t, format, 1000)
	src, err := NewWAVSource(FileConfig{Path: path, PacketFrames: 100, Logger: logger.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	var open atomic.Bool
	var asked atomic.Int64
	src.SetFlowControl(func(n int) bool {
		asked.Store(int64(n))
		return open.Load()
	})

	var c packetCollector
	require.NoError(t, src.Start(c.handle))
	require.Eventually(t, func() bool { return asked.Load() == 200 }, 5*time.Second, time.Millisecond,
		"replay asks for room for one whole packet")
	time.Sleep(20 * time.Millisecond)
	_, packets, _ := c.snapshot()
	assert.Zero(t, packets, "no packet while the reader has no room")

	// a stop while waiting returns and keeps the file position
	require.NoError(t, src.Stop())
	open.Store(true)
	require.NoError(t, src.Start(c.handle))
	<-src.Done()

	_, packets, frames := c.snapshot()
	assert.Equal(t, 10, packets)
	assert.EqualValues(t, 1000, frames)
}

func TestWAVSourceRealtimeIgnoresFlowControl(t *testing.T) {
	t.Parallel()

	format := Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	path, _ := writeTestWAV(t, format, 160)
	src, err := NewWAVSource(FileConfig{Path: path, PacketFrames: 80, Realtime: true, Logger: logger.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	src.SetFlowControl(func(int) bool { return false })

	var c packetCollector
	require.NoError(t, src.Start(c.handle))
	<-src.Done()

	_, packets, _ := c.snapshot()
	assert.Equal(t, 2, packets, "paced replay models a device and never waits")
}
