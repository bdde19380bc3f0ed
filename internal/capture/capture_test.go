package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
)

func TestFormatDerivedSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format         Format
		blockAlign     int
		bytesPerSecond int
	}{
		{Format{48000, 2, 16}, 4, 192000},
		{Format{44100, 1, 16}, 2, 88200},
		{Format{48000, 2, 24}, 6, 288000},
		{Format{96000, 8, 32}, 32, 3072000},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.blockAlign, tt.format.BlockAlign())
			assert.Equal(t, tt.bytesPerSecond, tt.format.BytesPerSecond())
			assert.NoError(t, tt.format.Validate())
		})
	}
}

func TestFormatValidateRejects(t *testing.T) {
	t.Parallel()

	for _, f := range []Format{
		{0, 2, 16},
		{48000, 0, 16},
		{48000, 2, 8},
		{48000, 2, 12},
	} {
		err := f.Validate()
		require.Error(t, err, f.String())
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode(" Loopback ")
	require.NoError(t, err)
	assert.Equal(t, ModeLoopback, m)
	assert.Equal(t, malgo.Loopback, m.DeviceType())
	assert.Equal(t, malgo.Playback, m.enumerationType())

	m, err = ParseMode("capture")
	require.NoError(t, err)
	assert.Equal(t, malgo.Capture, m.DeviceType())
	assert.Equal(t, malgo.Capture, m.enumerationType())

	_, err = ParseMode("monitor")
	assert.Error(t, err)
}

func TestSelectDevice(t *testing.T) {
	t.Parallel()

	devices := []DeviceInfo{
		{Index: 0, Name: "HDA Intel PCH: ALC892 Analog", ID: ":0,0"},
		{Index: 1, Name: "USB Audio Device", ID: ":1,0", Default: true},
		{Index: 2, Name: "Loopback: PCM", ID: ":2,0"},
	}

	tests := []struct {
		name    string
		query   string
		want    int
		wantErr bool
	}{
		{"empty picks default", "", 1, false},
		{"default keyword", "default", 1, false},
		{"exact name", "Loopback: PCM", 2, false},
		{"exact id", ":0,0", 0, false},
		{"substring", "USB", 1, false},
		{"no match", "Bluetooth", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := selectDevice(devices, tt.query)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoDevice)
				assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectDeviceFallsBackToFirst(t *testing.T) {
	t.Parallel()

	got, err := selectDevice([]DeviceInfo{{Name: "a"}, {Name: "b"}}, "")
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = selectDevice(nil, "")
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestMalgoFormat(t *testing.T) {
	t.Parallel()

	for depth, want := range map[int]malgo.FormatType{
		16: malgo.FormatS16,
		24: malgo.FormatS24,
		32: malgo.FormatS32,
	} {
		got, err := MalgoFormat(depth)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := MalgoFormat(8)
	assert.Error(t, err)
}

func TestHexToASCII(t *testing.T) {
	t.Parallel()

	got, err := hexToASCII("3a312c3000000000")
	require.NoError(t, err)
	assert.Equal(t, ":1,0", got)

	_, err = hexToASCII("zz")
	assert.Error(t, err)
}

func TestNewMalgoSourceValidation(t *testing.T) {
	t.Parallel()

	_, err := NewMalgoSource(MalgoConfig{Mode: ModePlayback, Format: Format{48000, 2, 16}})
	require.Error(t, err)

	_, err = NewMalgoSource(MalgoConfig{Format: Format{48000, 2, 8}})
	require.Error(t, err)

	src, err := NewMalgoSource(MalgoConfig{Format: Format{48000, 2, 16}})
	require.NoError(t, err)
	assert.Equal(t, Format{48000, 2, 16}, src.Format())
	assert.Equal(t, ModeCapture, src.config.Mode)
	assert.Equal(t, DefaultRestartDelay, src.config.RestartDelay)

	// stop before start is a no-op, and a closed source refuses to start
	require.NoError(t, src.Stop())
	require.NoError(t, src.Close())
	err = src.Start(func(Packet) {})
	require.ErrorIs(t, err, ErrClosed)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestMalgoStopRacesDeviceStopCallback(t *testing.T) {
	t.Parallel()

	// run with -race: a restart scheduled while Stop waits is a WaitGroup
	// misuse the detector reports
	for range 200 {
		src, err := NewMalgoSource(MalgoConfig{
			Format:       Format{48000, 2, 16},
			RestartDelay: time.Hour,
			Logger:       logger.NewNop(),
		})
		require.NoError(t, err)
		src.quit = make(chan struct{})
		src.running.Store(true)

		var wg sync.WaitGroup
		wg.Go(src.onDeviceStop)
		require.NoError(t, src.Stop())
		wg.Wait()

		assert.False(t, src.running.Load())
		restarted := src.restarted.Load()
		src.onDeviceStop()
		assert.Equal(t, restarted, src.restarted.Load(), "a stop callback after Stop is ignored")
	}
}

func TestMalgoStopWaitsForScheduledRestart(t *testing.T) {
	t.Parallel()

	src, err := NewMalgoSource(MalgoConfig{
		Format:       Format{48000, 2, 16},
		RestartDelay: time.Hour,
		Logger:       logger.NewNop(),
	})
	require.NoError(t, err)
	src.quit = make(chan struct{})
	src.running.Store(true)

	src.onDeviceStop()
	assert.True(t, src.restarted.Load(), "an unexpected stop schedules one restart")

	stopped := make(chan struct{})
	go func() {
		_ = src.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not cancel the pending restart")
	}
}

func TestEncodePCM(t *testing.T) {
	t.Parallel()

	dst := make([]byte, 12)
	n := encodePCM(dst, []int{1, -1, 0x123456, -2}, 3)
	require.Equal(t, 12, n)
	assert.Equal(t, []byte{
		0x01, 0x00, 0x00,
		0xFF, 0xFF, 0xFF,
		0x56, 0x34, 0x12,
		0xFE, 0xFF, 0xFF,
	}, dst)
}
