// Package testutil provides shared test utilities for pcmring.
// These helpers reduce duplication across test files.
package testutil

import (
	"crypto/md5" //nolint:gosec // FLAC STREAMINFO carries an MD5 of the samples
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// DefaultTestTimeout is the standard timeout for async test operations.
const DefaultTestTimeout = 5 * time.Second

// flacBlockSize is the frame length WriteFLAC encodes
const flacBlockSize = 256

// FLAC frame header sample rate codes
var flacRateCodes = map[int]byte{
	8000: 0x4, 16000: 0x5, 22050: 0x6, 24000: 0x7,
	32000: 0x8, 44100: 0x9, 48000: 0xA, 96000: 0xB,
}

// FLAC frame header sample size codes
var flacDepthCodes = map[int]byte{16: 0x4, 24: 0x6}

// WaitForChannel waits for a signal on the channel or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// WriteFLAC writes interleaved samples as a FLAC file of verbatim frames
// and returns its path. Rates and depths outside the frame header tables
// fail the test.
func WriteFLAC(t *testing.T, sampleRate, channels, bitDepth int, samples []int) string {
	t.Helper()

	rateCode, ok := flacRateCodes[sampleRate]
	require.True(t, ok, "unsupported FLAC sample rate %d", sampleRate)
	depthCode, ok := flacDepthCodes[bitDepth]
	require.True(t, ok, "unsupported FLAC bit depth %d", bitDepth)
	require.True(t, channels >= 1 && channels <= 8, "unsupported FLAC channel count %d", channels)
	require.Zero(t, len(samples)%channels, "samples must hold whole frames")

	frames := len(samples) / channels
	bytesPerSample := bitDepth / 8

	// the MD5 covers the samples as signed little-endian integers
	sum := md5.New() //nolint:gosec // format-mandated checksum
	le := make([]byte, bytesPerSample)
	for _, v := range samples {
		for b := range bytesPerSample {
			le[b] = byte(v >> (8 * b))
		}
		sum.Write(le)
	}

	out := []byte("fLaC")

	// STREAMINFO, the only and therefore last metadata block
	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:], flacBlockSize)
	binary.BigEndian.PutUint16(info[2:], flacBlockSize)
	packed := uint64(sampleRate)<<44 |
		uint64(channels-1)<<41 |
		uint64(bitDepth-1)<<36 |
		uint64(frames)
	binary.BigEndian.PutUint64(info[10:], packed)
	copy(info[18:], sum.Sum(nil))
	out = append(out, 0x80, 0, 0, byte(len(info)))
	out = append(out, info...)

	for number, start := 0, 0; start < frames; number, start = number+1, start+flacBlockSize {
		require.Less(t, number, 128, "fixture too long for one-byte frame numbers")
		block := min(flacBlockSize, frames-start)

		frame := []byte{
			0xFF, 0xF8, // sync code, fixed block size
			0x7<<4 | rateCode, // 16-bit block size follows, sample rate
			byte(channels-1)<<4 | depthCode<<1,
			byte(number),
			byte((block - 1) >> 8), byte(block - 1),
		}
		frame = append(frame, crc8(frame))

		for ch := range channels {
			frame = append(frame, 0x02) // verbatim subframe, no wasted bits
			for i := range block {
				v := samples[(start+i)*channels+ch]
				for b := bytesPerSample - 1; b >= 0; b-- {
					frame = append(frame, byte(v>>(8*b)))
				}
			}
		}
		frame = binary.BigEndian.AppendUint16(frame, crc16(frame))
		out = append(out, frame...)
	}

	path := filepath.Join(t.TempDir(), "fixture.flac")
	require.NoError(t, os.WriteFile(path, out, 0o600))
	return path
}

func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
