package capture

import "fmt"

// Format describes interleaved little-endian integer PCM
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// BlockAlign returns the size of one frame in bytes, the unit the ring
// buffer stores and returns.
func (f Format) BlockAlign() int {
	return f.BitDepth / 8 * f.Channels
}

// BytesPerSecond returns the data rate of the format
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.BlockAlign()
}

// Validate checks that the format can be carried as whole-byte PCM frames
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return newFormatError(f, "sample rate must be positive")
	case f.Channels <= 0:
		return newFormatError(f, "channel count must be positive")
	case f.BitDepth != 16 && f.BitDepth != 24 && f.BitDepth != 32:
		return newFormatError(f, "bit depth must be 16, 24 or 32")
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}
