// Package capture provides the packet sources that feed a session's ring
// buffer: live devices through miniaudio and WAV or FLAC file replay.
package capture

import "time"

// Packet is one delivery of interleaved PCM from a source. Data is only
// valid for the duration of the handler call.
type Packet struct {
	Data      []byte
	Frames    uint32
	Timestamp time.Time
}

// PacketHandler receives packets on the source's own goroutine. It must
// copy what it needs and return quickly.
type PacketHandler func(Packet)

// PacketSource produces PCM packets until stopped
type PacketSource interface {
	// Start begins delivery to onPacket. Starting a running source fails.
	Start(onPacket PacketHandler) error
	// Stop halts delivery. Stopping a stopped source is a no-op.
	Stop() error
	// Close stops the source and releases its resources.
	Close() error
	// Format reports the layout of delivered data.
	Format() Format
}
