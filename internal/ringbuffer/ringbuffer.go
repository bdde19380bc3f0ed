package ringbuffer

import (
	"sync"

	"github.com/tphakala/pcmring/internal/errors"
)

// Stats is a snapshot of buffer activity since construction.
type Stats struct {
	PushedBlocks      uint64 `json:"pushed_blocks"`      // blocks written into storage
	ReadBlocks        uint64 `json:"read_blocks"`        // blocks handed to readers
	OverwrittenBlocks uint64 `json:"overwritten_blocks"` // blocks lost to KeepPushing overflow
	DroppedBlocks     uint64 `json:"dropped_blocks"`     // blocks rejected by IgnorePushing
	DiscardedBytes    uint64 `json:"discarded_bytes"`    // trailing partial-block bytes of pushes
	Underruns         uint64 `json:"underruns"`          // reads that returned fewer blocks than requested
	Flushes           uint64 `json:"flushes"`
}

// RingBuffer is a fixed-capacity circular byte buffer that stores and
// returns whole blocks of Alignment bytes.
type RingBuffer struct {
	storage   []byte
	alignment int
	blocks    int

	mu      sync.Mutex
	pushPos int // next block to write, in [0, blocks)
	readPos int // next block to read, in [0, blocks)
	policy  OverflowPolicy
	stats   Stats
}

// New creates a ring of capacity bytes made of alignment-sized blocks.
// capacity must be a positive multiple of a positive alignment.
func New(capacity, alignment int) (*RingBuffer, error) {
	if capacity <= 0 || alignment <= 0 || capacity%alignment != 0 {
		return nil, errors.Newf("%w: capacity %d is not a positive multiple of alignment %d",
			ErrInvalidConfiguration, capacity, alignment).
			Component(componentRingBuffer).
			Category(errors.CategoryConfiguration).
			Context("capacity", capacity).
			Context("alignment", alignment).
			Build()
	}

	return &RingBuffer{
		storage:   make([]byte, capacity),
		alignment: alignment,
		blocks:    capacity / alignment,
		policy:    KeepPushing,
	}, nil
}

// Capacity returns the storage size in bytes
func (rb *RingBuffer) Capacity() int {
	return len(rb.storage)
}

// Alignment returns the block size in bytes
func (rb *RingBuffer) Alignment() int {
	return rb.alignment
}

// Overflow returns the current overflow policy
func (rb *RingBuffer) Overflow() OverflowPolicy {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.policy
}

// SetOverflow changes the overflow policy, effective for the next Push
func (rb *RingBuffer) SetOverflow(policy OverflowPolicy) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.policy = policy
}

// Available returns the number of unread bytes. The value is a snapshot and
// may be stale as soon as it is returned.
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.writtenLocked() * rb.alignment
}

// Stats returns a snapshot of the activity counters
func (rb *RingBuffer) Stats() Stats {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.stats
}

// Flush discards all unread data
func (rb *RingBuffer) Flush() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = rb.pushPos
	rb.stats.Flushes++
}

// Push copies the whole blocks of p into the ring and returns the number of
// bytes stored. Trailing bytes that do not fill a block are discarded. p is
// not retained.
func (rb *RingBuffer) Push(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	requested := len(p) / rb.alignment
	rb.stats.DiscardedBytes += uint64(len(p) % rb.alignment)
	if requested == 0 {
		return 0
	}

	written := rb.writtenLocked()
	n := requested
	skip := 0 // leading source blocks not copied
	overwrite := rb.policy == KeepPushing || written == 0

	if overwrite {
		if n > rb.blocks {
			skip = n - rb.blocks
			n = rb.blocks
		}
	} else {
		n = min(n, rb.blocks-written-1)
		rb.stats.DroppedBlocks += uint64(requested - n)
		if n == 0 {
			return 0
		}
	}

	src := p[skip*rb.alignment : (skip+n)*rb.alignment]
	first := min(n, rb.blocks-rb.pushPos) * rb.alignment
	copy(rb.storage[rb.pushPos*rb.alignment:], src[:first])
	copy(rb.storage, src[first:])

	rb.advancePushLocked(written, n)
	rb.stats.PushedBlocks += uint64(n)
	if overwrite {
		rb.stats.OverwrittenBlocks += uint64(written + requested - rb.writtenLocked())
	}

	return n * rb.alignment
}

// Read copies as many whole blocks as fit in p and are available, and
// returns the number of bytes copied. It never blocks; an empty ring
// returns 0.
func (rb *RingBuffer) Read(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	requested := len(p) / rb.alignment
	n := min(requested, rb.writtenLocked())
	if n < requested {
		rb.stats.Underruns++
	}
	if n == 0 {
		return 0
	}

	size := n * rb.alignment
	start := rb.readPos * rb.alignment
	first := min(n, rb.blocks-rb.readPos) * rb.alignment
	copy(p[:first], rb.storage[start:start+first])
	copy(p[first:size], rb.storage[:size-first])

	rb.readPos = (rb.readPos + n) % rb.blocks
	rb.stats.ReadBlocks += uint64(n)

	return size
}

// ReadInto reads up to length bytes into dst starting at offset. length is
// clamped to the space left in dst; an offset outside dst reads nothing.
func (rb *RingBuffer) ReadInto(dst []byte, offset, length int) int {
	if offset < 0 || offset > len(dst) || length <= 0 {
		return 0
	}
	end := offset + min(length, len(dst)-offset)
	return rb.Read(dst[offset:end])
}

// writtenLocked returns the number of unread blocks. Caller holds mu.
func (rb *RingBuffer) writtenLocked() int {
	return (rb.blocks + rb.pushPos - rb.readPos) % rb.blocks
}

// advancePushLocked moves the push cursor by n blocks. If the ring fills up,
// the read cursor is moved one block past the push cursor so the newest
// blocks-1 blocks stay readable. Caller holds mu.
func (rb *RingBuffer) advancePushLocked(written, n int) {
	full := written+n >= rb.blocks
	rb.pushPos = (rb.pushPos + n) % rb.blocks
	if full {
		rb.readPos = (rb.pushPos + 1) % rb.blocks
	}
}
