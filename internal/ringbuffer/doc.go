// Package ringbuffer implements a fixed-capacity, block-aligned byte ring
// that sits between an audio capture callback and a consumer draining whole
// blocks at its own cadence.
//
// # Blocks
//
// Storage is divided into blocks of Alignment bytes, typically one
// multi-channel sample frame (bytes per sample × channels). Push and Read
// always move whole blocks; trailing partial blocks of a push are discarded.
//
// # Capacity
//
// A ring of N blocks holds at most N-1 readable blocks: equal read and push
// cursors mean empty, so one block is never readable.
//
// # Overflow
//
// KeepPushing overwrites the oldest unread data. When a single push is
// larger than the whole ring, only its newest blocks are kept. IgnorePushing
// keeps unread data and drops the part of a push that does not fit. An empty
// ring always accepts a push as under KeepPushing.
//
// # Concurrency
//
// Every method takes a single per-buffer mutex for its whole body. A producer
// and a consumer may call into the same buffer from different goroutines; the
// position pair and the overflow policy are always observed together. No
// method blocks waiting for data or space, allocates, or performs I/O.
package ringbuffer
