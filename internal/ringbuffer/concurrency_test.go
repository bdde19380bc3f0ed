package ringbuffer

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestConcurrentProducerConsumer runs a producer and a consumer on separate
// goroutines. Each block carries its sequence number, so the consumer can
// check that blocks arrive in order with only overwrite gaps.
func TestConcurrentProducerConsumer(t *testing.T) {
	t.Parallel()

	const (
		alignment = 8
		total     = 20000
	)

	rb := mustNew(t, 64*alignment, alignment)

	var done atomic.Bool
	var wg sync.WaitGroup

	wg.Go(func() {
		defer done.Store(true)
		block := make([]byte, alignment)
		for seq := range total {
			putSeq(block, uint64(seq)+1)
			rb.Push(block)
		}
	})

	var received int
	var outOfOrder int
	wg.Go(func() {
		buf := make([]byte, 16*alignment)
		var last uint64
		for {
			finished := done.Load()
			n := rb.Read(buf)
			for off := 0; off < n; off += alignment {
				seq := getSeq(buf[off : off+alignment])
				if seq <= last {
					outOfOrder++
				}
				last = seq
				received++
			}
			if finished && n == 0 {
				return
			}
		}
	})

	wg.Wait()

	assert.Zero(t, outOfOrder)
	stats := rb.Stats()
	assert.EqualValues(t, total, stats.PushedBlocks)
	assert.EqualValues(t, received, stats.ReadBlocks)
	assert.EqualValues(t, total, stats.ReadBlocks+stats.OverwrittenBlocks)
}

func TestConcurrentIgnorePushingNeverOverwrites(t *testing.T) {
	t.Parallel()

	const alignment = 4
	rb := mustNew(t, 32*alignment, alignment)
	rb.SetOverflow(IgnorePushing)

	var pushed atomic.Uint64
	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			block := make([]byte, 3*alignment)
			for range 1000 {
				pushed.Add(uint64(rb.Push(block) / alignment))
			}
		})
	}
	wg.Go(func() {
		buf := make([]byte, 5*alignment)
		for range 2000 {
			rb.Read(buf)
		}
	})
	wg.Wait()

	stats := rb.Stats()
	require.Zero(t, stats.OverwrittenBlocks)
	assert.Equal(t, pushed.Load(), stats.PushedBlocks)
	assert.EqualValues(t, 4*1000*3, stats.PushedBlocks+stats.DroppedBlocks)
	assert.Equal(t, int(stats.PushedBlocks-stats.ReadBlocks)*alignment, rb.Available())
}

// TestConcurrentPushFlushRead interleaves odd-sized pushes, flushes and
// partial-block reads. Every read returns whole blocks, the readable span
// never exceeds blocks-1, and flushes only ever drop data.
func TestConcurrentPushFlushRead(t *testing.T) {
	t.Parallel()

	for _, policy := range []OverflowPolicy{KeepPushing, IgnorePushing} {
		t.Run(policy.String(), func(t *testing.T) {
			t.Parallel()

			const (
				alignment = 8
				blocks    = 16
				rounds    = 5000
			)
			maxAvailable := (blocks - 1) * alignment

			rb := mustNew(t, blocks*alignment, alignment)
			rb.SetOverflow(policy)

			var done atomic.Bool
			var misaligned, outOfRange, outOfOrder atomic.Int64
			checkAvailable := func() {
				if a := rb.Available(); a < 0 || a > maxAvailable || a%alignment != 0 {
					outOfRange.Add(1)
				}
			}

			var wg sync.WaitGroup
			wg.Go(func() {
				defer done.Store(true)
				var seq uint64
				for i := range rounds {
					// 1 to 5 blocks plus a ragged tail the buffer discards
					count := i%5 + 1
					data := make([]byte, count*alignment+i%alignment)
					for b := range count {
						seq++
						putSeq(data[b*alignment:], seq)
					}
					rb.Push(data)
					checkAvailable()
				}
			})
			wg.Go(func() {
				for {
					rb.Flush()
					checkAvailable()
					if done.Load() {
						return
					}
				}
			})
			wg.Go(func() {
				buf := make([]byte, 7*alignment)
				var last uint64
				for i := 0; !done.Load() || rb.Available() > 0; i++ {
					// ask for a partial block on top of whole ones
					n := rb.Read(buf[:(i%6+1)*alignment+i%alignment])
					if n%alignment != 0 {
						misaligned.Add(1)
						continue
					}
					for off := 0; off < n; off += alignment {
						seq := getSeq(buf[off : off+alignment])
						if seq <= last {
							outOfOrder.Add(1)
						}
						last = seq
					}
					checkAvailable()
				}
			})
			wg.Wait()

			assert.Zero(t, misaligned.Load(), "reads must return whole blocks")
			assert.Zero(t, outOfRange.Load(), "available must stay within 0..(blocks-1)*alignment")
			assert.Zero(t, outOfOrder.Load(), "flushes drop blocks but never reorder them")

			stats := rb.Stats()
			assert.Positive(t, stats.Flushes)
			assert.LessOrEqual(t, stats.ReadBlocks, stats.PushedBlocks)
			assert.Equal(t, 0, rb.Available()%alignment)
		})
	}
}

func putSeq(b []byte, seq uint64) {
	for i := range 8 {
		b[i] = byte(seq >> (8 * i))
	}
}

func getSeq(b []byte) uint64 {
	var seq uint64
	for i := range 8 {
		seq |= uint64(b[i]) << (8 * i)
	}
	return seq
}
