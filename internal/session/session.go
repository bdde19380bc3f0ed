// Package session wires a packet source, a ring buffer and a consumer into
// one capture session. The source pushes on its own goroutine; the consumer
// pulls on another; the session owns the buffer and outlives both.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tphakala/pcmring/internal/capture"
	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
	"github.com/tphakala/pcmring/internal/observability/metrics"
	"github.com/tphakala/pcmring/internal/ringbuffer"
)

const componentSession = "session"

// ErrConsumerDone is returned by a consumer that finished its work. The
// session treats it as a clean end rather than a failure.
var ErrConsumerDone = errors.NewStd("consumer done")

// overflowWarnInterval bounds how often buffer loss is logged
const overflowWarnInterval = 5 * time.Second

// Reader is the pull side of the session buffer handed to consumers
type Reader interface {
	Read(p []byte) int
	Available() int
	Alignment() int
}

// Consumer drains the session buffer until ctx is cancelled. It should
// read what is left once ctx is done and then return.
type Consumer interface {
	Run(ctx context.Context, r Reader) error
}

// ConsumerFunc adapts a function to Consumer
type ConsumerFunc func(ctx context.Context, r Reader) error

// Run implements Consumer
func (f ConsumerFunc) Run(ctx context.Context, r Reader) error {
	return f(ctx, r)
}

// finisher is implemented by sources with a natural end, such as a
// non-looping WAV replay
type finisher interface {
	Done() <-chan struct{}
}

// flowControlled is implemented by sources that can wait for the consumer,
// such as unpaced file replay
type flowControlled interface {
	SetFlowControl(ready func(n int) bool)
}

// Config sizes the session buffer
type Config struct {
	BufferDuration time.Duration
	Overflow       ringbuffer.OverflowPolicy
}

// Option customizes a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(l logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithPacketRecorder sets the producer-side metrics hook
func WithPacketRecorder(r metrics.PacketRecorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithBufferMetrics exports the session buffer through m while the session
// runs
func WithBufferMetrics(m *metrics.RingBufferMetrics) Option {
	return func(s *Session) { s.bufferMetrics = m }
}

// WithID overrides the generated session ID
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session owns the ring buffer between one source and one consumer
type Session struct {
	id       string
	src      capture.PacketSource
	consumer Consumer
	buf      *ringbuffer.RingBuffer
	format   capture.Format

	log           logger.Logger
	recorder      metrics.PacketRecorder
	bufferMetrics *metrics.RingBufferMetrics
	partialWarn   *rate.Limiter
	overflowCheck rate.Sometimes

	running         atomic.Bool
	packets         atomic.Uint64
	lastOverwritten atomic.Uint64
}

// New builds a session whose buffer holds cfg.BufferDuration of the source
// format, rounded down to whole frames.
func New(cfg Config, src capture.PacketSource, consumer Consumer, opts ...Option) (*Session, error) {
	if src == nil || consumer == nil {
		return nil, errors.Newf("session needs a source and a consumer").
			Component(componentSession).
			Category(errors.CategoryValidation).
			Build()
	}

	format := src.Format()
	if err := format.Validate(); err != nil {
		return nil, err
	}

	capacity, err := bufferCapacity(cfg.BufferDuration, format)
	if err != nil {
		return nil, err
	}

	buf, err := ringbuffer.New(capacity, format.BlockAlign())
	if err != nil {
		return nil, err
	}
	buf.SetOverflow(cfg.Overflow)

	s := &Session{
		id:            uuid.NewString(),
		src:           src,
		consumer:      consumer,
		buf:           buf,
		format:        format,
		recorder:      metrics.NopRecorder{},
		partialWarn:   rate.NewLimiter(rate.Every(overflowWarnInterval), 1),
		overflowCheck: rate.Sometimes{Interval: overflowWarnInterval},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global()
	}
	s.log = s.log.Module(componentSession).With(logger.String("session_id", s.id))

	if fc, ok := src.(flowControlled); ok {
		fc.SetFlowControl(s.hasRoom)
	}

	s.log.Debug("session created",
		logger.String("format", format.String()),
		logger.Int("capacity_bytes", capacity),
		logger.Int("alignment", format.BlockAlign()),
		logger.String("overflow", cfg.Overflow.String()))

	return s, nil
}

// bufferCapacity converts a duration to a whole number of frames in bytes
func bufferCapacity(d time.Duration, f capture.Format) (int, error) {
	align := f.BlockAlign()
	bytes := int64(f.BytesPerSecond()) * int64(d) / int64(time.Second)
	capacity := int(bytes - bytes%int64(align))
	if capacity < 2*align {
		return 0, errors.Newf("buffer duration %s is too short for %s", d, f).
			Component(componentSession).
			Category(errors.CategoryConfiguration).
			Context("buffer_duration", d.String()).
			Build()
	}
	return capacity, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Buffer returns the session ring buffer
func (s *Session) Buffer() *ringbuffer.RingBuffer {
	return s.buf
}

// Format returns the source format
func (s *Session) Format() capture.Format {
	return s.format
}

// SetOverflow changes the buffer overflow policy while running
func (s *Session) SetOverflow(p ringbuffer.OverflowPolicy) {
	s.buf.SetOverflow(p)
	s.log.Info("overflow policy changed", logger.String("overflow", p.String()))
}

// Packets returns the number of packets received from the source
func (s *Session) Packets() uint64 {
	return s.packets.Load()
}

// Run starts the source and the consumer and blocks until ctx is cancelled,
// the consumer returns, or a finite source runs out. The source is always
// stopped before the consumer is asked to finish, so the consumer can drain
// everything that was captured. A session runs once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.Newf("session already started").
			Component(componentSession).
			Category(errors.CategoryState).
			Build()
	}

	if s.bufferMetrics != nil {
		s.bufferMetrics.Track(s.id, s.buf)
		defer s.bufferMetrics.Untrack(s.id)
	}
	if sm, ok := s.recorder.(*metrics.SessionMetrics); ok {
		sm.SessionStarted()
		defer sm.SessionEnded(s.id)
	}

	if err := s.src.Start(s.onPacket); err != nil {
		_ = s.src.Close()
		return errors.New(err).
			Component(componentSession).
			Category(errors.CategoryAudioSource).
			Priority(errors.PriorityHigh).
			Context("operation", "start_source").
			Build()
	}
	s.log.Info("session started")

	var sourceDone <-chan struct{}
	if f, ok := s.src.(finisher); ok {
		sourceDone = f.Done()
	}

	// the consumer context outlives ctx so that it is cancelled only after
	// the source has stopped
	consumerCtx, cancelConsumer := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelConsumer()
	consumerDone := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		defer close(consumerDone)
		err := s.consumer.Run(consumerCtx, s.buf)
		if errors.Is(err, ErrConsumerDone) {
			s.log.Info("consumer finished")
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-sourceDone:
			s.log.Info("source finished")
		case <-consumerDone:
		}
		err := s.src.Stop()
		cancelConsumer()
		return err
	})

	err := g.Wait()
	if closeErr := s.src.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	stats := s.buf.Stats()
	s.log.Info("session ended",
		logger.Uint64("packets", s.packets.Load()),
		logger.Uint64("pushed_blocks", stats.PushedBlocks),
		logger.Uint64("read_blocks", stats.ReadBlocks),
		logger.Uint64("overwritten_blocks", stats.OverwrittenBlocks),
		logger.Uint64("dropped_blocks", stats.DroppedBlocks),
		logger.Uint64("underruns", stats.Underruns))

	if err != nil {
		return errors.Wrap(err).
			Component(componentSession).
			Context("operation", "run").
			Build()
	}
	return nil
}

// onPacket copies a transient packet into the buffer on the source's
// goroutine. It never blocks on the consumer.
func (s *Session) onPacket(p capture.Packet) {
	stored := s.buf.Push(p.Data)
	s.packets.Add(1)

	whole := len(p.Data) - len(p.Data)%s.format.BlockAlign()
	partial := stored < whole
	s.recorder.RecordPacket(s.id, len(p.Data), stored, partial)

	if partial && s.partialWarn.Allow() {
		s.log.Warn("buffer full, incoming audio dropped",
			logger.Int("offered_bytes", whole),
			logger.Int("stored_bytes", stored),
			logger.String("overflow", s.buf.Overflow().String()))
	}

	s.overflowCheck.Do(s.checkOverwrites)
}

// hasRoom reports whether n bytes can be pushed without losing unread
// audio. An empty buffer always has room so packets larger than the buffer
// still flow.
func (s *Session) hasRoom(n int) bool {
	avail := s.buf.Available()
	return avail == 0 || s.buf.Capacity()-s.buf.Alignment()-avail >= n
}

// checkOverwrites logs when unread audio was overwritten since the last
// check
func (s *Session) checkOverwrites() {
	total := s.buf.Stats().OverwrittenBlocks
	last := s.lastOverwritten.Swap(total)
	if total > last {
		s.log.Warn("buffer overflow, unread audio overwritten",
			logger.Uint64("overwritten_blocks", total-last),
			logger.Duration("overwritten", s.blocksDuration(total-last)))
	}
}

func (s *Session) blocksDuration(blocks uint64) time.Duration {
	return time.Duration(blocks) * time.Second / time.Duration(s.format.SampleRate)
}
