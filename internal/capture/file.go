package capture

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
)

// DefaultPacketFrames is 10 ms at 48 kHz
const DefaultPacketFrames = 480

// flowControlPoll is how often unpaced replay rechecks a full buffer
const flowControlPoll = time.Millisecond

// FileConfig configures a file replay source
type FileConfig struct {
	Path         string
	PacketFrames int  // frames per packet
	Realtime     bool // pace packets at the file's sample rate
	Loop         bool // restart from the beginning at end of file
	Logger       logger.Logger
}

// pcmDecoder reads little-endian integer PCM from an open audio file
type pcmDecoder interface {
	// read fills dst with whole frames and returns the number of bytes
	// written. Zero bytes with a nil error means end of file.
	read(dst []byte) (int, error)
	// rewind restarts decoding at the first sample
	rewind(file *os.File) error
}

// fileSource replays a decoded audio file as a packet stream. Unpaced
// replay honors flow control so a fast file does not overrun its reader.
type fileSource struct {
	config FileConfig
	format Format
	kind   string
	log    logger.Logger

	mu      sync.Mutex
	file    *os.File
	decoder pcmDecoder
	ready   func(n int) bool
	quit    chan struct{}
	running bool
	closed  bool
	wg      sync.WaitGroup

	done     chan struct{}
	doneOnce sync.Once
}

// OpenFile opens a WAV or FLAC file by extension
func OpenFile(config FileConfig) (PacketSource, error) {
	if strings.EqualFold(filepath.Ext(config.Path), ".flac") {
		src, err := NewFLACSource(config)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	src, err := NewWAVSource(config)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func openFile(config FileConfig, kind string) (*os.File, error) {
	file, err := os.Open(config.Path)
	if err != nil {
		return nil, errors.New(err).
			Component(componentCapture).
			Category(errors.CategoryFileIO).
			FileContext(config.Path).
			Context("operation", "open_"+kind).
			Build()
	}
	return file, nil
}

func newFileSource(config FileConfig, kind string, file *os.File, decoder pcmDecoder, format Format) (*fileSource, error) {
	if err := format.Validate(); err != nil {
		_ = file.Close()
		return nil, err
	}
	if config.PacketFrames <= 0 {
		config.PacketFrames = DefaultPacketFrames
	}
	log := config.Logger
	if log == nil {
		log = logger.Global()
	}

	return &fileSource{
		config:  config,
		format:  format,
		kind:    kind,
		log:     log.Module(componentCapture).With(logger.String("file", config.Path)),
		file:    file,
		decoder: decoder,
		done:    make(chan struct{}),
	}, nil
}

// Format returns the layout of the file's samples
func (s *fileSource) Format() Format {
	return s.format
}

// Done is closed when a non-looping replay reaches the end of the file
func (s *fileSource) Done() <-chan struct{} {
	return s.done
}

// SetFlowControl makes unpaced replay wait until ready reports room for
// the next packet. Paced replay ignores it. Set it before Start.
func (s *fileSource) SetFlowControl(ready func(n int) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Start begins replay. After a Stop, replay resumes where it left off.
func (s *fileSource) Start(onPacket PacketHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newStateError(ErrClosed, "start")
	}
	if s.running {
		return newStateError(ErrAlreadyRunning, "start")
	}

	s.running = true
	s.quit = make(chan struct{})
	quit := s.quit
	ready := s.ready
	if s.config.Realtime {
		ready = nil
	}
	s.wg.Go(func() {
		s.replay(onPacket, ready, quit)
	})

	s.log.Info(s.kind+" replay started",
		logger.String("format", s.format.String()),
		logger.Bool("realtime", s.config.Realtime),
		logger.Bool("loop", s.config.Loop),
		logger.Bool("flow_control", ready != nil))
	return nil
}

// Stop halts replay. Stopping a stopped source is a no-op.
func (s *fileSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Close stops replay and closes the file
func (s *fileSource) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.file.Close(); err != nil {
		return errors.New(err).
			Component(componentCapture).
			Category(errors.CategoryFileIO).
			FileContext(s.config.Path).
			Context("operation", "close_"+s.kind).
			Build()
	}
	return nil
}

// replay delivers packets until quit is closed or the file ends
func (s *fileSource) replay(onPacket PacketHandler, ready func(n int) bool, quit <-chan struct{}) {
	frames := s.config.PacketFrames
	align := s.format.BlockAlign()
	packet := make([]byte, frames*align)

	var rewound bool
	var tick <-chan time.Time
	if s.config.Realtime {
		interval := time.Duration(frames) * time.Second / time.Duration(s.format.SampleRate)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var poll *time.Ticker
	if ready != nil {
		poll = time.NewTicker(flowControlPoll)
		defer poll.Stop()
	}

	for {
		switch {
		case tick != nil:
			select {
			case <-quit:
				return
			case <-tick:
			}
		case ready != nil:
			// wait before decoding so a stop never loses a decoded packet
			for !ready(len(packet)) {
				select {
				case <-quit:
					return
				case <-poll.C:
				}
			}
		default:
			select {
			case <-quit:
				return
			default:
			}
		}

		n, err := s.decoder.read(packet)
		if err != nil {
			s.log.Error(s.kind+" decode failed", logger.Error(errors.New(err).
				Component(componentCapture).
				Category(errors.CategoryFileIO).
				FileContext(s.config.Path).
				Context("operation", "decode_"+s.kind).
				Build()))
			s.finish()
			return
		}

		if n == 0 {
			// a file without samples would otherwise loop forever
			if !s.config.Loop || rewound {
				s.log.Info(s.kind + " replay reached end of file")
				s.finish()
				return
			}
			if err := s.rewind(); err != nil {
				s.log.Error(s.kind+" rewind failed", logger.Error(err))
				s.finish()
				return
			}
			rewound = true
			continue
		}
		rewound = false

		onPacket(Packet{
			Data:      packet[:n],
			Frames:    uint32(n / align),
			Timestamp: time.Now(),
		})
	}
}

func (s *fileSource) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *fileSource) rewind() error {
	if err := s.decoder.rewind(s.file); err != nil {
		return errors.New(err).
			Component(componentCapture).
			Category(errors.CategoryFileIO).
			FileContext(s.config.Path).
			Context("operation", "rewind_"+s.kind).
			Build()
	}
	return nil
}
