package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
)

// DefaultRestartDelay is how long MalgoSource waits before restarting a
// device that stopped on its own.
const DefaultRestartDelay = time.Second

// MalgoConfig contains configuration for the malgo audio source
type MalgoConfig struct {
	Mode         Mode   // ModeCapture or ModeLoopback
	Device       string // name, ID or name substring; empty for default
	Format       Format
	PeriodFrames uint32 // 0 lets the backend choose
	RestartDelay time.Duration
	Logger       logger.Logger
}

// MalgoSource delivers packets from a miniaudio capture or loopback device.
// Samples are passed through in the configured integer format without
// conversion.
type MalgoSource struct {
	config MalgoConfig
	log    logger.Logger

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	quit   chan struct{}
	closed bool

	handler   atomic.Pointer[PacketHandler]
	running   atomic.Bool
	restarted atomic.Bool

	// restartMu orders restart scheduling against Stop so wg.Go never
	// races wg.Wait. It is never held while the device is stopped.
	restartMu sync.Mutex
	wg        sync.WaitGroup
}

// NewMalgoSource validates config and returns an unstarted source
func NewMalgoSource(config MalgoConfig) (*MalgoSource, error) {
	if config.Mode == "" {
		config.Mode = ModeCapture
	}
	if config.Mode == ModePlayback {
		return nil, errors.Newf("playback mode cannot be used as a packet source").
			Component(componentCapture).
			Category(errors.CategoryValidation).
			Context("mode", string(config.Mode)).
			Build()
	}
	if err := config.Format.Validate(); err != nil {
		return nil, err
	}
	if config.RestartDelay <= 0 {
		config.RestartDelay = DefaultRestartDelay
	}
	log := config.Logger
	if log == nil {
		log = logger.Global()
	}

	return &MalgoSource{
		config: config,
		log: log.Module(componentCapture).With(
			logger.String("mode", string(config.Mode)),
			logger.String("device", config.Device)),
	}, nil
}

// Format returns the configured sample layout
func (s *MalgoSource) Format() Format {
	return s.config.Format
}

// Start opens the device and begins delivering packets to onPacket
func (s *MalgoSource) Start(onPacket PacketHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newStateError(ErrClosed, "start")
	}
	if s.running.Load() {
		return newStateError(ErrAlreadyRunning, "start")
	}

	sampleFormat, err := MalgoFormat(s.config.Format.BitDepth)
	if err != nil {
		return err
	}

	ctx, info, err := OpenDevice(s.config.Mode, s.config.Device)
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(s.config.Mode.DeviceType())
	deviceConfig.Capture.Format = sampleFormat
	deviceConfig.Capture.Channels = uint32(s.config.Format.Channels)
	deviceConfig.Capture.DeviceID = info.ID.Pointer()
	deviceConfig.SampleRate = uint32(s.config.Format.SampleRate)
	deviceConfig.PeriodSizeInFrames = s.config.PeriodFrames
	deviceConfig.Alsa.NoMMap = 1

	s.handler.Store(&onPacket)

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onAudioData,
		Stop: s.onDeviceStop,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return errors.New(err).
			Component(componentCapture).
			Category(errors.CategoryAudioSource).
			Context("device_name", info.Name()).
			Context("operation", "init_device").
			Build()
	}

	// running must be set before Start so an immediate stop callback is
	// treated as unexpected
	s.quit = make(chan struct{})
	s.running.Store(true)
	s.restarted.Store(false)
	if err := device.Start(); err != nil {
		s.setStopped()
		close(s.quit)
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return errors.New(err).
			Component(componentCapture).
			Category(errors.CategoryAudioSource).
			Context("device_name", info.Name()).
			Context("operation", "start_device").
			Build()
	}

	s.ctx = ctx
	s.device = device

	s.log.Info("audio device started",
		logger.String("device_name", info.Name()),
		logger.String("format", s.config.Format.String()),
		logger.Int("actual_sample_rate", int(device.SampleRate())))

	return nil
}

// Stop halts delivery and releases the device. Stopping a stopped source
// is a no-op.
func (s *MalgoSource) Stop() error {
	s.mu.Lock()
	if !s.setStopped() {
		s.mu.Unlock()
		return nil
	}
	close(s.quit)
	s.releaseLocked()
	s.mu.Unlock()

	// restart goroutine may be waiting for mu
	s.wg.Wait()

	s.log.Info("audio device stopped")
	return nil
}

// setStopped clears running and reports whether it was set. No restart
// can be scheduled once it returns.
func (s *MalgoSource) setStopped() bool {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()
	return s.running.Swap(false)
}

// Close stops the source. Further Start calls fail.
func (s *MalgoSource) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// releaseLocked stops and frees the device and context. Caller holds mu.
func (s *MalgoSource) releaseLocked() {
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
	s.handler.Store(nil)
}

// onAudioData is called by malgo on its audio thread
func (s *MalgoSource) onAudioData(_, pInputSamples []byte, framecount uint32) {
	h := s.handler.Load()
	if h == nil || !s.running.Load() {
		return
	}
	(*h)(Packet{
		Data:      pInputSamples,
		Frames:    framecount,
		Timestamp: time.Now(),
	})
}

// onDeviceStop is called by malgo whenever the device stops, including
// during Stop. Only stops while running are unexpected.
func (s *MalgoSource) onDeviceStop() {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()

	if !s.running.Load() {
		return
	}

	if s.restarted.Swap(true) {
		s.log.Error("audio device stopped again after restart, giving up")
		return
	}

	s.log.Warn("audio device stopped unexpectedly, restarting",
		logger.Duration("delay", s.config.RestartDelay))

	// quit is assigned before the device starts and only replaced by the
	// next Start, so it is safe to read here without mu
	quit := s.quit

	s.wg.Go(func() {
		timer := time.NewTimer(s.config.RestartDelay)
		defer timer.Stop()

		select {
		case <-quit:
			return
		case <-timer.C:
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.running.Load() || s.device == nil {
			return
		}
		if err := s.device.Start(); err != nil {
			restartErr := errors.New(err).
				Component(componentCapture).
				Category(errors.CategoryAudioSource).
				Priority(errors.PriorityHigh).
				Context("operation", "restart_device").
				Build()
			s.log.Error("audio device restart failed", logger.Error(restartErr))
			return
		}
		s.log.Info("audio device restarted")
	})
}
