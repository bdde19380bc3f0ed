package session

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/pcmring/internal/capture"
	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
)

// PlaybackConfig configures a Playback consumer
type PlaybackConfig struct {
	Device   string // output device name, ID or substring; empty for default
	Format   capture.Format
	Gain     float64
	PeriodMs uint32 // device period, 0 lets the backend choose
	Logger   logger.Logger
}

// Playback is a consumer that renders the buffer to an output device. The
// device callback pulls exactly the bytes it needs and pads any shortfall
// with silence.
type Playback struct {
	config PlaybackConfig
	log    logger.Logger

	gain      atomic.Uint64 // math.Float64bits
	underruns atomic.Uint64
	silence   atomic.Uint64
}

// NewPlayback validates config and returns an unopened playback consumer
func NewPlayback(config PlaybackConfig) (*Playback, error) {
	if err := config.Format.Validate(); err != nil {
		return nil, err
	}
	if config.Gain < 0 {
		return nil, errors.Newf("playback gain must not be negative").
			Component(componentSession).
			Category(errors.CategoryValidation).
			Context("gain", config.Gain).
			Build()
	}
	log := config.Logger
	if log == nil {
		log = logger.Global()
	}

	p := &Playback{
		config: config,
		log:    log.Module(componentSession).Module("playback").With(logger.String("device", config.Device)),
	}
	p.SetGain(config.Gain)
	return p, nil
}

// SetGain changes the gain applied to rendered samples
func (p *Playback) SetGain(gain float64) {
	p.gain.Store(math.Float64bits(gain))
}

// Gain returns the current gain
func (p *Playback) Gain() float64 {
	return math.Float64frombits(p.gain.Load())
}

// Underruns returns the number of callbacks that were padded with silence
func (p *Playback) Underruns() uint64 {
	return p.underruns.Load()
}

// Run implements Consumer. It plays until ctx is cancelled.
func (p *Playback) Run(ctx context.Context, rd Reader) error {
	f := p.config.Format
	sampleFormat, err := capture.MalgoFormat(f.BitDepth)
	if err != nil {
		return err
	}

	mctx, info, err := capture.OpenDevice(capture.ModePlayback, p.config.Device)
	if err != nil {
		return err
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleFormat
	deviceConfig.Playback.Channels = uint32(f.Channels)
	deviceConfig.Playback.DeviceID = info.ID.Pointer()
	deviceConfig.SampleRate = uint32(f.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = p.config.PeriodMs
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(pOutputSample, _ []byte, _ uint32) {
			p.render(pOutputSample, rd)
		},
	})
	if err != nil {
		return errors.New(err).
			Component(componentSession).
			Category(errors.CategoryAudioSource).
			Context("device_name", info.Name()).
			Context("operation", "init_playback_device").
			Build()
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return errors.New(err).
			Component(componentSession).
			Category(errors.CategoryAudioSource).
			Context("device_name", info.Name()).
			Context("operation", "start_playback_device").
			Build()
	}
	p.log.Info("playback started",
		logger.String("device_name", info.Name()),
		logger.String("format", f.String()),
		logger.Float64("gain", p.Gain()))

	<-ctx.Done()

	if err := device.Stop(); err != nil {
		p.log.Warn("playback device stop failed", logger.Error(err))
	}
	p.log.Info("playback stopped",
		logger.Uint64("underruns", p.underruns.Load()),
		logger.Uint64("silence_bytes", p.silence.Load()))
	return nil
}

// render fills out from the buffer, applies gain and pads with silence
func (p *Playback) render(out []byte, rd Reader) {
	n := rd.Read(out)
	ApplyGain(out[:n], p.config.Format.BitDepth, p.Gain())
	if n < len(out) {
		clear(out[n:])
		p.underruns.Add(1)
		p.silence.Add(uint64(len(out) - n))
	}
}
