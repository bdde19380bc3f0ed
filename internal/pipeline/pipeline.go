// Package pipeline assembles a capture session from settings: it opens the
// packet source, runs the session with the chosen consumer and serves the
// metrics endpoint alongside it.
package pipeline

import (
	"context"
	"sync"

	"github.com/tphakala/pcmring/internal/capture"
	"github.com/tphakala/pcmring/internal/conf"
	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
	"github.com/tphakala/pcmring/internal/observability"
	"github.com/tphakala/pcmring/internal/session"
)

const componentPipeline = "pipeline"

// SourceOptions selects a file replay instead of a live device
type SourceOptions struct {
	File     string // WAV or FLAC file to replay; empty captures from the configured device
	Realtime bool   // pace file replay at its sample rate
	Loop     bool   // restart file replay at end of file
}

func getLogger() logger.Logger {
	return logger.Global().Module(componentPipeline)
}

// OpenSource returns the packet source described by settings and opts. A
// file source takes its format from the file header and is decoded as FLAC
// when its extension is .flac.
func OpenSource(settings *conf.Settings, opts SourceOptions) (capture.PacketSource, error) {
	if opts.File != "" {
		return capture.OpenFile(capture.FileConfig{
			Path:     opts.File,
			Realtime: opts.Realtime,
			Loop:     opts.Loop,
		})
	}

	mode, err := settings.Mode()
	if err != nil {
		return nil, err
	}
	if mode == capture.ModePlayback {
		return nil, errors.Newf("audio.mode playback has no input, use capture or loopback").
			Component(componentPipeline).
			Category(errors.CategoryConfiguration).
			Build()
	}

	return capture.NewMalgoSource(capture.MalgoConfig{
		Mode:   mode,
		Device: settings.Audio.Device,
		Format: settings.Format(),
	})
}

// Run runs one session from src into consumer until ctx is cancelled, the
// consumer finishes or a finite source ends. When metrics are enabled the
// endpoint serves for the lifetime of the session.
func Run(ctx context.Context, settings *conf.Settings, src capture.PacketSource, consumer session.Consumer) error {
	policy, err := settings.OverflowPolicy()
	if err != nil {
		_ = src.Close()
		return err
	}

	opts := []session.Option{session.WithLogger(logger.Global())}

	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			_ = src.Close()
			return err
		}

		endpoint := observability.NewEndpoint(settings.Metrics.Listen, m)
		var wg sync.WaitGroup
		quitChan := make(chan struct{})
		if err := endpoint.Start(&wg, quitChan); err != nil {
			_ = src.Close()
			return err
		}
		defer func() {
			close(quitChan)
			wg.Wait()
		}()

		getLogger().Info("metrics endpoint listening", logger.String("address", endpoint.Addr()))
		opts = append(opts, session.WithBufferMetrics(m.Buffers), session.WithPacketRecorder(m.Sessions))
	}

	s, err := session.New(session.Config{
		BufferDuration: settings.Buffer.Duration,
		Overflow:       policy,
	}, src, consumer, opts...)
	if err != nil {
		_ = src.Close()
		return err
	}

	return s.Run(ctx)
}
