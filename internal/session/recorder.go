package session

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/pcmring/internal/capture"
	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
)

// DefaultQuantum is the recorder's polling period
const DefaultQuantum = 20 * time.Millisecond

// RecorderConfig configures a Recorder
type RecorderConfig struct {
	Path        string
	Format      capture.Format
	Quantum     time.Duration // polling period
	ChunkBytes  int           // bytes requested per poll, defaults to two quanta
	MaxDuration time.Duration // 0 records until cancelled
	Logger      logger.Logger
}

// Recorder is a consumer that writes the buffer to a WAV file at a fixed
// cadence
type Recorder struct {
	config RecorderConfig
	log    logger.Logger

	frames atomic.Int64
}

// NewRecorder validates config and returns a recorder. The file is created
// when Run starts.
func NewRecorder(config RecorderConfig) (*Recorder, error) {
	if err := config.Format.Validate(); err != nil {
		return nil, err
	}
	if config.Path == "" {
		return nil, errors.Newf("recorder output path is empty").
			Component(componentSession).
			Category(errors.CategoryValidation).
			Build()
	}
	if config.Quantum <= 0 {
		config.Quantum = DefaultQuantum
	}

	align := config.Format.BlockAlign()
	if config.ChunkBytes <= 0 {
		config.ChunkBytes = int(2 * int64(config.Format.BytesPerSecond()) * int64(config.Quantum) / int64(time.Second))
	}
	config.ChunkBytes = max(config.ChunkBytes-config.ChunkBytes%align, align)

	log := config.Logger
	if log == nil {
		log = logger.Global()
	}

	return &Recorder{
		config: config,
		log:    log.Module(componentSession).Module("recorder").With(logger.String("file", config.Path)),
	}, nil
}

// Recorded returns the duration written so far
func (r *Recorder) Recorded() time.Duration {
	return time.Duration(r.frames.Load()) * time.Second / time.Duration(r.config.Format.SampleRate)
}

// Run implements Consumer. It returns ErrConsumerDone once MaxDuration has
// been written, and nil after draining the buffer when ctx is cancelled.
func (r *Recorder) Run(ctx context.Context, rd Reader) (err error) {
	f := r.config.Format
	out, err := os.Create(r.config.Path)
	if err != nil {
		return errors.New(err).
			Component(componentSession).
			Category(errors.CategoryFileIO).
			FileContext(r.config.Path).
			Context("operation", "create_wav").
			Build()
	}

	enc := wav.NewEncoder(out, f.SampleRate, f.BitDepth, f.Channels, 1)
	defer func() {
		if cerr := r.finalize(enc, out); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := &pcmWriter{
		enc:   enc,
		chunk: make([]byte, r.config.ChunkBytes),
		buf: &audio.IntBuffer{
			Data:           make([]int, r.config.ChunkBytes/(f.BitDepth/8)),
			Format:         &audio.Format{SampleRate: f.SampleRate, NumChannels: f.Channels},
			SourceBitDepth: f.BitDepth,
		},
		bytesPerSample: f.BitDepth / 8,
	}
	// an empty write emits the RIFF and data headers, so even a recording
	// that captured nothing finalizes into a valid file
	if err := w.write(nil); err != nil {
		return errors.New(err).
			Component(componentSession).
			Category(errors.CategoryFileIO).
			FileContext(r.config.Path).
			Context("operation", "write_wav_header").
			Build()
	}

	var limit int64 // bytes, 0 for unlimited
	if r.config.MaxDuration > 0 {
		limit = int64(f.BytesPerSecond()) * int64(r.config.MaxDuration) / int64(time.Second)
		limit -= limit % int64(f.BlockAlign())
	}
	var written int64

	// poll reads one chunk and writes it; it reports whether the limit was hit
	poll := func() (bool, error) {
		want := len(w.chunk)
		if limit > 0 {
			want = int(min(int64(want), limit-written))
		}
		n := rd.Read(w.chunk[:want])
		if n == 0 {
			return limit > 0 && written >= limit, nil
		}
		if err := w.write(w.chunk[:n]); err != nil {
			return false, errors.New(err).
				Component(componentSession).
				Category(errors.CategoryFileIO).
				FileContext(r.config.Path).
				Context("operation", "write_wav").
				Build()
		}
		written += int64(n)
		r.frames.Add(int64(n / f.BlockAlign()))
		return limit > 0 && written >= limit, nil
	}

	r.log.Info("recording started",
		logger.String("format", f.String()),
		logger.Duration("quantum", r.config.Quantum),
		logger.Int("chunk_bytes", r.config.ChunkBytes),
		logger.Duration("max_duration", r.config.MaxDuration))

	ticker := time.NewTicker(r.config.Quantum)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// drain what the source delivered before it stopped
			for {
				before := written
				done, err := poll()
				if err != nil {
					return err
				}
				if done || written == before {
					return nil
				}
			}
		case <-ticker.C:
			done, err := poll()
			if err != nil {
				return err
			}
			if done {
				r.log.Info("maximum duration reached")
				return ErrConsumerDone
			}
		}
	}
}

func (r *Recorder) finalize(enc *wav.Encoder, out *os.File) error {
	encErr := enc.Close()
	fileErr := out.Close()
	if err := errors.Join(encErr, fileErr); err != nil {
		return errors.New(err).
			Component(componentSession).
			Category(errors.CategoryFileIO).
			FileContext(r.config.Path).
			Context("operation", "finalize_wav").
			Build()
	}
	r.log.Info("recording finalized", logger.Duration("recorded", r.Recorded()))
	return nil
}

// pcmWriter converts little-endian PCM bytes into encoder samples
type pcmWriter struct {
	enc            *wav.Encoder
	chunk          []byte
	buf            *audio.IntBuffer
	bytesPerSample int
}

func (w *pcmWriter) write(p []byte) error {
	n := decodePCM(w.buf.Data, p, w.bytesPerSample)
	data := w.buf.Data
	w.buf.Data = data[:n]
	err := w.enc.Write(w.buf)
	w.buf.Data = data
	return err
}

// decodePCM reads sign-extended little-endian samples of bytesPerSample
// bytes from src into dst and returns the number of samples decoded
func decodePCM(dst []int, src []byte, bytesPerSample int) int {
	shift := 64 - 8*bytesPerSample
	n := 0
	for off := 0; off+bytesPerSample <= len(src) && n < len(dst); off += bytesPerSample {
		var v uint64
		for b := range bytesPerSample {
			v |= uint64(src[off+b]) << (8 * b)
		}
		dst[n] = int(int64(v<<shift) >> shift)
		n++
	}
	return n
}
