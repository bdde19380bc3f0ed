package capture

import (
	"github.com/tphakala/pcmring/internal/errors"
)

const componentCapture = "capture"

// Sentinel errors for source lifecycle misuse
var (
	ErrAlreadyRunning = errors.NewStd("packet source already running")
	ErrClosed         = errors.NewStd("packet source closed")
	ErrNoDevice       = errors.NewStd("no matching audio device")
)

func newStateError(err error, op string) error {
	return errors.New(err).
		Component(componentCapture).
		Category(errors.CategoryState).
		Context("operation", op).
		Build()
}

func newFormatError(f Format, reason string) error {
	return errors.Newf("invalid audio format: %s", reason).
		Component(componentCapture).
		Category(errors.CategoryValidation).
		Context("sample_rate", f.SampleRate).
		Context("channels", f.Channels).
		Context("bit_depth", f.BitDepth).
		Build()
}
