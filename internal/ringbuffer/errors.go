package ringbuffer

import (
	"github.com/tphakala/pcmring/internal/errors"
)

const componentRingBuffer = "ringbuffer"

// ErrInvalidConfiguration is returned by New when capacity and alignment do
// not describe a whole number of positive-size blocks.
var ErrInvalidConfiguration = errors.NewStd("invalid ring buffer configuration")
