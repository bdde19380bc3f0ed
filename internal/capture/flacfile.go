package capture

import (
	"io"
	"os"

	"github.com/tphakala/flac"

	"github.com/tphakala/pcmring/internal/errors"
)

// FLACSource replays a FLAC file as a packet stream. Decoded frames are
// already little-endian integers at the stream's bit depth.
type FLACSource struct {
	*fileSource
}

// NewFLACSource opens path and reads its stream info
func NewFLACSource(config FileConfig) (*FLACSource, error) {
	file, err := openFile(config, "flac")
	if err != nil {
		return nil, err
	}

	decoder, err := flac.NewDecoder(file)
	if err != nil {
		_ = file.Close()
		return nil, errors.New(err).
			Component(componentCapture).
			Category(errors.CategoryValidation).
			FileContext(config.Path).
			Context("operation", "open_flac").
			Build()
	}

	format := Format{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NChannels),
		BitDepth:   int(decoder.BitsPerSample),
	}
	src, err := newFileSource(config, "flac", file, &flacDecoder{decoder: decoder}, format)
	if err != nil {
		return nil, err
	}
	return &FLACSource{fileSource: src}, nil
}

// flacDecoder splits decoded FLAC frames into packets
type flacDecoder struct {
	decoder *flac.Decoder
	pending []byte
}

func (d *flacDecoder) read(dst []byte) (int, error) {
	off := 0
	for off < len(dst) {
		if len(d.pending) == 0 {
			frame, err := d.decoder.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return 0, err
			}
			d.pending = frame
			continue
		}
		n := copy(dst[off:], d.pending)
		d.pending = d.pending[n:]
		off += n
	}
	return off, nil
}

func (d *flacDecoder) rewind(file *os.File) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return err
	}
	d.decoder = decoder
	d.pending = nil
	return nil
}
