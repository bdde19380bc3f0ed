package capture

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/pcmring/internal/errors"
)

// WAVSource replays a PCM WAV file as a packet stream. Samples are
// re-encoded as little-endian integers at the file's own bit depth.
type WAVSource struct {
	*fileSource
}

// NewWAVSource opens path and reads its header
func NewWAVSource(config FileConfig) (*WAVSource, error) {
	file, err := openFile(config, "wav")
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		_ = file.Close()
		return nil, errors.Newf("invalid WAV file format").
			Component(componentCapture).
			Category(errors.CategoryValidation).
			FileContext(config.Path).
			Build()
	}
	if decoder.WavAudioFormat != 1 {
		_ = file.Close()
		return nil, errors.Newf("unsupported WAV encoding %d, only integer PCM is supported", decoder.WavAudioFormat).
			Component(componentCapture).
			Category(errors.CategoryValidation).
			FileContext(config.Path).
			Build()
	}

	format := Format{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
	}
	src, err := newFileSource(config, "wav", file, &wavDecoder{decoder: decoder, format: format}, format)
	if err != nil {
		return nil, err
	}
	return &WAVSource{fileSource: src}, nil
}

// wavDecoder adapts the go-audio decoder to whole-frame byte reads
type wavDecoder struct {
	decoder *wav.Decoder
	format  Format
	buf     *audio.IntBuffer
}

func (d *wavDecoder) read(dst []byte) (int, error) {
	bytesPerSample := d.format.BitDepth / 8
	samples := len(dst) / bytesPerSample
	if d.buf == nil || len(d.buf.Data) != samples {
		d.buf = &audio.IntBuffer{
			Data: make([]int, samples),
			Format: &audio.Format{
				SampleRate:  d.format.SampleRate,
				NumChannels: d.format.Channels,
			},
			SourceBitDepth: d.format.BitDepth,
		}
	}

	n, err := d.decoder.PCMBuffer(d.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, err
	}
	n -= n % d.format.Channels
	return encodePCM(dst, d.buf.Data[:n], bytesPerSample), nil
}

func (d *wavDecoder) rewind(file *os.File) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	d.decoder = wav.NewDecoder(file)
	d.decoder.ReadInfo()
	return nil
}

// encodePCM writes samples as little-endian integers of bytesPerSample bytes
// and returns the number of bytes written
func encodePCM(dst []byte, samples []int, bytesPerSample int) int {
	off := 0
	for _, v := range samples {
		for b := range bytesPerSample {
			dst[off+b] = byte(v >> (8 * b))
		}
		off += bytesPerSample
	}
	return off
}
