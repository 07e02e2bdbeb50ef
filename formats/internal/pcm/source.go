// SPDX-License-Identifier: EPL-2.0

// Package pcm adapts go-audio integer PCM decoders to audio.Source.
package pcm

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

var ErrUnsupportedBitDepth = errors.New("unsupported PCM bit depth")

// Reader is the part of the go-audio wav and aiff decoders the Source needs.
type Reader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source converts integer PCM from a Reader into float32 samples.
type Source struct {
	r        Reader
	format   *goaudio.Format
	scale    float32
	bias     int
	buf      *goaudio.IntBuffer
	finished bool
}

// NewSource wraps r. Set unsigned for 8-bit WAV, whose samples are stored
// with a +128 offset.
func NewSource(r Reader, format *goaudio.Format, bitDepth int, unsigned bool) (*Source, error) {
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrUnsupportedBitDepth)
	}

	s := &Source{r: r, format: format}
	switch bitDepth {
	case 8:
		s.scale = 1 << 7
		if unsigned {
			s.bias = 128
		}
	case 16:
		s.scale = 1 << 15
	case 24:
		s.scale = 1 << 23
	case 32:
		s.scale = 1 << 31
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	return s, nil
}

func (s *Source) SampleRate() int { return s.format.SampleRate }
func (s *Source) Channels() int   { return s.format.NumChannels }
func (s *Source) Close() error    { return nil }

func (s *Source) BufSize() int {
	if s.buf != nil {
		return cap(s.buf.Data)
	}
	return 4096
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.finished {
		return 0, io.EOF
	}
	if len(dst) == 0 {
		return 0, nil
	}

	if s.buf == nil || cap(s.buf.Data) < len(dst) {
		s.buf = &goaudio.IntBuffer{Data: make([]int, len(dst)), Format: s.format}
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.r.PCMBuffer(s.buf)
	for i, v := range s.buf.Data[:n] {
		dst[i] = float32(v-s.bias) / s.scale
	}

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.finished = true
	case err != nil:
		return n, fmt.Errorf("%w", err)
	case n == 0:
		s.finished = true
	}

	if s.finished && n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
