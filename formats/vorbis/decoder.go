// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audplay/audio"
	"github.com/jfreymuth/oggvorbis"
)

// vorbisReader is the part of oggvorbis.Reader the source uses.
type vorbisReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type source struct {
	dec  vorbisReader
	done bool
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return s.dec.Channels() }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }

// ReadSamples hands dst straight to oggvorbis, which already produces
// interleaved float32 and reports the number of values written.
func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}

	channels := s.dec.Channels()
	if len(dst)%channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}

	n, err := s.dec.Read(dst)
	switch {
	case errors.Is(err, io.EOF):
		s.done = true
		if n == 0 {
			return 0, io.EOF
		}
	case err != nil:
		return n, fmt.Errorf("%w", err)
	}

	return n, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &source{dec: dec}, nil
}
