// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audplay/audio"
)

// go-mp3 always decodes to interleaved stereo S16LE.
const channels = 2

// pcmReader is the part of gomp3.Decoder the source uses.
type pcmReader interface {
	io.Reader
	SampleRate() int
}

type source struct {
	dec  pcmReader
	buf  []byte
	odd  []byte // trailing byte of a sample split across reads
	done bool
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}

	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	lead := copy(s.buf, s.odd)
	s.odd = s.odd[:0]

	n, err := s.dec.Read(s.buf[lead:])
	n += lead

	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[2*i:]))) / 32768
	}
	if n%2 == 1 {
		s.odd = append(s.odd, s.buf[n-1])
	}

	switch {
	case errors.Is(err, io.EOF):
		s.done = true
		if samples == 0 {
			return 0, io.EOF
		}
	case err != nil:
		return samples, fmt.Errorf("%w", err)
	}

	return samples, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &source{dec: dec, buf: make([]byte, 8192)}, nil
}
