// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audplay/audio"
	"github.com/pion/opus"
)

// SampleRate is the rate every Opus stream decodes at.
const SampleRate = 48000

var (
	ErrNotOpus       = errors.New("not an Ogg Opus stream")
	ErrMissingHeader = errors.New("missing OpusHead packet")
)

// packetDecoder is the part of opus.Decoder the source uses.
type packetDecoder interface {
	Decode(in, out []byte) (opus.Bandwidth, bool, error)
}

// source decodes one Ogg Opus stream to mono float32 at 48 kHz.
type source struct {
	packets *packetReader
	dec     packetDecoder
	preSkip int

	pcm     []byte
	pending []float32
	done    bool
}

func (s *source) SampleRate() int { return SampleRate }
func (s *source) Channels() int   { return 1 }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 2880 }

// decodeNext fills pending from the next audio packet.
func (s *source) decodeNext() error {
	packet, err := s.packets.Next()
	if err != nil {
		return err
	}

	samples, err := packetSamples(packet)
	if err != nil {
		return err
	}
	if cap(s.pcm) < samples*2 {
		s.pcm = make([]byte, samples*2)
	}
	s.pcm = s.pcm[:samples*2]

	if _, _, err := s.dec.Decode(packet, s.pcm); err != nil {
		return fmt.Errorf("%w", err)
	}

	s.pending = s.pending[:0]
	for i := range samples {
		s.pending = append(s.pending, float32(int16(binary.LittleEndian.Uint16(s.pcm[2*i:])))/32768)
	}

	if s.preSkip > 0 {
		drop := min(s.preSkip, len(s.pending))
		s.pending = s.pending[drop:]
		s.preSkip -= drop
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if len(s.pending) == 0 {
			if s.done {
				break
			}
			if err := s.decodeNext(); err != nil {
				if errors.Is(err, io.EOF) {
					s.done = true
					continue
				}
				return n, err
			}
			continue
		}

		c := copy(dst[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}

	if n == 0 && s.done {
		return 0, io.EOF
	}
	return n, nil
}

type Decoder struct{}

// Decode validates the OpusHead and OpusTags packets and returns a source
// positioned at the first audio packet.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec := opus.NewDecoder()
	return newSource(r, &dec)
}

func newSource(r io.Reader, dec packetDecoder) (*source, error) {
	packets := newPacketReader(r)

	head, err := packets.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, fmt.Errorf("%w: %w", ErrNotOpus, err)
	}
	if len(head) < 19 || !bytes.HasPrefix(head, []byte("OpusHead")) {
		return nil, ErrNotOpus
	}
	preSkip := int(binary.LittleEndian.Uint16(head[10:12]))

	tags, err := packets.Next()
	if err != nil || !bytes.HasPrefix(tags, []byte("OpusTags")) {
		return nil, fmt.Errorf("%w: missing OpusTags", ErrNotOpus)
	}

	return &source{packets: packets, dec: dec, preSkip: preSkip}, nil
}
