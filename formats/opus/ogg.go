// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	pageHeaderSize = 27
	maxSegment     = 255
)

var (
	ErrBadPage   = errors.New("malformed ogg page")
	ErrMixedLink = errors.New("ogg stream switches serial mid packet")
	pageMagic    = []byte("OggS")
)

// packetReader splits an Ogg bitstream into packets. CRCs are not verified
// and only the first logical stream is followed.
type packetReader struct {
	r       io.Reader
	serial  uint32
	started bool

	segments []byte // lacing values of the current page not yet consumed
	body     []byte // payload of the current page not yet consumed
	header   [pageHeaderSize]byte
}

func newPacketReader(r io.Reader) *packetReader {
	return &packetReader{r: r}
}

func (p *packetReader) nextPage() error {
	for {
		if _, err := io.ReadFull(p.r, p.header[:]); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: truncated header", ErrBadPage)
			}
			return err
		}
		if !bytes.Equal(p.header[:4], pageMagic) || p.header[4] != 0 {
			return fmt.Errorf("%w: bad capture pattern", ErrBadPage)
		}

		serial := uint32(p.header[14]) | uint32(p.header[15])<<8 | uint32(p.header[16])<<16 | uint32(p.header[17])<<24
		nsegs := int(p.header[26])

		lacing := make([]byte, nsegs)
		if _, err := io.ReadFull(p.r, lacing); err != nil {
			return fmt.Errorf("%w: truncated segment table", ErrBadPage)
		}
		size := 0
		for _, l := range lacing {
			size += int(l)
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(p.r, body); err != nil {
			return fmt.Errorf("%w: truncated body", ErrBadPage)
		}

		if !p.started {
			p.serial, p.started = serial, true
		}
		if serial != p.serial {
			continue
		}

		p.segments, p.body = lacing, body
		return nil
	}
}

// Next returns the next complete packet, or io.EOF at the end of the stream.
func (p *packetReader) Next() ([]byte, error) {
	var packet []byte
	partial := false

	for {
		if len(p.segments) == 0 {
			if err := p.nextPage(); err != nil {
				if errors.Is(err, io.EOF) && partial {
					return nil, fmt.Errorf("%w: stream ends inside a packet", ErrBadPage)
				}
				return nil, err
			}
			continue
		}

		l := int(p.segments[0])
		p.segments = p.segments[1:]
		packet = append(packet, p.body[:l]...)
		p.body = p.body[l:]

		if l < maxSegment {
			return packet, nil
		}
		partial = true
	}
}
