// SPDX-License-Identifier: EPL-2.0

// Package native picks a decoder from a file's leading bytes instead of its
// extension. It backs the fallback path for names the extension registry
// does not know.
package native

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/formats/aiff"
	"github.com/ik5/audplay/formats/mp3"
	"github.com/ik5/audplay/formats/opus"
	"github.com/ik5/audplay/formats/vorbis"
	"github.com/ik5/audplay/formats/wav"
)

// sniffLen covers the first Ogg page header plus the start of its packet.
const sniffLen = 64

var ErrUnknownFormat = errors.New("unrecognised audio format")

// Format names a container recognised by Sniff.
type Format string

const (
	Unknown Format = ""
	WAV     Format = "wav"
	AIFF    Format = "aiff"
	Opus    Format = "opus"
	Vorbis  Format = "ogg"
	MP3     Format = "mp3"
)

// Sniff classifies a file by its header bytes.
func Sniff(head []byte) Format {
	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return WAV
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("FORM")) &&
		(bytes.Equal(head[8:12], []byte("AIFF")) || bytes.Equal(head[8:12], []byte("AIFC"))):
		return AIFF
	case bytes.HasPrefix(head, []byte("OggS")):
		if bytes.Contains(head, []byte("OpusHead")) {
			return Opus
		}
		return Vorbis
	case bytes.HasPrefix(head, []byte("ID3")):
		return MP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return MP3
	}
	return Unknown
}

// Decoder sniffs the stream and hands it to the matching format decoder.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("%w", err)
	}

	dec, ok := decoderFor(Sniff(head))
	if !ok {
		return nil, ErrUnknownFormat
	}
	return dec.Decode(br)
}

func decoderFor(f Format) (audio.Decoder, bool) {
	switch f {
	case WAV:
		return wav.Decoder{}, true
	case AIFF:
		return aiff.Decoder{}, true
	case Opus:
		return opus.Decoder{}, true
	case Vorbis:
		return vorbis.Decoder{}, true
	case MP3:
		return mp3.Decoder{}, true
	}
	return nil, false
}
