// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"fmt"
	"io"

	goaiff "github.com/go-audio/aiff"
	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/formats/internal/pcm"
)

type Decoder struct{}

// Decode reads uncompressed AIFF. go-audio needs to seek, so plain readers
// are buffered in memory.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading aiff data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := goaiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	format := dec.Format()
	if format == nil {
		return nil, ErrUnsupportedAiffLayout
	}

	src, err := pcm.NewSource(dec, format, int(dec.BitDepth), false)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return src, nil
}
