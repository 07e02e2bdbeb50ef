// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"fmt"
	"io"
	"time"
)

// readChunk is the number of interleaved samples ReadAll pulls per call.
const readChunk = 4096

// Buffer is fully decoded PCM audio stored planar, one slice per channel.
//
// A Buffer is immutable once built: it is shared by reference between every
// playback session created from the same asset, so nothing may write into
// the slices returned by Channel.
type Buffer struct {
	data       [][]float32
	sampleRate int
	frames     int
}

// NewBuffer wraps planar channel data. All channels must have the same length.
func NewBuffer(sampleRate int, data [][]float32) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if len(data) == 0 {
		return nil, ErrInvalidChannels
	}

	frames := len(data[0])
	for _, ch := range data[1:] {
		if len(ch) != frames {
			return nil, ErrChannelLength
		}
	}

	return &Buffer{data: data, sampleRate: sampleRate, frames: frames}, nil
}

func (b *Buffer) SampleRate() int { return b.sampleRate }
func (b *Buffer) Channels() int   { return len(b.data) }

// Frames is the number of samples per channel.
func (b *Buffer) Frames() int { return b.frames }

// Duration of the buffer at its own sample rate.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.frames) * time.Second / time.Duration(b.sampleRate)
}

// Channel returns the samples of channel ch. The slice is shared; do not modify it.
func (b *Buffer) Channel(ch int) []float32 { return b.data[ch] }

// Reverse returns a new Buffer with every channel sample-reversed.
func (b *Buffer) Reverse() *Buffer {
	data := make([][]float32, len(b.data))
	for c, src := range b.data {
		dst := make([]float32, len(src))
		for i, v := range src {
			dst[len(src)-1-i] = v
		}
		data[c] = dst
	}

	return &Buffer{data: data, sampleRate: b.sampleRate, frames: b.frames}
}

// Reader streams the buffer back as an interleaved Source.
func (b *Buffer) Reader() Source {
	return &bufferReader{buf: b}
}

// ReadAll drains src into a Buffer and closes it.
// ctx is checked between chunks so a long decode can be abandoned.
func ReadAll(ctx context.Context, src Source) (*Buffer, error) {
	defer src.Close()

	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}

	data := make([][]float32, channels)
	chunk := make([]float32, readChunk-readChunk%channels)
	var carry []float32

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w", err)
		}

		n, err := src.ReadSamples(chunk)
		if n > 0 {
			// Some codecs return partial frames; keep the tail for the next round.
			samples := chunk[:n]
			if len(carry) > 0 {
				samples = append(carry, samples...)
				carry = nil
			}
			whole := len(samples) - len(samples)%channels
			for i := 0; i < whole; i += channels {
				for c := range channels {
					data[c] = append(data[c], samples[i+c])
				}
			}
			if whole < len(samples) {
				carry = append([]float32(nil), samples[whole:]...)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
		if n == 0 {
			// Guard against codecs that return (0, nil) forever at the end.
			break
		}
	}

	if len(data[0]) == 0 {
		return nil, ErrEmptySource
	}

	return NewBuffer(src.SampleRate(), data)
}

type bufferReader struct {
	buf *Buffer
	pos int
}

func (r *bufferReader) SampleRate() int { return r.buf.sampleRate }
func (r *bufferReader) Channels() int   { return len(r.buf.data) }
func (r *bufferReader) BufSize() int    { return readChunk }
func (r *bufferReader) Close() error    { return nil }

func (r *bufferReader) ReadSamples(dst []float32) (int, error) {
	channels := len(r.buf.data)
	if len(dst)%channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if r.pos >= r.buf.frames {
		return 0, io.EOF
	}

	frames := min(len(dst)/channels, r.buf.frames-r.pos)
	for f := range frames {
		for c := range channels {
			dst[f*channels+c] = r.buf.data[c][r.pos+f]
		}
	}
	r.pos += frames

	if r.pos >= r.buf.frames {
		return frames * channels, io.EOF
	}
	return frames * channels, nil
}
