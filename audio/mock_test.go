// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
)

// genSource produces frames from fn until total frames have been emitted.
type genSource struct {
	rate     int
	channels int
	total    int
	pos      int
	fn       func(frame, ch int) float32
	closed   bool
	err      error
}

func newGenSource(rate, channels, total int, fn func(frame, ch int) float32) *genSource {
	return &genSource{rate: rate, channels: channels, total: total, fn: fn}
}

func newSilentSource(rate, channels, total int) *genSource {
	return newGenSource(rate, channels, total, func(int, int) float32 { return 0 })
}

func newConstantSource(rate, channels, total int, v float32) *genSource {
	return newGenSource(rate, channels, total, func(int, int) float32 { return v })
}

func newSineSource(rate, channels, total int, freq float64) *genSource {
	return newGenSource(rate, channels, total, func(f, _ int) float32 {
		return float32(math.Sin(2 * math.Pi * freq * float64(f) / float64(rate)))
	})
}

func (g *genSource) SampleRate() int { return g.rate }
func (g *genSource) Channels() int   { return g.channels }
func (g *genSource) BufSize() int    { return 4096 }
func (g *genSource) Close() error    { g.closed = true; return nil }

func (g *genSource) ReadSamples(dst []float32) (int, error) {
	if g.err != nil {
		return 0, g.err
	}
	if g.pos >= g.total {
		return 0, io.EOF
	}

	frames := min(len(dst)/g.channels, g.total-g.pos)
	for f := range frames {
		for c := range g.channels {
			dst[f*g.channels+c] = g.fn(g.pos+f, c)
		}
	}
	g.pos += frames

	return frames * g.channels, nil
}
