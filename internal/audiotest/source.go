// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides deterministic audio sources, buffers and WAV
// fixtures for tests.
package audiotest

import (
	"io"
	"math"

	"github.com/ik5/audplay/audio"
)

// Waveform returns the value of channel ch at frame.
type Waveform func(frame, ch int) float32

// Source generates a fixed number of frames from a Waveform.
type Source struct {
	rate     int
	channels int
	frames   int
	pos      int
	wave     Waveform
	closed   bool
}

var _ audio.Source = (*Source)(nil)

func NewSource(rate, channels, frames int, wave Waveform) *Source {
	return &Source{rate: rate, channels: channels, frames: frames, wave: wave}
}

func NewSilentSource(rate, channels, frames int) *Source {
	return NewSource(rate, channels, frames, func(int, int) float32 { return 0 })
}

func NewConstantSource(rate, channels, frames int, v float32) *Source {
	return NewSource(rate, channels, frames, func(int, int) float32 { return v })
}

// NewSineSource generates a full-scale sine at freq Hz on every channel.
func NewSineSource(rate, channels, frames int, freq float64) *Source {
	return NewSource(rate, channels, frames, func(frame, _ int) float32 {
		return float32(math.Sin(2 * math.Pi * freq * float64(frame) / float64(rate)))
	})
}

// NewRampSource rises linearly from 0 towards 1, so a sample value tells
// where in the source it was read.
func NewRampSource(rate, channels, frames int) *Source {
	return NewSource(rate, channels, frames, Ramp(frames))
}

// Ramp is the waveform of NewRampSource.
func Ramp(frames int) Waveform {
	return func(frame, _ int) float32 { return float32(frame) / float32(frames) }
}

func (s *Source) SampleRate() int { return s.rate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BufSize() int    { return 4096 }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool { return s.closed }

// Reset rewinds the source to its first frame.
func (s *Source) Reset() { s.pos = 0 }

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.pos >= s.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/s.channels, s.frames-s.pos)
	for f := range n {
		for ch := range s.channels {
			dst[f*s.channels+ch] = s.wave(s.pos+f, ch)
		}
	}
	s.pos += n

	if s.pos >= s.frames {
		return n * s.channels, io.EOF
	}
	return n * s.channels, nil
}
