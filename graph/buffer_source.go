// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"math"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/utils"
)

// MaxPlaybackRate bounds the PlaybackRate param.
const MaxPlaybackRate = 16

// BufferSource plays a shared audio.Buffer. It reads the buffer with a
// fractional position so PlaybackRate changes pitch and speed together.
// A source plays once: after it ends or is stopped it stays silent.
type BufferSource struct {
	node
	buf  *audio.Buffer
	step float64 // buffer frames per output frame at rate 1

	PlaybackRate *Param

	loop    bool
	pos     float64
	started bool
	ended   bool
	stopAt  time.Duration
	done    chan struct{}
}

func (c *Context) NewBufferSource(buf *audio.Buffer) *BufferSource {
	return &BufferSource{
		node:         node{ctx: c, name: "buffer-source"},
		buf:          buf,
		step:         float64(buf.SampleRate()) / float64(c.rate),
		PlaybackRate: newParam(c, 1, 0, MaxPlaybackRate),
		stopAt:       -1,
		done:         make(chan struct{}),
	}
}

func (s *BufferSource) Buffer() *audio.Buffer { return s.buf }

func (s *BufferSource) SetLoop(loop bool) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()

	s.loop = loop
}

func (s *BufferSource) Loop() bool {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()

	return s.loop
}

// Start begins playback offset into the buffer. Offsets past the end start
// at the end, which for a looping source wraps.
func (s *BufferSource) Start(offset time.Duration) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.pos = max(0, offset.Seconds()*float64(s.buf.SampleRate()))
}

// Stop ends playback now.
func (s *BufferSource) Stop() {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()

	s.finish()
}

// StopAt ends playback once the render clock reaches at.
func (s *BufferSource) StopAt(at time.Duration) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()

	s.stopAt = at
}

// Done is closed when the source ends or is stopped.
func (s *BufferSource) Done() <-chan struct{} { return s.done }

func (s *BufferSource) Ended() bool {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()

	return s.ended
}

// Position is the read position in the buffer.
func (s *BufferSource) Position() time.Duration {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()

	return time.Duration(s.pos / float64(s.buf.SampleRate()) * float64(time.Second))
}

func (s *BufferSource) finish() {
	if s.ended {
		return
	}
	s.ended = true
	close(s.done)
}

func (s *BufferSource) at(ch, i int) float32 {
	data := s.buf.Channel(ch)
	n := len(data)
	if s.loop {
		i %= n
		if i < 0 {
			i += n
		}
		return data[i]
	}
	return data[min(max(i, 0), n-1)]
}

func (s *BufferSource) sample(ch int, pos float64) float64 {
	i := int(pos)
	x := float32(pos - float64(i))
	return float64(utils.CubicInterpolate(s.at(ch, i-1), s.at(ch, i), s.at(ch, i+1), s.at(ch, i+2), x))
}

func (s *BufferSource) render(buf [][2]float64, t time.Duration) {
	clear(buf)
	if !s.started || s.ended {
		return
	}

	frames := float64(s.buf.Frames())
	step := s.PlaybackRate.valueAt(t) * s.step

	limit := len(buf)
	if s.stopAt >= 0 {
		limit = min(limit, s.ctx.rate.N(s.stopAt-t))
	}

	stereo := s.buf.Channels() > 1
	for i := range buf {
		if i >= limit {
			s.finish()
			return
		}
		if s.pos >= frames {
			if !s.loop || frames == 0 {
				s.finish()
				return
			}
			s.pos = math.Mod(s.pos, frames)
		}

		l := s.sample(0, s.pos)
		r := l
		if stereo {
			r = s.sample(1, s.pos)
		}
		buf[i] = [2]float64{l, r}
		s.pos += step
	}
}
