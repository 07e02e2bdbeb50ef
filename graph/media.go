// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/ik5/audplay/audio"
)

const resampleQuality = 4

// Opener produces a fresh Source positioned at the start of the media.
type Opener func() (audio.Source, error)

// MediaElement plays a Source progressively, never holding the whole file.
// Seeking reopens the source and skips forward.
type MediaElement struct {
	ctx  *Context
	open Opener

	src       audio.Source
	rate      int
	resampler *beep.Resampler

	playing bool
	loop    bool
	speed   float64
	pos     float64 // source frames consumed
	ended   bool
	done    chan struct{}
	err     error
}

// NewMediaElement opens the media once to learn its format.
func (c *Context) NewMediaElement(open Opener) (*MediaElement, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}

	e := &MediaElement{ctx: c, open: open, speed: 1, done: make(chan struct{})}
	e.attach(src, 0)
	return e, nil
}

// attach swaps in src, already positioned at frame pos. Callers hold the lock
// or own e exclusively.
func (e *MediaElement) attach(src audio.Source, pos float64) {
	if e.src != nil {
		e.src.Close()
	}
	e.src = src
	e.rate = src.SampleRate()
	e.pos = pos
	e.resampler = beep.ResampleRatio(resampleQuality, e.ratio(), &sourceStreamer{src: src})
}

func (e *MediaElement) ratio() float64 {
	return float64(e.rate) / float64(e.ctx.rate) * max(e.speed, 0.01)
}

func (e *MediaElement) Play() {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	if !e.ended {
		e.playing = true
	}
}

func (e *MediaElement) Pause() {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	e.playing = false
}

func (e *MediaElement) Paused() bool {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	return !e.playing
}

func (e *MediaElement) SetLoop(loop bool) {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	e.loop = loop
}

// SetPlaybackRate changes speed and pitch together. 0 freezes playback.
func (e *MediaElement) SetPlaybackRate(rate float64) {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	e.speed = min(max(rate, 0), MaxPlaybackRate)
	e.resampler.SetRatio(e.ratio())
}

func (e *MediaElement) PlaybackRate() float64 {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	return e.speed
}

// CurrentTime is the media position.
func (e *MediaElement) CurrentTime() time.Duration {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	return time.Duration(e.pos / float64(e.rate) * float64(time.Second))
}

// SetCurrentTime moves the media position to d. Decoding the skipped part
// happens outside the graph lock.
func (e *MediaElement) SetCurrentTime(d time.Duration) error {
	src, err := e.open()
	if err != nil {
		return err
	}

	skip := int(max(d, 0).Seconds() * float64(src.SampleRate()))
	skipped, err := discard(src, skip)
	if err != nil {
		src.Close()
		return err
	}

	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	e.attach(src, float64(skipped))
	if e.ended {
		e.ended = false
		e.done = make(chan struct{})
	}
	return nil
}

// Done is closed when non-looping playback reaches the end.
func (e *MediaElement) Done() <-chan struct{} {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	return e.done
}

func (e *MediaElement) Ended() bool {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	return e.ended
}

// Err reports the decode error that ended playback, if any.
func (e *MediaElement) Err() error {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	return e.err
}

func (e *MediaElement) Close() error {
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()

	e.playing = false
	if e.src == nil {
		return nil
	}
	err := e.src.Close()
	e.src = nil
	return err
}

func (e *MediaElement) finish() {
	e.playing = false
	if !e.ended {
		e.ended = true
		close(e.done)
	}
}

// pull fills buf while playing. Called with the lock held.
func (e *MediaElement) pull(buf [][2]float64) {
	clear(buf)
	if !e.playing || e.src == nil || e.speed == 0 {
		return
	}

	filled := 0
	reopened := false
	for filled < len(buf) {
		n, ok := e.resampler.Stream(buf[filled:])
		filled += n
		e.pos += float64(n) * e.ratio()
		if n > 0 {
			reopened = false
		}
		if ok && n > 0 {
			continue
		}

		if err := e.resampler.Err(); err != nil {
			e.err = err
			e.finish()
			return
		}
		if !e.loop {
			e.finish()
			return
		}
		if reopened {
			// a fresh source produced nothing; looping it would never fill buf
			e.err = ErrEmptyMedia
			e.finish()
			return
		}

		src, err := e.open()
		if err != nil {
			e.err = err
			e.finish()
			return
		}
		e.attach(src, 0)
		reopened = true
	}
}

// MediaSource is the graph node a MediaElement plays into.
type MediaSource struct {
	node
	el *MediaElement
}

func (c *Context) NewMediaSource(el *MediaElement) *MediaSource {
	return &MediaSource{node: node{ctx: c, name: "media-source"}, el: el}
}

func (m *MediaSource) Element() *MediaElement { return m.el }

func (m *MediaSource) render(buf [][2]float64, _ time.Duration) {
	m.el.pull(buf)
}

// discard reads and drops up to frames frames from src.
func discard(src audio.Source, frames int) (int, error) {
	ch := src.Channels()
	tmp := make([]float32, 4096-4096%ch)
	done := 0
	for done < frames {
		want := min(len(tmp), (frames-done)*ch)
		n, err := src.ReadSamples(tmp[:want])
		done += n / ch
		if errors.Is(err, io.EOF) {
			return done, nil
		}
		if err != nil {
			return done, fmt.Errorf("%w", err)
		}
		if n == 0 {
			return done, nil
		}
	}
	return done, nil
}

// maxEmptyReads bounds consecutive (0, nil) reads before a source counts
// as drained.
const maxEmptyReads = 16

// sourceStreamer adapts an interleaved audio.Source to beep.Streamer. Codecs
// return a frame or packet per read, so Stream keeps reading until samples
// is full: beep treats a short result as the end of the stream.
type sourceStreamer struct {
	src  audio.Source
	tmp  []float32
	tail int // values of a partial frame kept at the front of tmp
	eof  bool
	err  error
}

func (s *sourceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}

	ch := s.src.Channels()
	need := len(samples) * ch
	if len(s.tmp) < need+ch {
		tmp := make([]float32, need+ch)
		copy(tmp, s.tmp[:s.tail])
		s.tmp = tmp
	}

	// reads may run up to one frame past need so they stay frame aligned
	limit := need + ch
	have, empty := s.tail, 0
	for have < need && !s.eof {
		want := limit - have
		want -= want % ch
		n, err := s.src.ReadSamples(s.tmp[have : have+want])
		have += n

		switch {
		case errors.Is(err, io.EOF):
			s.eof = true
		case err != nil:
			s.err = err
		case n == 0:
			empty++
			s.eof = empty >= maxEmptyReads
		default:
			empty = 0
		}
		if s.err != nil {
			break
		}
	}

	frames := min(have/ch, len(samples))
	for i := range frames {
		l := float64(s.tmp[i*ch])
		r := l
		if ch > 1 {
			r = float64(s.tmp[i*ch+1])
		}
		samples[i] = [2]float64{l, r}
	}
	s.tail = copy(s.tmp, s.tmp[frames*ch:have])

	if frames == 0 && (s.eof || s.err != nil) {
		return 0, false
	}
	return frames, true
}

func (s *sourceStreamer) Err() error { return s.err }
