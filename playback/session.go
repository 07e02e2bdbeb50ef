// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/effect"
	"github.com/ik5/audplay/graph"
	"github.com/sirupsen/logrus"
)

// pitchRamp is a playback rate ramp in progress, anchored at the session's
// start reference.
type pitchRamp struct {
	from, to float64
	d        time.Duration
}

// Session plays a decoded buffer that may be shared with other sessions.
// Every start builds a fresh source node; effects persist across rebuilds.
type Session struct {
	id      uuid.UUID
	path    string
	g       *graph.Context
	owner   Owner
	factory EffectFactory
	clock   Clock

	mu      sync.Mutex
	buf     *audio.Buffer
	state   State
	src     *graph.BufferSource
	effects []effect.Effect
	pitch   float64
	looped  bool
	tag     string

	// offset is the buffer position and wall the unscaled play time at the
	// start reference started.
	offset  time.Duration
	wall    time.Duration
	started time.Time
	ramp    *pitchRamp

	idle   chan struct{} // closed when the session leaves Playing
	life   context.Context
	cancel context.CancelFunc
}

// NewSession binds a session to buf, loaded from path.
func NewSession(g *graph.Context, buf *audio.Buffer, path string, opts ...Option) *Session {
	o := options{clock: systemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.effects == nil {
		o.effects = effect.NewFactory(g, nil)
	}

	life, cancel := context.WithCancel(context.Background())
	return &Session{
		id:      uuid.New(),
		path:    path,
		g:       g,
		owner:   o.owner,
		factory: o.effects,
		clock:   o.clock,
		buf:     buf,
		pitch:   1,
		life:    life,
		cancel:  cancel,
	}
}

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) Path() string  { return s.path }

func (s *Session) log(function string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"function": function,
		"session":  s.id.String(),
		"path":     s.path,
	})
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) IsPlaying() bool {
	return s.State() == Playing
}

// Buffer is the buffer the session plays, nil once destroyed.
func (s *Session) Buffer() *audio.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf
}

func (s *Session) Tag() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tag
}

func (s *Session) SetTag(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tag = tag
}

func (s *Session) Pitch() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pitch
}

func (s *Session) Looped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.looped
}

// Effects returns the chain in signal order.
func (s *Session) Effects() []effect.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.effects)
}

// Play starts playback from the stored position. On a playing session it
// only reapplies loop and pitch.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Destroyed:
		return ErrStaleSession
	case Playing:
		s.configure()
		return nil
	}

	if err := s.start(); err != nil {
		return err
	}

	s.log("Play").WithField("offset", s.offset).Debug("Session playing")
	return nil
}

// PlayWait plays and blocks until the session leaves Playing.
func (s *Session) PlayWait(ctx context.Context) error {
	if err := s.Play(); err != nil {
		return err
	}

	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause keeps the current position for the next Play. It does nothing
// unless the session is playing.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Destroyed:
		return ErrStaleSession
	case Playing:
	default:
		return nil
	}

	s.fold(s.clock.Now())
	s.holdRamp()
	s.teardown()
	s.setState(Paused)

	s.log("Pause").WithField("offset", s.offset).Debug("Session paused")
	return nil
}

// Stop halts playback and rewinds to the start.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	s.teardown()
	s.rewind()
	s.setState(Stopped)

	s.log("Stop").Debug("Session stopped")
	return nil
}

// Seek moves to pos within the buffer. A playing session restarts there and
// keeps playing.
func (s *Session) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	if s.state == Playing {
		s.fold(s.clock.Now())
	}
	s.holdRamp()

	pos = min(max(pos, 0), s.buf.Duration())
	s.offset, s.wall = pos, pos
	if s.state != Playing {
		return nil
	}

	s.teardown()
	return s.start()
}

// SetPitch scales the playback rate. Play time elapsed at the old pitch is
// kept.
func (s *Session) SetPitch(p float64) error {
	if math.IsNaN(p) || p <= 0 || p > graph.MaxPlaybackRate {
		return ErrInvalidPitch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	if s.state == Playing {
		s.fold(s.clock.Now())
	}
	s.ramp = nil
	s.pitch = p
	if s.src != nil {
		s.src.PlaybackRate.SetValue(p)
		s.src.StopAt(-1)
	}
	return nil
}

func (s *Session) SetLooped(looped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	s.looped = looped
	if s.src != nil {
		s.src.SetLoop(looped)
	}
	return nil
}

// PitchRamp moves the playback rate linearly to target over d and returns
// once d has passed. A target of 0 stops the session at the end of the ramp.
func (s *Session) PitchRamp(ctx context.Context, d time.Duration, target float64) error {
	if math.IsNaN(target) || target < 0 || target > graph.MaxPlaybackRate {
		return ErrInvalidPitch
	}

	s.mu.Lock()
	switch s.state {
	case Destroyed:
		s.mu.Unlock()
		return ErrStaleSession
	case Playing:
	default:
		s.mu.Unlock()
		return ErrNotPlaying
	}

	s.fold(s.clock.Now())
	d = max(d, 0)
	r := &pitchRamp{from: s.currentPitch(), to: target, d: d}
	s.ramp = r
	s.scheduleRamp()
	life := s.life
	s.mu.Unlock()

	s.log("PitchRamp").WithFields(logrus.Fields{
		"target":   target,
		"duration": d,
	}).Debug("Pitch ramp scheduled")

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-life.Done():
		return ErrCancelled
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ramp == r {
			s.fold(s.clock.Now())
			s.holdRamp()
			if s.src != nil {
				s.src.PlaybackRate.SetValue(s.pitch)
				s.src.StopAt(-1)
			}
		}
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ramp != r || s.state != Playing {
		return nil
	}
	s.fold(s.clock.Now())
	s.ramp = nil
	if target > 0 {
		s.pitch = target
		return nil
	}

	s.teardown()
	s.rewind()
	s.setState(Stopped)
	s.log("PitchRamp").Debug("Session stopped by pitch ramp")
	return nil
}

// AddEffect appends a new effect to the chain. A playing session rebuilds
// its chain in place and carries on from where it was.
func (s *Session) AddEffect(kind effect.Kind) (effect.Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return nil, ErrStaleSession
	}

	e, err := s.factory.CreateEffect(kind)
	if err != nil {
		return nil, err
	}
	s.effects = append(s.effects, e)

	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return e, nil
}

// RemoveEffect drops e from the chain and cancels its automation. Effects
// that are not part of the chain are ignored.
func (s *Session) RemoveEffect(e effect.Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	i := slices.Index(s.effects, e)
	if i < 0 {
		return nil
	}

	s.effects = slices.Delete(s.effects, i, i+1)
	e.Close()

	return s.rebuild()
}

// Reverse substitutes a sample-reversed copy of the buffer. Other sessions
// sharing the original buffer are unaffected. A playing session restarts
// from the beginning of the reversed audio.
func (s *Session) Reverse() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	s.buf = s.buf.Reverse()
	if s.state != Playing {
		return nil
	}

	s.teardown()
	s.rewind()
	return s.start()
}

// Route lists the effect kinds along the live chain, source first. It is
// empty while no chain is built.
func (s *Session) Route() []effect.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return nil
	}
	return route(s.g, s.src, s.effects)
}

// CurrentTime is the position of a playing or paused session. withRate
// reports the position within the buffer, scaled by pitch; otherwise the
// raw play time is reported. Destroyed sessions report 0.
func (s *Session) CurrentTime(withRate bool) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return 0
	}

	var e time.Duration
	if s.state == Playing {
		e = max(s.clock.Now().Sub(s.started), 0)
	}
	if !withRate {
		return s.wall + e
	}
	return s.clamp(s.musical(e))
}

// Duration of the buffer, 0 once destroyed.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return 0
	}
	return s.buf.Duration()
}

// Destroy tears the session down for good, cancels pending automation and
// releases the asset. Later calls return ErrStaleSession.
func (s *Session) Destroy() error {
	s.mu.Lock()
	if s.state == Destroyed {
		s.mu.Unlock()
		return ErrStaleSession
	}

	s.teardown()
	for _, e := range s.effects {
		e.Close()
	}
	s.effects = nil
	s.buf = nil
	s.setState(Destroyed)
	s.cancel()
	owner := s.owner
	s.mu.Unlock()

	s.log("Destroy").Debug("Session destroyed")

	if owner != nil {
		owner.Release(s)
	}
	return nil
}

// start builds a chain at the stored offset and enters Playing.
func (s *Session) start() error {
	src := s.g.NewBufferSource(s.buf)
	s.src = src
	s.configure()
	s.scheduleRamp()

	if err := connectChain(s.g, src, s.effects); err != nil {
		s.teardown()
		return err
	}
	src.Start(s.offset)

	s.started = s.clock.Now()
	s.setState(Playing)
	go s.watch(src)
	return nil
}

// rebuild reconnects the chain of a playing session at its current position.
func (s *Session) rebuild() error {
	if s.state != Playing {
		return nil
	}

	s.fold(s.clock.Now())
	s.teardown()
	s.log("rebuild").WithField("effects", len(s.effects)).Debug("Chain rebuilt")
	return s.start()
}

func (s *Session) configure() {
	if s.src == nil {
		return
	}
	s.src.SetLoop(s.looped)
	if s.ramp == nil {
		s.src.PlaybackRate.SetValue(s.pitch)
	}
}

// scheduleRamp replays the remainder of an active ramp onto the live source.
func (s *Session) scheduleRamp() {
	r := s.ramp
	if r == nil || s.src == nil {
		return
	}

	end := s.g.CurrentTime() + r.d
	s.src.PlaybackRate.SetValue(r.from)
	s.src.PlaybackRate.LinearRampToValueAtTime(r.to, end)
	if r.to == 0 {
		s.src.StopAt(end)
	} else {
		s.src.StopAt(-1)
	}
}

func (s *Session) teardown() {
	if s.src == nil {
		return
	}
	disconnectChain(s.g, s.src, s.effects)
	s.src.Stop()
	s.src = nil
}

// holdRamp abandons a ramp in progress, keeping the pitch it had reached.
func (s *Session) holdRamp() {
	if r := s.ramp; r != nil {
		if r.from > 0 {
			s.pitch = r.from
		}
		s.ramp = nil
	}
}

func (s *Session) rewind() {
	s.offset, s.wall = 0, 0
	s.ramp = nil
}

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	if st == Playing {
		s.idle = make(chan struct{})
	} else if s.state == Playing {
		close(s.idle)
	}
	s.state = st
}

// watch moves the session to Stopped when src runs out on its own.
func (s *Session) watch(src *graph.BufferSource) {
	select {
	case <-src.Done():
	case <-s.life.Done():
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src != src || s.state != Playing {
		return
	}
	s.teardown()
	s.rewind()
	s.setState(Stopped)

	s.log("watch").Debug("Session ended")
}

func (s *Session) currentPitch() float64 {
	if s.ramp != nil {
		return s.ramp.from
	}
	return s.pitch
}

// musical is the buffer position after e of play time from the start reference.
func (s *Session) musical(e time.Duration) time.Duration {
	r := s.ramp
	if r == nil {
		return s.offset + scale(e, s.pitch)
	}
	if e >= r.d {
		return s.offset + scale(r.d, (r.from+r.to)/2) + scale(e-r.d, r.to)
	}
	frac := float64(e) / float64(r.d)
	return s.offset + scale(e, r.from+(r.to-r.from)*frac/2)
}

// fold moves play time since the start reference into the stored position
// and re-anchors the start reference, and any ramp in progress, at now.
func (s *Session) fold(now time.Time) {
	e := max(now.Sub(s.started), 0)
	s.offset = s.clamp(s.musical(e))
	s.wall += e
	s.started = now

	r := s.ramp
	if r == nil {
		return
	}
	if e >= r.d {
		if r.to > 0 {
			s.pitch = r.to
		}
		r.from, r.d = r.to, 0
		return
	}
	r.from += (r.to - r.from) * float64(e) / float64(r.d)
	r.d -= e
}

// clamp keeps pos inside the buffer, wrapping for looped sessions.
func (s *Session) clamp(pos time.Duration) time.Duration {
	d := s.buf.Duration()
	if s.looped && d > 0 {
		return pos % d
	}
	return min(pos, d)
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}
