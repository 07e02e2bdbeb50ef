// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ik5/audplay/effect"
	"github.com/ik5/audplay/graph"
	"github.com/sirupsen/logrus"
)

// StreamSession plays media progressively through a graph.MediaElement.
// Unlike Session it never holds the decoded audio, and seeking moves the
// element directly without rebuilding the chain.
type StreamSession struct {
	id      uuid.UUID
	path    string
	g       *graph.Context
	factory EffectFactory

	mu       sync.Mutex
	el       *graph.MediaElement
	node     *graph.MediaSource
	live     bool
	state    State
	effects  []effect.Effect
	position time.Duration
	speed    float64
	looped   bool
	tag      string
	stop     chan struct{}
	watchers sync.WaitGroup

	idle   chan struct{}
	life   context.Context
	cancel context.CancelFunc
}

// NewStreamSession plays el. The session owns el and closes it on Destroy.
func NewStreamSession(g *graph.Context, el *graph.MediaElement, path string, opts ...Option) *StreamSession {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.effects == nil {
		o.effects = effect.NewFactory(g, nil)
	}

	life, cancel := context.WithCancel(context.Background())
	return &StreamSession{
		id:      uuid.New(),
		path:    path,
		g:       g,
		factory: o.effects,
		el:      el,
		node:    g.NewMediaSource(el),
		speed:   1,
		life:    life,
		cancel:  cancel,
	}
}

func (s *StreamSession) ID() uuid.UUID { return s.id }
func (s *StreamSession) Path() string  { return s.path }

func (s *StreamSession) log(function string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"function": function,
		"stream":   s.id.String(),
		"path":     s.path,
	})
}

func (s *StreamSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *StreamSession) IsPlaying() bool {
	return s.State() == Playing
}

func (s *StreamSession) Tag() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tag
}

func (s *StreamSession) SetTag(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tag = tag
}

// Err reports a decode error that ended the stream early.
func (s *StreamSession) Err() error {
	return s.el.Err()
}

// Play positions the stream and starts it. On a playing stream it only
// reapplies loop and speed.
func (s *StreamSession) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Destroyed:
		return ErrStaleSession
	case Playing:
		s.configure()
		return nil
	}

	if s.el.Ended() || s.el.CurrentTime() != s.position {
		if err := s.el.SetCurrentTime(s.position); err != nil {
			return err
		}
	}
	if err := s.build(); err != nil {
		return err
	}
	s.configure()
	s.el.Play()
	s.setState(Playing)

	s.stop = make(chan struct{})
	s.watchers.Add(1)
	go s.watch(s.stop)

	s.log("Play").WithField("position", s.position).Debug("Stream playing")
	return nil
}

// PlayWait plays and blocks until the stream leaves Playing.
func (s *StreamSession) PlayWait(ctx context.Context) error {
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

// Pause keeps the stream position for the next Play.
func (s *StreamSession) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Destroyed:
		return ErrStaleSession
	case Playing:
	default:
		return nil
	}

	s.position = s.el.CurrentTime()
	s.teardown()
	s.setState(Paused)

	s.log("Pause").WithField("position", s.position).Debug("Stream paused")
	return nil
}

func (s *StreamSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	s.position = 0
	s.teardown()
	s.setState(Stopped)

	s.log("Stop").Debug("Stream stopped")
	return nil
}

// Seek sets the stream position in place. A playing stream keeps playing
// through the same chain.
func (s *StreamSession) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	pos = max(pos, 0)
	if err := s.el.SetCurrentTime(pos); err != nil {
		return err
	}
	s.position = pos
	return nil
}

// SetSpeed changes speed and pitch together.
func (s *StreamSession) SetSpeed(v float64) error {
	if math.IsNaN(v) || v <= 0 || v > graph.MaxPlaybackRate {
		return ErrInvalidPitch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	s.speed = v
	s.configure()
	return nil
}

// SetPitch is SetSpeed; a stream cannot change one without the other.
func (s *StreamSession) SetPitch(p float64) error { return s.SetSpeed(p) }

func (s *StreamSession) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.speed
}

func (s *StreamSession) SetLooped(looped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	s.looped = looped
	s.configure()
	return nil
}

// AddEffect appends an effect; a live chain is rebuilt while the stream
// keeps its position.
func (s *StreamSession) AddEffect(kind effect.Kind) (effect.Effect, error) {
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

	if s.live {
		s.unwire()
		if err := s.build(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (s *StreamSession) RemoveEffect(e effect.Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	i := slices.Index(s.effects, e)
	if i < 0 {
		return nil
	}

	if s.live {
		s.unwire()
	}
	s.effects = slices.Delete(s.effects, i, i+1)
	e.Close()

	if s.live {
		return s.build()
	}
	return nil
}

func (s *StreamSession) Effects() []effect.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.effects)
}

func (s *StreamSession) Route() []effect.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live {
		return nil
	}
	return route(s.g, s.node, s.effects)
}

// CurrentTime reads the stream's own position while playing and the stored
// position otherwise.
func (s *StreamSession) CurrentTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Destroyed:
		return 0
	case Playing:
		return s.el.CurrentTime()
	}
	return s.position
}

// Duration of a stream is not known up front; it reports how far the
// stream has been read, like CurrentTime.
func (s *StreamSession) Duration() time.Duration {
	return s.CurrentTime()
}

func (s *StreamSession) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Destroyed {
		return ErrStaleSession
	}

	s.teardown()
	for _, e := range s.effects {
		e.Close()
	}
	s.effects = nil
	s.setState(Destroyed)
	s.cancel()

	s.log("Destroy").Debug("Stream destroyed")
	return s.el.Close()
}

func (s *StreamSession) configure() {
	s.el.SetLoop(s.looped)
	s.el.SetPlaybackRate(s.speed)
}

func (s *StreamSession) build() error {
	if err := connectChain(s.g, s.node, s.effects); err != nil {
		s.unwire()
		return err
	}
	s.live = true
	return nil
}

func (s *StreamSession) unwire() {
	disconnectChain(s.g, s.node, s.effects)
	s.live = false
}

func (s *StreamSession) teardown() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.el.Pause()
	if s.live {
		s.unwire()
	}
}

func (s *StreamSession) setState(st State) {
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

// watch stops the session when the element reaches the end. It exits when
// stop is closed by teardown. A seek can revive an ended element, so the
// done channel is picked up again each round.
func (s *StreamSession) watch(stop chan struct{}) {
	defer s.watchers.Done()

	for {
		done := s.el.Done()
		select {
		case <-done:
		case <-stop:
			return
		case <-s.life.Done():
			return
		}

		s.mu.Lock()
		if s.stop != stop || s.state != Playing {
			s.mu.Unlock()
			return
		}
		if s.el.Ended() {
			s.position = 0
			s.teardown()
			s.setState(Stopped)
			s.mu.Unlock()

			s.log("watch").Debug("Stream ended")
			return
		}
		s.mu.Unlock()
	}
}
