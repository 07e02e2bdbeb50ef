// SPDX-License-Identifier: EPL-2.0

// Package effect provides the processing stages a playback session chains
// between its source and the output: gain, stereo pan and reverb.
//
// Each effect exposes one scalar parameter. Ramps and sweeps schedule
// automation on the graph clock and then wait in real time for it to play
// out; Close cancels any such wait and freezes the parameter.
package effect

import (
	"context"
	"sync"
	"time"

	"github.com/ik5/audplay/graph"
)

// MaxSweepSteps bounds the automation events a single Sweep schedules.
const MaxSweepSteps = 4096

// Effect is one stage of a signal chain.
type Effect interface {
	Kind() Kind
	// Node is where upstream stages connect into.
	Node() graph.Node
	// Connect routes the effect's output into next.
	Connect(next graph.Node) error
	// Disconnect detaches the effect's output. Ramps and sweeps fail with
	// ErrDisconnected until Connect is called again. An effect that was
	// never connected can still be automated.
	Disconnect()
	Connected() bool

	Value() float64
	SetValue(v float64)
	// Ramp moves the value linearly to `to` over d and returns once d has elapsed.
	Ramp(ctx context.Context, d time.Duration, to float64) error
	// Sweep alternates the value between from and to every step for d, then
	// restores the previous value. It returns after d+step. At most
	// MaxSweepSteps steps fit in d.
	Sweep(ctx context.Context, d, step time.Duration, from, to float64) error

	// Close cancels pending automation and detaches the effect for good.
	Close()
}

// stage implements Effect over a single parameter and an input/output pair
// of graph nodes, which are the same node for simple effects.
type stage struct {
	kind  Kind
	g     *graph.Context
	in    graph.Node
	out   graph.Node
	param *graph.Param

	mu        sync.Mutex
	connected bool
	detached  bool
	closed    chan struct{}
	closeOnce sync.Once
}

func newStage(kind Kind, g *graph.Context, in, out graph.Node, param *graph.Param) *stage {
	return &stage{kind: kind, g: g, in: in, out: out, param: param, closed: make(chan struct{})}
}

func (s *stage) Kind() Kind        { return s.kind }
func (s *stage) Node() graph.Node  { return s.in }

func (s *stage) Connect(next graph.Node) error {
	select {
	case <-s.closed:
		return ErrCancelled
	default:
	}

	if err := s.g.Connect(s.out, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.connected = true
	s.detached = false
	s.mu.Unlock()
	return nil
}

func (s *stage) Disconnect() {
	s.g.Disconnect(s.out)

	s.mu.Lock()
	s.connected = false
	s.detached = true
	s.mu.Unlock()
}

func (s *stage) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connected
}

func (s *stage) Value() float64     { return s.param.Value() }
func (s *stage) SetValue(v float64) { s.param.SetValue(v) }

func (s *stage) ready() error {
	select {
	case <-s.closed:
		return ErrCancelled
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return ErrDisconnected
	}
	return nil
}

func (s *stage) Ramp(ctx context.Context, d time.Duration, to float64) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.param.LinearRampToValueAtTime(to, s.g.CurrentTime()+d)
	return s.wait(ctx, d)
}

func (s *stage) Sweep(ctx context.Context, d, step time.Duration, from, to float64) error {
	if step <= 0 {
		return ErrInvalidStep
	}
	if d/step >= MaxSweepSteps {
		return ErrTooManySteps
	}
	if err := s.ready(); err != nil {
		return err
	}

	old := s.param.Value()
	now := s.g.CurrentTime()
	for i := time.Duration(0); i <= d; i += step {
		s.param.LinearRampToValueAtTime(from, now+i)
		s.param.LinearRampToValueAtTime(to, now+i+step)
	}
	s.param.LinearRampToValueAtTime(old, now+d+step)

	return s.wait(ctx, d+step)
}

// wait blocks for d in real time while the graph plays the automation.
func (s *stage) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-s.closed:
		return ErrCancelled
	case <-ctx.Done():
		s.param.CancelAndHold()
		return ctx.Err()
	}
}

func (s *stage) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.param.CancelAndHold()
		s.Disconnect()
	})
}
