// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/effect"
	"github.com/ik5/audplay/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countedEffect counts how often the chain is wired through it.
type countedEffect struct {
	effect.Effect
	connects *atomic.Int32
}

func (e countedEffect) Connect(next graph.Node) error {
	e.connects.Add(1)
	return e.Effect.Connect(next)
}

type countingFactory struct {
	inner    *effect.Factory
	connects atomic.Int32
}

func (f *countingFactory) CreateEffect(kind effect.Kind) (effect.Effect, error) {
	e, err := f.inner.CreateEffect(kind)
	if err != nil {
		return nil, err
	}
	return countedEffect{Effect: e, connects: &f.connects}, nil
}

func newTestStream(t *testing.T, d time.Duration) (*StreamSession, *graph.Context, *countingFactory) {
	t.Helper()

	g := graph.NewContext(testRate)
	buf := rampBuffer(t, d)
	el, err := g.NewMediaElement(func() (audio.Source, error) { return buf.Reader(), nil })
	require.NoError(t, err)

	f := &countingFactory{inner: effect.NewFactory(g, nil)}
	return NewStreamSession(g, el, "/music/theme.ogg", WithEffectFactory(f)), g, f
}

func TestStream_PauseKeepsPositionStopResets(t *testing.T) {
	t.Parallel()

	s, g, _ := newTestStream(t, 10*time.Second)
	require.NoError(t, s.Pause())
	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.Play())
	assert.True(t, s.IsPlaying())

	g.Render(500 * time.Millisecond)
	assert.InDelta(t, 500*time.Millisecond, s.CurrentTime(), float64(5*time.Millisecond))

	require.NoError(t, s.Pause())
	assert.Equal(t, Paused, s.State())
	paused := s.CurrentTime()
	assert.InDelta(t, 500*time.Millisecond, paused, float64(5*time.Millisecond))

	// a paused stream does not advance
	g.Render(500 * time.Millisecond)
	assert.Equal(t, paused, s.CurrentTime())

	require.NoError(t, s.Play())
	g.Render(250 * time.Millisecond)
	assert.InDelta(t, 750*time.Millisecond, s.CurrentTime(), float64(5*time.Millisecond))

	require.NoError(t, s.Stop())
	assert.Equal(t, Stopped, s.State())
	assert.Zero(t, s.CurrentTime())
	assert.Equal(t, s.CurrentTime(), s.Duration())
}

func TestStream_SeekDoesNotRebuild(t *testing.T) {
	t.Parallel()

	s, g, f := newTestStream(t, 10*time.Second)
	_, err := s.AddEffect(effect.Gain)
	require.NoError(t, err)
	require.NoError(t, s.Play())
	require.EqualValues(t, 1, f.connects.Load())

	require.NoError(t, s.Seek(3*time.Second))
	assert.Equal(t, Playing, s.State())
	assert.Equal(t, 3*time.Second, s.CurrentTime())
	assert.EqualValues(t, 1, f.connects.Load())
	assert.Equal(t, []effect.Kind{effect.Gain}, s.Route())

	// the ramp is at 0.3 three seconds in
	out := g.Render(10 * time.Millisecond)
	assert.InDelta(t, 0.3, out[len(out)-1][0], 0.01)
}

func TestStream_EffectsRebuildWhileLive(t *testing.T) {
	t.Parallel()

	s, g, f := newTestStream(t, 10*time.Second)
	require.NoError(t, s.Play())
	g.Render(time.Second)

	pan, err := s.AddEffect(effect.StereoPan)
	require.NoError(t, err)
	_, err = s.AddEffect(effect.Gain)
	require.NoError(t, err)
	assert.Equal(t, []effect.Kind{effect.StereoPan, effect.Gain}, s.Route())
	assert.InDelta(t, time.Second, s.CurrentTime(), float64(5*time.Millisecond))
	assert.Positive(t, f.connects.Load())

	require.NoError(t, s.RemoveEffect(pan))
	assert.Equal(t, []effect.Kind{effect.Gain}, s.Route())
	assert.Len(t, s.Effects(), 1)

	require.NoError(t, s.Pause())
	assert.Empty(t, s.Route())
}

func TestStream_SpeedAndLoop(t *testing.T) {
	t.Parallel()

	s, g, _ := newTestStream(t, 10*time.Second)
	assert.ErrorIs(t, s.SetSpeed(0), ErrInvalidPitch)
	require.NoError(t, s.SetPitch(2))
	assert.Equal(t, 2.0, s.Speed())
	require.NoError(t, s.SetLooped(true))

	require.NoError(t, s.Play())
	g.Render(500 * time.Millisecond)
	assert.InDelta(t, time.Second, s.CurrentTime(), float64(10*time.Millisecond))
}

func TestStream_EndsOnItsOwn(t *testing.T) {
	t.Parallel()

	s, g, _ := newTestStream(t, 20*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- s.PlayWait(context.Background()) }()

	require.Eventually(t, func() bool {
		g.Render(50 * time.Millisecond)
		return s.State() == Stopped
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, <-done)

	// playing again starts over
	require.NoError(t, s.Play())
	assert.Zero(t, s.CurrentTime())
	assert.Equal(t, Playing, s.State())
}

func TestStream_Destroy(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStream(t, time.Second)
	gain, err := s.AddEffect(effect.Gain)
	require.NoError(t, err)
	require.NoError(t, s.Play())

	done := make(chan error, 1)
	go func() { done <- gain.Ramp(context.Background(), time.Hour, 0) }()

	require.NoError(t, s.Destroy())
	assert.ErrorIs(t, <-done, effect.ErrCancelled)
	assert.Equal(t, Destroyed, s.State())
	assert.Zero(t, s.CurrentTime())

	assert.ErrorIs(t, s.Play(), ErrStaleSession)
	assert.ErrorIs(t, s.Seek(0), ErrStaleSession)
	assert.ErrorIs(t, s.Destroy(), ErrStaleSession)
}

func TestStream_PauseResumeReleasesWatchers(t *testing.T) {
	t.Parallel()

	s, g, _ := newTestStream(t, 10*time.Second)
	require.NoError(t, s.SetLooped(true))

	for range 50 {
		require.NoError(t, s.Play())
		g.Render(10 * time.Millisecond)
		require.NoError(t, s.Pause())
	}

	done := make(chan struct{})
	go func() {
		s.watchers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watchers still running after pause")
	}
	assert.Equal(t, Paused, s.State())
}
