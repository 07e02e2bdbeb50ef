// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// high enough that a render quantum is a few milliseconds
const testRate = 48000

func constBuffer(t *testing.T, frames int, v float32) *audio.Buffer {
	t.Helper()

	data := make([]float32, frames)
	for i := range data {
		data[i] = v
	}
	buf, err := audio.NewBuffer(testRate, [][]float32{data})
	require.NoError(t, err)
	return buf
}

// wire plays a constant buffer through e into the destination.
func wire(t *testing.T, g *graph.Context, e Effect, v float32) {
	t.Helper()

	src := g.NewBufferSource(constBuffer(t, 10*testRate, v))
	require.NoError(t, g.Connect(src, e.Node()))
	require.NoError(t, e.Connect(g.Destination()))
	src.Start(0)
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Kind
	}{
		{"gain", Gain},
		{"GAIN", Gain},
		{"pan", StereoPan},
		{"stereo-pan", StereoPan},
		{" reverb ", Reverb},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseKind("chorus")
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Equal(t, "stereo-pan", StereoPan.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestFactory_CreateEffect(t *testing.T) {
	t.Parallel()

	f := NewFactory(graph.NewContext(testRate), nil)
	for _, k := range []Kind{Gain, StereoPan, Reverb} {
		e, err := f.CreateEffect(k)
		require.NoError(t, err)
		assert.Equal(t, k, e.Kind())
		assert.NotNil(t, e.Node())
		assert.False(t, e.Connected())
	}

	_, err := f.CreateEffect(Kind(0))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestGain_SetValueScalesOutput(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, nil).CreateEffect(Gain)
	require.NoError(t, err)
	wire(t, g, e, 0.5)

	assert.InDelta(t, 1, e.Value(), 1e-9)
	e.SetValue(0.5)
	out := g.Render(100 * time.Millisecond)
	assert.InDelta(t, 0.25, out[50][0], 1e-9)
}

func TestConnectDisconnect(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, nil).CreateEffect(StereoPan)
	require.NoError(t, err)

	require.NoError(t, e.Connect(g.Destination()))
	assert.True(t, e.Connected())
	assert.Equal(t, g.Destination(), g.Path(e.Node())[1])

	e.Disconnect()
	assert.False(t, e.Connected())
	assert.Len(t, g.Path(e.Node()), 1)

	err = e.Ramp(context.Background(), time.Millisecond, 1)
	assert.ErrorIs(t, err, ErrDisconnected)

	require.NoError(t, e.Connect(g.Destination()))
	assert.True(t, e.Connected())
}

func TestRamp_BeforeFirstConnect(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, nil).CreateEffect(Gain)
	require.NoError(t, err)
	require.False(t, e.Connected())

	require.NoError(t, e.Ramp(context.Background(), time.Millisecond, 0.5))
	require.NoError(t, e.Sweep(context.Background(), 2*time.Millisecond, time.Millisecond, 0, 1))

	e.Disconnect()
	assert.ErrorIs(t, e.Ramp(context.Background(), time.Millisecond, 1), ErrDisconnected)
	assert.ErrorIs(t, e.Sweep(context.Background(), 2*time.Millisecond, time.Millisecond, 0, 1), ErrDisconnected)
}

func TestRamp_ReachesTarget(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, nil).CreateEffect(Gain)
	require.NoError(t, err)
	wire(t, g, e, 1)

	start := time.Now()
	require.NoError(t, e.Ramp(context.Background(), 20*time.Millisecond, 0))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	out := g.Render(100 * time.Millisecond)
	ms := testRate / 1000
	assert.Greater(t, out[5*ms][0], out[15*ms][0])
	assert.InDelta(t, 0, out[50*ms][0], 1e-9)
	assert.InDelta(t, 0, e.Value(), 1e-9)
}

func TestRamp_ContextCancelled(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, nil).CreateEffect(Gain)
	require.NoError(t, err)
	wire(t, g, e, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = e.Ramp(ctx, time.Hour, 0)
	assert.ErrorIs(t, err, context.Canceled)

	// cancelled automation is dropped
	g.Render(time.Second)
	assert.InDelta(t, 1, e.Value(), 1e-9)
}

func TestClose_CancelsPendingRamp(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, nil).CreateEffect(Gain)
	require.NoError(t, err)
	wire(t, g, e, 1)

	done := make(chan error, 1)
	go func() { done <- e.Ramp(context.Background(), time.Hour, 0) }()

	e.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("ramp did not return after Close")
	}

	assert.False(t, e.Connected())
	assert.ErrorIs(t, e.Connect(g.Destination()), ErrCancelled)
	assert.ErrorIs(t, e.Sweep(context.Background(), time.Second, time.Millisecond, 0, 1), ErrCancelled)
}

func TestSweep(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, nil).CreateEffect(StereoPan)
	require.NoError(t, err)
	wire(t, g, e, 1)

	assert.ErrorIs(t, e.Sweep(context.Background(), time.Second, 0, -1, 1), ErrInvalidStep)
	assert.ErrorIs(t, e.Sweep(context.Background(), time.Hour, time.Nanosecond, -1, 1), ErrTooManySteps)
	assert.ErrorIs(t, e.Sweep(context.Background(), MaxSweepSteps*time.Millisecond, time.Millisecond, -1, 1), ErrTooManySteps)

	e.SetValue(0.25)
	require.NoError(t, e.Sweep(context.Background(), 20*time.Millisecond, 10*time.Millisecond, -1, 1))

	out := g.Render(100 * time.Millisecond)
	// the sweep starts from hard left
	assert.InDelta(t, 0, out[0][1], 1e-9)
	assert.Greater(t, out[0][0], 0.0)
	// restored afterwards
	assert.InDelta(t, 0.25, e.Value(), 1e-9)
}

type fakeBackend struct {
	buf *audio.Buffer
	err error
}

func (f *fakeBackend) Decode(_ context.Context, _ string) (*audio.Buffer, error) {
	return f.buf, f.err
}

func TestReverb_DefaultIsDry(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, nil).CreateEffect(Reverb)
	require.NoError(t, err)
	wire(t, g, e, 0.5)

	out := g.Render(100 * time.Millisecond)
	assert.InDelta(t, 0.5, out[10][0], 1e-9)

	e.SetValue(0.5)
	out = g.Render(100 * time.Millisecond)
	assert.InDelta(t, 0.25, out[10][0], 1e-9)
}

func TestReverb_SetImpulseResponseFromFile(t *testing.T) {
	t.Parallel()

	ir, err := audio.NewBuffer(testRate, [][]float32{{0, 1}})
	require.NoError(t, err)

	g := graph.NewContext(testRate)
	e, err := NewFactory(g, &fakeBackend{buf: ir}).CreateEffect(Reverb)
	require.NoError(t, err)
	r, ok := e.(*ReverbEffect)
	require.True(t, ok)

	require.NoError(t, r.SetImpulseResponseFromFile(context.Background(), "hall.wav"))
	wire(t, g, e, 1)

	out := g.Render(time.Second)
	assert.InDelta(t, 0, out[graph.Quantum][0], 1e-6)
	assert.InDelta(t, 1, out[graph.Quantum+1][0], 1e-6)
}

func TestReverb_ImpulseErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such file")
	tests := []struct {
		name string
		dec  *fakeBackend
		want error
	}{
		{"no decoder", nil, ErrNoDecoder},
		{"decode fails", &fakeBackend{err: cause}, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewFactory(graph.NewContext(testRate), nil)
			if tt.dec != nil {
				f = NewFactory(graph.NewContext(testRate), tt.dec)
			}
			e, err := f.CreateEffect(Reverb)
			require.NoError(t, err)

			err = e.(*ReverbEffect).SetImpulseResponseFromFile(context.Background(), "ir.wav")
			var ie *ImpulseError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "ir.wav", ie.Path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
