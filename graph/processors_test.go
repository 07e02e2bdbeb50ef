// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"testing"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func through(t *testing.T, ctx *Context, buf *audio.Buffer, stage Node) [][2]float64 {
	t.Helper()

	src := ctx.NewBufferSource(buf)
	require.NoError(t, ctx.Connect(src, stage))
	require.NoError(t, ctx.Connect(stage, ctx.Destination()))
	src.Start(0)
	return ctx.Render(time.Second)
}

func TestGain_Scales(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testRate)
	g := ctx.NewGain()
	g.Gain.SetValue(0.5)

	out := through(t, ctx, constBuffer(t, 1000, 0.5), g)
	assert.InDelta(t, 0.25, out[100][0], 1e-9)
	assert.InDelta(t, 0.25, out[100][1], 1e-9)
}

func TestGain_FollowsAutomation(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testRate)
	g := ctx.NewGain()
	g.Gain.LinearRampToValueAtTime(0, time.Second)

	out := through(t, ctx, constBuffer(t, 1000, 1), g)
	assert.Greater(t, out[10][0], out[500][0])
	assert.Greater(t, out[500][0], out[990][0])
}

func TestStereoPanner_HardLeft(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testRate)
	p := ctx.NewStereoPanner()
	p.Pan.SetValue(-1)

	out := through(t, ctx, constBuffer(t, 1000, 0.5), p)
	assert.Greater(t, out[100][0], 0.0)
	assert.InDelta(t, 0, out[100][1], 1e-9)
}

func impulseBuffer(t *testing.T, frames int, at map[int]float32) *audio.Buffer {
	t.Helper()

	data := make([]float32, frames)
	for i, v := range at {
		data[i] = v
	}
	buf, err := audio.NewBuffer(testRate, [][]float32{data})
	require.NoError(t, err)
	return buf
}

func TestConvolver_DefaultPassesThrough(t *testing.T) {
	t.Parallel()

	ctx := NewContext(testRate)
	out := through(t, ctx, constBuffer(t, 1000, 0.5), ctx.NewConvolver())
	assert.InDelta(t, 0.5, out[0][0], 1e-9)
}

func TestConvolver_Impulse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ir    map[int]float32
		irLen int
		at    int
		want  float64
	}{
		{"one tap delay", map[int]float32{1: 0.5}, 2, Quantum + 1, 0.5},
		{"second partition", map[int]float32{200: 1}, 300, Quantum + 200, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := NewContext(testRate)
			conv := ctx.NewConvolver()
			conv.SetImpulse(impulseBuffer(t, tt.irLen, tt.ir))

			out := through(t, ctx, impulseBuffer(t, 1000, map[int]float32{0: 1}), conv)
			for i, f := range out {
				want := 0.0
				if i == tt.at {
					want = tt.want
				}
				require.InDelta(t, want, f[0], 1e-6, "frame %d", i)
				require.InDelta(t, want, f[1], 1e-6, "frame %d", i)
			}
		})
	}
}
