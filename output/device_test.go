// SPDX-License-Identifier: EPL-2.0

package output

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/ik5/audplay/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameAt(t *testing.T, p []byte, i int) (float32, float32) {
	t.Helper()

	off := i * frameSize
	require.GreaterOrEqual(t, len(p), off+frameSize)
	return math.Float32frombits(binary.LittleEndian.Uint32(p[off:])),
		math.Float32frombits(binary.LittleEndian.Uint32(p[off+4:]))
}

func TestReader_Interleaves(t *testing.T) {
	t.Parallel()

	i := 0
	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for j := range samples {
			samples[j] = [2]float64{float64(i) / 10, -float64(i) / 10}
			i++
		}
		return len(samples), true
	})

	r := NewReader(src)
	p := make([]byte, 4*frameSize+3)
	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 4*frameSize, n)

	for f := range 4 {
		l, rr := frameAt(t, p, f)
		assert.InDelta(t, float64(f)/10, l, 1e-6)
		assert.InDelta(t, -float64(f)/10, rr, 1e-6)
	}
}

func TestReader_ShortBuffer(t *testing.T) {
	t.Parallel()

	r := NewReader(beep.Silence(-1))
	_, err := r.Read(make([]byte, frameSize-1))
	assert.ErrorIs(t, err, io.ErrShortBuffer)
}

func TestReader_DrainedStreamer(t *testing.T) {
	t.Parallel()

	r := NewReader(beep.Silence(3))
	p := make([]byte, 8*frameSize)

	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 3*frameSize, n)

	_, err = r.Read(p)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_ClosedGraph(t *testing.T) {
	t.Parallel()

	g := graph.NewContext(8000)
	r := NewReader(g)
	p := make([]byte, graph.Quantum*frameSize)

	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, len(p), n)
	assert.Equal(t, graph.Quantum*time.Second/8000, g.CurrentTime())

	require.NoError(t, g.Close())
	_, err = r.Read(p)
	assert.ErrorIs(t, err, graph.ErrClosed)

	_, err = r.Read(p)
	assert.ErrorIs(t, err, io.EOF)
}
