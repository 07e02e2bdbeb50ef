// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"time"

	"github.com/ik5/audplay/audio"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Convolver filters its input mix through an impulse response using
// uniformly partitioned overlap-save convolution. Processing happens in
// Quantum sized blocks, so a non-trivial impulse adds Quantum frames of
// latency. Until SetImpulse is called it passes audio through unchanged.
type Convolver struct {
	node

	unit    bool
	fft     *fourier.FFT
	spectra [2][][]complex128 // impulse partitions per output channel
	fdl     [2][][]complex128 // spectra of past input blocks
	head    int
	input   [2][]float64 // previous block followed by the block being filled
	output  [2][]float64 // last processed block, played back during the next
	fill    int
	acc     []complex128
	seq     []float64
}

func (c *Context) NewConvolver() *Convolver {
	return &Convolver{
		node: node{ctx: c, name: "convolver", sink: true},
		unit: true,
	}
}

// SetImpulse installs ir. Mono impulses apply to both channels.
func (v *Convolver) SetImpulse(ir *audio.Buffer) {
	const block = Quantum
	size := 2 * block
	fft := fourier.NewFFT(size)
	parts := (ir.Frames() + block - 1) / block

	var spectra, fdl [2][][]complex128
	var input, output [2][]float64
	seg := make([]float64, size)
	for ch := range 2 {
		data := ir.Channel(min(ch, ir.Channels()-1))
		spectra[ch] = make([][]complex128, parts)
		fdl[ch] = make([][]complex128, parts)
		for p := range parts {
			clear(seg)
			for i, s := range data[p*block : min((p+1)*block, len(data))] {
				seg[i] = float64(s)
			}
			spectra[ch][p] = fft.Coefficients(nil, seg)
			fdl[ch][p] = make([]complex128, size/2+1)
		}
		input[ch] = make([]float64, size)
		output[ch] = make([]float64, block)
	}

	v.ctx.mu.Lock()
	defer v.ctx.mu.Unlock()

	v.unit = parts == 0
	v.fft = fft
	v.spectra, v.fdl = spectra, fdl
	v.input, v.output = input, output
	v.head, v.fill = 0, 0
	v.acc = make([]complex128, size/2+1)
	v.seq = make([]float64, size)
}

func (v *Convolver) process() {
	const block = Quantum
	parts := len(v.spectra[0])
	scale := 1 / float64(2*block)

	for ch := range 2 {
		v.fft.Coefficients(v.fdl[ch][v.head], v.input[ch])

		clear(v.acc)
		for p := range parts {
			x := v.fdl[ch][(v.head-p+parts)%parts]
			h := v.spectra[ch][p]
			for k := range v.acc {
				v.acc[k] += x[k] * h[k]
			}
		}

		v.fft.Sequence(v.seq, v.acc)
		for j := range block {
			v.output[ch][j] = v.seq[block+j] * scale
		}
		copy(v.input[ch][:block], v.input[ch][block:])
	}
	v.head = (v.head + 1) % parts
}

func (v *Convolver) render(buf [][2]float64, t time.Duration) {
	v.mix(buf, t)
	if v.unit {
		return
	}

	for i := range buf {
		v.input[0][Quantum+v.fill] = buf[i][0]
		v.input[1][Quantum+v.fill] = buf[i][1]
		buf[i] = [2]float64{v.output[0][v.fill], v.output[1][v.fill]}

		v.fill++
		if v.fill == Quantum {
			v.process()
			v.fill = 0
		}
	}
}
