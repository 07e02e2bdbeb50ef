// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audplay/utils"
)

// Resampler converts src to dstRate with cubic interpolation, keeping the
// channel count. When downsampling, a one-pole low-pass runs ahead of the
// interpolator to soften aliasing.
type Resampler struct {
	src      Source
	dstRate  int
	step     float64 // source frames consumed per output frame
	channels int

	// window holds four consecutive source frames, oldest first; output is
	// interpolated between window[1] and window[2] at offset frac.
	window [4][]float32
	filled int
	frac   float64

	in    []float32
	inPos int
	inLen int
	eof   bool

	lowpass bool
	lpState []float32
	done    bool
}

const lowpassAlpha = 0.5

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		step:     float64(src.SampleRate()) / float64(dstRate),
		channels: channels,
		in:       make([]float32, 1024*channels),
		lpState:  make([]float32, channels),
	}
	r.lowpass = r.step > 1
	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// nextFrame copies one source frame into dst. ok is false once src is drained.
func (r *Resampler) nextFrame(dst []float32) (bool, error) {
	for r.inPos+r.channels > r.inLen {
		if r.eof {
			return false, nil
		}
		// keep a partial frame left over from the previous read
		rest := copy(r.in, r.in[r.inPos:r.inLen])
		n, err := r.src.ReadSamples(r.in[rest:])
		r.inPos, r.inLen = 0, rest+n
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return false, fmt.Errorf("%w", err)
		} else if n == 0 {
			r.eof = true
		}
	}

	copy(dst, r.in[r.inPos:r.inPos+r.channels])
	r.inPos += r.channels

	if r.lowpass {
		for c := range dst {
			dst[c] = lowpassAlpha*dst[c] + (1-lowpassAlpha)*r.lpState[c]
			r.lpState[c] = dst[c]
		}
	}

	return true, nil
}

// advance shifts the window by one frame. At the end of the source the last
// frame is repeated so the tail can still be interpolated.
func (r *Resampler) advance() error {
	oldest := r.window[0]
	copy(r.window[:], r.window[1:])
	r.window[3] = oldest

	ok, err := r.nextFrame(r.window[3])
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	copy(r.window[3], r.window[2])
	r.filled--
	if r.filled < 3 {
		r.done = true
		return io.EOF
	}
	return nil
}

func (r *Resampler) prime() error {
	ok, err := r.nextFrame(r.window[1])
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	if r.lowpass {
		// start the filter on the first frame instead of silence
		copy(r.lpState, r.window[1])
	}
	copy(r.window[0], r.window[1])
	r.filled = 2

	for i := 2; i < 4; i++ {
		ok, err = r.nextFrame(r.window[i])
		if err != nil {
			return err
		}
		if !ok {
			copy(r.window[i], r.window[i-1])
			continue
		}
		r.filled++
	}
	if r.filled < 3 {
		// single frame source: hold it for one interpolation step
		r.filled = 3
	}
	return nil
}

// ReadSamples fills dst, whose length must be a multiple of Channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if r.done {
		return 0, io.EOF
	}

	if r.filled == 0 {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	frames := len(dst) / r.channels
	written := 0
	for written < frames {
		for r.frac >= 1 {
			r.frac--
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}

		t := float32(r.frac)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			out[c] = utils.CubicInterpolate(r.window[0][c], r.window[1][c], r.window[2][c], r.window[3][c], t)
		}

		written++
		r.frac += r.step
	}

	return written * r.channels, nil
}
