// SPDX-License-Identifier: EPL-2.0

package audplay

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/graph"
	"github.com/ik5/audplay/utils"
)

// ResampleToMono16 converts src to mono 16-bit PCM at targetRate and closes
// it. bufferSize is the number of samples pulled per read.
func ResampleToMono16(src audio.Source, targetRate, bufferSize int) ([]int16, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("%w: %d", audio.ErrInvalidSampleRate, targetRate)
	}
	if bufferSize <= 0 {
		bufferSize = src.BufSize()
	}

	var pipeline audio.Source = src
	if src.SampleRate() != targetRate {
		pipeline = audio.NewResampler(pipeline, targetRate)
	}
	pipeline = audio.NewMonoMixer(pipeline)
	defer pipeline.Close()

	pcm16 := make([]int16, 0, targetRate)
	buf := make([]float32, bufferSize)
	for {
		n, err := pipeline.ReadSamples(buf)
		pcm16 = utils.AppendInt16(pcm16, buf[:n])

		if errors.Is(err, io.EOF) {
			return pcm16, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resample to mono: %w", err)
		}
	}
}

// RenderToMono16 advances g by d and returns what reached the destination
// as mono 16-bit PCM at targetRate.
func RenderToMono16(g *graph.Context, d time.Duration, targetRate int) ([]int16, error) {
	if err := g.Err(); err != nil {
		return nil, err
	}

	frames := g.Render(d)
	left := make([]float32, len(frames))
	right := make([]float32, len(frames))
	for i, f := range frames {
		left[i], right[i] = float32(f[0]), float32(f[1])
	}
	if len(frames) == 0 {
		return []int16{}, nil
	}

	buf, err := audio.NewBuffer(g.SampleRate(), [][]float32{left, right})
	if err != nil {
		return nil, err
	}
	return ResampleToMono16(buf.Reader(), targetRate, 4096)
}
