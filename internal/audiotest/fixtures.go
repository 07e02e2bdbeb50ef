// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"os"
	"testing"
	"time"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/formats/wav"
)

// Buffer builds a planar buffer of the given length from wave.
func Buffer(tb testing.TB, rate, channels int, d time.Duration, wave Waveform) *audio.Buffer {
	tb.Helper()

	frames := int(d.Seconds() * float64(rate))
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
		for i := range frames {
			data[ch][i] = wave(i, ch)
		}
	}

	buf, err := audio.NewBuffer(rate, data)
	if err != nil {
		tb.Fatalf("audiotest: %v", err)
	}
	return buf
}

// RampBuffer is a mono buffer whose value at time t is t/d.
func RampBuffer(tb testing.TB, rate int, d time.Duration) *audio.Buffer {
	tb.Helper()
	return Buffer(tb, rate, 1, d, Ramp(int(d.Seconds()*float64(rate))))
}

// WriteWAV writes mono 16-bit samples to path.
func WriteWAV(tb testing.TB, path string, rate int, samples []int16) {
	tb.Helper()

	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("audiotest: %v", err)
	}
	defer f.Close()

	if err := wav.WriteWAV16(f, rate, samples); err != nil {
		tb.Fatalf("audiotest: write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		tb.Fatalf("audiotest: close %s: %v", path, err)
	}
}
