// SPDX-License-Identifier: EPL-2.0

// Package output plays a render graph on the system audio device.
package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"
)

// frameSize is one interleaved stereo float32 frame in bytes.
const frameSize = 2 * 4

var (
	ErrRateMismatch = errors.New("output device already opened at another sample rate")
	ErrDeviceClosed = errors.New("output device closed")
)

// The system allows a single oto context per process; every Device shares it.
var (
	sharedMu   sync.Mutex
	shared     *oto.Context
	sharedRate int
)

func systemContext(rate int, bufferSize time.Duration) (*oto.Context, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		if sharedRate != rate {
			return nil, fmt.Errorf("%w: open at %d Hz, want %d Hz", ErrRateMismatch, sharedRate, rate)
		}
		return shared, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	shared, sharedRate = ctx, rate
	logrus.WithFields(logrus.Fields{
		"function":    "systemContext",
		"sample_rate": rate,
		"buffer_size": bufferSize,
	}).Info("Audio device ready")
	return shared, nil
}

// Device pulls a streamer, usually a *graph.Context, into the system output.
type Device struct {
	mu     sync.Mutex
	player *oto.Player
	reader *Reader
	closed bool
}

// Open prepares playback of src at rate. The device starts paused.
func Open(src beep.Streamer, rate int, bufferSize time.Duration) (*Device, error) {
	ctx, err := systemContext(rate, bufferSize)
	if err != nil {
		return nil, err
	}

	r := NewReader(src)
	p := ctx.NewPlayer(r)
	p.SetBufferSize(int(float64(rate)*bufferSize.Seconds()) * frameSize)

	return &Device{player: p, reader: r}, nil
}

func (d *Device) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	d.player.Play()
	return nil
}

func (d *Device) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	d.player.Pause()
	return nil
}

func (d *Device) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return !d.closed && d.player.IsPlaying()
}

// Err reports a failure of the underlying player.
func (d *Device) Err() error {
	return d.player.Err()
}

// Close stops playback. The shared system context stays open for later devices.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	d.closed = true
	d.player.Pause()
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("close player: %w", err)
	}
	return nil
}

// Reader renders a streamer as interleaved stereo float32 little-endian
// bytes, the format the device is opened with.
type Reader struct {
	mu   sync.Mutex
	src  beep.Streamer
	buf  [][2]float64
	done bool
}

func NewReader(src beep.Streamer) *Reader {
	return &Reader{src: src}
}

// Read fills p with whole frames. It returns io.EOF once src is drained.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return 0, io.EOF
	}
	frames := len(p) / frameSize
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	if cap(r.buf) < frames {
		r.buf = make([][2]float64, frames)
	}
	n, ok := r.src.Stream(r.buf[:frames])
	for i, f := range r.buf[:n] {
		binary.LittleEndian.PutUint32(p[i*frameSize:], math.Float32bits(float32(f[0])))
		binary.LittleEndian.PutUint32(p[i*frameSize+4:], math.Float32bits(float32(f[1])))
	}

	if !ok {
		r.done = true
		if n == 0 {
			if err := r.src.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
	}
	return n * frameSize, nil
}
