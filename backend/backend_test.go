// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/audplay/formats/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, name string, rate, channels, frames int) string {
	t.Helper()

	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.WritePCM16(f, rate, channels, samples))
	require.NoError(t, f.Close())
	return path
}

func TestFileBackend_DecodeSameRate(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "click.wav", 8000, 2, 4000)
	buf, err := NewFileBackend(8000).Decode(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 8000, buf.SampleRate())
	assert.Equal(t, 2, buf.Channels())
	assert.Equal(t, 4000, buf.Frames())
	assert.InDelta(t, 2.0/32768, buf.Channel(0)[1], 1e-6)
}

func TestFileBackend_DecodeResamples(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "tone.WAV", 8000, 1, 8000)
	buf, err := NewFileBackend(16000).Decode(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 16000, buf.SampleRate())
	assert.InDelta(t, 16000, buf.Frames(), 8)
}

func TestFileBackend_FoldsSurroundToMono(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "surround.wav", 8000, 4, 100)
	buf, err := NewFileBackend(8000).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, buf.Channels())
}

func TestFileBackend_NativeFallback(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "mystery.snd", 8000, 1, 50)

	buf, err := NewFileBackend(8000).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 50, buf.Frames())

	_, err = NewFileBackend(8000, WithFallback(nil)).Decode(context.Background(), path)
	require.ErrorIs(t, err, ErrNoDecoder)
}

func TestFileBackend_DecodeErrorCarriesPath(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing.ogg")
	_, err := NewFileBackend(44100).Decode(context.Background(), missing)

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, missing, derr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), missing)
}

func TestFileBackend_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a riff file"), 0o600))

	_, err := NewFileBackend(44100).Decode(context.Background(), path)
	require.ErrorIs(t, err, wav.ErrNotWavFile)
}

type trackingCloser struct {
	*os.File
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return c.File.Close()
}

func TestFileBackend_OpenStreamOwnsFile(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "long.wav", 22050, 1, 22050)
	var opened *trackingCloser
	b := NewFileBackend(48000, WithOpener(func(p string) (io.ReadCloser, error) {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		opened = &trackingCloser{File: f}
		return opened, nil
	}))

	src, err := b.OpenStream(path)
	require.NoError(t, err)
	assert.Equal(t, 22050, src.SampleRate(), "streams keep their native rate")

	n, err := src.ReadSamples(make([]float32, 256))
	require.NoError(t, err)
	assert.Equal(t, 256, n)

	require.NoError(t, src.Close())
	assert.True(t, opened.closed)
}

func TestFileBackend_DecodeCancelled(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "a.wav", 8000, 1, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileBackend(8000).Decode(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"aif", "aiff", "mp3", "oga", "ogg", "opus", "wav"},
		NewFileBackend(44100).Extensions())
}

func TestDecodeError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := error(&DecodeError{Path: "/a.ogg", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "decode /a.ogg: boom", err.Error())
}
