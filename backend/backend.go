// SPDX-License-Identifier: EPL-2.0

// Package backend turns file paths into decoded audio.
//
// FileBackend picks a codec from the file extension through an
// audio.Registry and falls back to content sniffing for anything else.
// Buffers come out at the graph sample rate, so playback never resamples a
// cached asset.
package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/formats/aiff"
	"github.com/ik5/audplay/formats/mp3"
	"github.com/ik5/audplay/formats/native"
	"github.com/ik5/audplay/formats/opus"
	"github.com/ik5/audplay/formats/vorbis"
	"github.com/ik5/audplay/formats/wav"
	"github.com/sirupsen/logrus"
)

// Backend decodes a whole file into memory.
type Backend interface {
	Decode(ctx context.Context, path string) (*audio.Buffer, error)
}

// StreamOpener is implemented by backends that can decode progressively.
// The returned Source owns the file and must be closed by the caller.
type StreamOpener interface {
	OpenStream(path string) (audio.Source, error)
}

// DefaultRegistry maps every supported extension to its decoder.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	r.Register("opus", opus.Decoder{})
	return r
}

// FileBackend decodes audio files from disk, picking the decoder by file
// extension, and resamples them to its sample rate.
type FileBackend struct {
	registry   *audio.Registry
	fallback   audio.Decoder
	sampleRate int
	open       func(path string) (io.ReadCloser, error)
}

// Option configures a FileBackend.
type Option func(*FileBackend)

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *audio.Registry) Option {
	return func(b *FileBackend) { b.registry = r }
}

// WithFallback sets the decoder used for unknown extensions. nil disables
// the fallback, making unknown extensions fail with ErrNoDecoder.
func WithFallback(d audio.Decoder) Option {
	return func(b *FileBackend) { b.fallback = d }
}

// WithOpener replaces os.Open.
func WithOpener(open func(path string) (io.ReadCloser, error)) Option {
	return func(b *FileBackend) { b.open = open }
}

func NewFileBackend(sampleRate int, opts ...Option) *FileBackend {
	b := &FileBackend{
		registry:   DefaultRegistry(),
		fallback:   native.Decoder{},
		sampleRate: sampleRate,
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *FileBackend) SampleRate() int { return b.sampleRate }

// Extensions lists the extensions with a dedicated decoder.
func (b *FileBackend) Extensions() []string { return b.registry.Extensions() }

func (b *FileBackend) decoderFor(path string) (audio.Decoder, error) {
	if d, ok := b.registry.Get(filepath.Ext(path)); ok {
		return d, nil
	}
	if b.fallback != nil {
		logrus.WithFields(logrus.Fields{
			"function": "decoderFor",
			"path":     path,
		}).Debug("No decoder for extension, sniffing content")
		return b.fallback, nil
	}
	return nil, ErrNoDecoder
}

// openSource opens path and wraps its decoder so the file closes with it.
// Sources with more than two channels are folded to mono.
func (b *FileBackend) openSource(path string) (audio.Source, error) {
	dec, err := b.decoderFor(path)
	if err != nil {
		return nil, err
	}

	f, err := b.open(path)
	if err != nil {
		return nil, err
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	var out audio.Source = &fileSource{Source: src, file: f}
	if out.Channels() > 2 {
		out = audio.NewMonoMixer(out)
	}
	return out, nil
}

func (b *FileBackend) Decode(ctx context.Context, path string) (*audio.Buffer, error) {
	logrus.WithFields(logrus.Fields{
		"function": "Decode",
		"path":     path,
	}).Debug("Decoding file")

	src, err := b.openSource(path)
	if err != nil {
		return nil, b.fail("Decode", path, err)
	}
	if src.SampleRate() != b.sampleRate {
		src = audio.NewResampler(src, b.sampleRate)
	}

	buf, err := audio.ReadAll(ctx, src)
	if err != nil {
		return nil, b.fail("Decode", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Decode",
		"path":     path,
		"channels": buf.Channels(),
		"frames":   buf.Frames(),
		"duration": buf.Duration(),
	}).Debug("Decoded file")

	return buf, nil
}

// OpenStream returns the file's native-rate source for progressive playback.
func (b *FileBackend) OpenStream(path string) (audio.Source, error) {
	src, err := b.openSource(path)
	if err != nil {
		return nil, b.fail("OpenStream", path, err)
	}
	return src, nil
}

func (b *FileBackend) fail(function, path string, err error) error {
	logrus.WithFields(logrus.Fields{
		"function": function,
		"path":     path,
		"error":    err.Error(),
	}).Error("Decode failed")
	return &DecodeError{Path: path, Err: err}
}

type fileSource struct {
	audio.Source
	file io.Closer
}

func (s *fileSource) Close() error {
	srcErr := s.Source.Close()
	if err := s.file.Close(); err != nil {
		return err
	}
	return srcErr
}
