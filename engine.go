// SPDX-License-Identifier: EPL-2.0

package audplay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ik5/audplay/assets"
	"github.com/ik5/audplay/backend"
	"github.com/ik5/audplay/graph"
	"github.com/ik5/audplay/output"
	"github.com/ik5/audplay/playback"
	"github.com/sirupsen/logrus"
)

// Engine owns one render graph, the asset manager feeding it and, once
// started, the output device playing it.
type Engine struct {
	cfg    Config
	g      *graph.Context
	assets *assets.Manager

	mu     sync.Mutex
	device *output.Device
	closed bool
}

type engineOptions struct {
	backend  backend.Backend
	sessions []playback.Option
}

type Option func(*engineOptions)

// WithBackend replaces the default file backend.
func WithBackend(b backend.Backend) Option {
	return func(o *engineOptions) { o.backend = b }
}

func WithSessionOptions(opts ...playback.Option) Option {
	return func(o *engineOptions) { o.sessions = append(o.sessions, opts...) }
}

func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = backend.NewFileBackend(cfg.SampleRate)
	}

	g := graph.NewContext(cfg.SampleRate)
	m := assets.New(g, o.backend,
		assets.WithBasePath(cfg.BasePath),
		assets.WithExtension(cfg.Extension),
		assets.WithSessionOptions(o.sessions...),
	)

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"base_path":   cfg.BasePath,
		"extension":   cfg.Extension,
		"sample_rate": cfg.SampleRate,
	}).Debug("Engine created")

	return &Engine{cfg: cfg, g: g, assets: m}, nil
}

func (e *Engine) Config() Config          { return e.cfg }
func (e *Engine) Graph() *graph.Context   { return e.g }
func (e *Engine) Assets() *assets.Manager { return e.assets }

// Start opens the output device, if needed, and plays the graph on it.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.device == nil {
		d, err := output.Open(e.g, e.cfg.SampleRate, e.cfg.BufferSize)
		if err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
		e.device = d
	}
	return e.device.Play()
}

// Suspend pauses the output device. The graph clock stops with it.
func (e *Engine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if e.device == nil {
		return nil
	}
	return e.device.Pause()
}

// Render pulls d of audio from the graph without a device and returns it
// as mono 16-bit PCM at rate. It must not be mixed with Start.
func (e *Engine) Render(d time.Duration, rate int) ([]int16, error) {
	return RenderToMono16(e.g, d, rate)
}

// Close releases the device, the asset cache and the graph.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.closed = true

	var errs []error
	if e.device != nil {
		if err := e.device.Close(); err != nil {
			errs = append(errs, err)
		}
		e.device = nil
	}
	if err := e.assets.Destroy(); err != nil {
		errs = append(errs, err)
	}

	logrus.WithField("function", "Close").Debug("Engine closed")
	return errors.Join(errs...)
}
