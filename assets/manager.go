// SPDX-License-Identifier: EPL-2.0

// Package assets caches decoded audio and hands out playback sessions bound
// to it.
//
// A Manager decodes each asset path at most once at a time: concurrent
// requests for a path that is still loading wait for the same decode and
// get the same buffer or the same error. Cache entries are reference
// counted by the sessions created from them and dropped when the last of
// those sessions is destroyed.
package assets

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"

	"github.com/ik5/audplay/audio"
	"github.com/ik5/audplay/backend"
	"github.com/ik5/audplay/effect"
	"github.com/ik5/audplay/graph"
	"github.com/ik5/audplay/playback"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultExtension is appended to names that are not full paths.
const DefaultExtension = "ogg"

type entry struct {
	path string
	buf  *audio.Buffer
	refs int
}

// Manager is a reference counted cache of decoded assets and the factory
// for the sessions that play them. It is safe for concurrent use.
type Manager struct {
	g       *graph.Context
	backend backend.Backend
	effects playback.EffectFactory
	opts    []playback.Option

	mu        sync.Mutex
	basePath  string
	ext       string
	entries   map[string]*entry
	owned     map[*playback.Session]*entry
	destroyed bool

	loads singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithBasePath sets the directory names are resolved against.
func WithBasePath(dir string) Option {
	return func(m *Manager) { m.basePath = dir }
}

// WithExtension sets the extension appended to names, without a leading dot.
func WithExtension(ext string) Option {
	return func(m *Manager) { m.ext = audio.NormalizeExt(ext) }
}

// WithSessionOptions passes opts to every session the manager creates.
func WithSessionOptions(opts ...playback.Option) Option {
	return func(m *Manager) { m.opts = append(m.opts, opts...) }
}

// New returns a Manager decoding through b and playing through g. The
// manager takes ownership of both and releases them on Destroy.
func New(g *graph.Context, b backend.Backend, opts ...Option) *Manager {
	m := &Manager{
		g:       g,
		backend: b,
		ext:     DefaultExtension,
		entries: make(map[string]*entry),
		owned:   make(map[*playback.Session]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.effects = effect.NewFactory(g, b)
	return m
}

func (m *Manager) BasePath() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.basePath
}

func (m *Manager) SetBasePath(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.basePath = dir
}

func (m *Manager) Extension() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ext
}

func (m *Manager) SetExtension(ext string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ext = audio.NormalizeExt(ext)
}

// Resolve maps a name to the asset path it is cached under. Full paths are
// used as given; other names are joined to the base path and get the
// default extension.
func (m *Manager) Resolve(name string, full bool) string {
	if full {
		return name
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.basePath, name)
	if m.ext != "" {
		path += "." + m.ext
	}
	return path
}

// Create returns a new session for name, decoding it first unless it is
// already cached.
func (m *Manager) Create(ctx context.Context, name string, full bool) (*playback.Session, error) {
	path := m.Resolve(name, full)

	buf, err := m.acquire(ctx, path)
	if err != nil {
		return nil, err
	}

	opts := append([]playback.Option{
		playback.WithOwner(m),
		playback.WithEffectFactory(m.effects),
	}, m.opts...)

	// The reference and the session are registered together so a concurrent
	// Destroy either sees both or neither.
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return nil, ErrDestroyed
	}
	e, ok := m.entries[path]
	if !ok {
		// evicted while this caller was waiting
		e = &entry{path: path, buf: buf}
		m.entries[path] = e
	}
	e.refs++

	s := playback.NewSession(m.g, e.buf, path, opts...)
	m.owned[s] = e
	return s, nil
}

// acquire returns the decoded buffer for path, from the cache or from a
// decode shared with every concurrent caller.
func (m *Manager) acquire(ctx context.Context, path string) (*audio.Buffer, error) {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil, ErrDestroyed
	}
	if e, ok := m.entries[path]; ok {
		m.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Create",
			"path":     path,
			"refs":     e.refs,
		}).Debug("Cache hit")
		return e.buf, nil
	}
	m.mu.Unlock()

	// The decode must not die with whichever caller happened to start it.
	ch := m.loads.DoChan(path, func() (any, error) {
		return m.load(context.WithoutCancel(ctx), path)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*audio.Buffer), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) load(ctx context.Context, path string) (*audio.Buffer, error) {
	m.mu.Lock()
	if e, ok := m.entries[path]; ok {
		m.mu.Unlock()
		return e.buf, nil
	}
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Create",
		"path":     path,
	}).Debug("Cache miss, decoding")

	buf, err := m.backend.Decode(ctx, path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Create",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to load asset")
		return nil, &LoadError{Path: path, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return nil, ErrDestroyed
	}
	m.entries[path] = &entry{path: path, buf: buf}
	return buf, nil
}

// CreateStream returns a session that decodes name progressively while it
// plays. Streams bypass the cache.
func (m *Manager) CreateStream(ctx context.Context, name string, full bool) (*playback.StreamSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		return nil, ErrDestroyed
	}

	opener, ok := m.backend.(backend.StreamOpener)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	path := m.Resolve(name, full)
	el, err := m.g.NewMediaElement(func() (audio.Source, error) {
		return opener.OpenStream(path)
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "CreateStream",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to open stream")
		return nil, &LoadError{Path: path, Err: err}
	}

	opts := append([]playback.Option{playback.WithEffectFactory(m.effects)}, m.opts...)
	return playback.NewStreamSession(m.g, el, path, opts...), nil
}

// LoadBatch creates a session for every name concurrently. If any load
// fails the sessions already created are destroyed and the first error is
// returned.
func (m *Manager) LoadBatch(ctx context.Context, names []string, full bool) ([]*playback.Session, error) {
	sessions := make([]*playback.Session, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			s, err := m.Create(gctx, name, full)
			if err != nil {
				return err
			}
			sessions[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, s := range sessions {
			if s != nil {
				s.Destroy()
			}
		}
		return nil, err
	}
	return sessions, nil
}

// FreeSound destroys s, which drops its reference on the cached asset.
func (m *Manager) FreeSound(s *playback.Session) error {
	return s.Destroy()
}

// Release implements playback.Owner.
func (m *Manager) Release(s *playback.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.owned[s]
	if !ok {
		return
	}
	delete(m.owned, s)

	e.refs--
	if e.refs > 0 || m.entries[e.path] != e {
		return
	}
	delete(m.entries, e.path)

	logrus.WithFields(logrus.Fields{
		"function": "Release",
		"path":     e.path,
	}).Debug("Evicted last reference")
}

// Evict drops the cache entry for name. Live sessions keep playing the
// buffer they hold.
func (m *Manager) Evict(name string, full bool) bool {
	path := m.Resolve(name, full)

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[path]
	delete(m.entries, path)
	return ok
}

// Len is the number of cached assets.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

func (m *Manager) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[path]
	return ok
}

// Refs is the number of live sessions holding the entry for path.
func (m *Manager) Refs(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[path]; ok {
		return e.refs
	}
	return 0
}

// Destroy clears the cache and releases the graph and the backend. The
// manager cannot be used afterwards.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return ErrDestroyed
	}
	m.destroyed = true
	m.entries = nil
	m.owned = nil
	m.mu.Unlock()

	logrus.WithField("function", "Destroy").Debug("Asset manager destroyed")

	var errs []error
	if err := m.g.Close(); err != nil && !errors.Is(err, graph.ErrClosed) {
		errs = append(errs, err)
	}
	if c, ok := m.backend.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
