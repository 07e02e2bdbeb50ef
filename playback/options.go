// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"time"

	"github.com/ik5/audplay/effect"
)

// Owner is notified once when a buffered session is destroyed, so the
// cache can drop the session's reference to its asset.
type Owner interface {
	Release(s *Session)
}

// EffectFactory builds the effects a session chains.
type EffectFactory interface {
	CreateEffect(kind effect.Kind) (effect.Effect, error)
}

// Clock is the wall clock sessions measure play time against.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type options struct {
	owner   Owner
	effects EffectFactory
	clock   Clock
}

type Option func(*options)

func WithOwner(o Owner) Option {
	return func(opts *options) { opts.owner = o }
}

func WithEffectFactory(f EffectFactory) Option {
	return func(opts *options) { opts.effects = f }
}

func WithClock(c Clock) Option {
	return func(opts *options) { opts.clock = c }
}
