// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"context"
	"fmt"

	"github.com/ik5/audplay/backend"
	"github.com/ik5/audplay/graph"
	"github.com/sirupsen/logrus"
)

// Factory builds effects bound to one graph.
type Factory struct {
	g   *graph.Context
	dec backend.Backend
}

// NewFactory returns a Factory for g. dec is used by reverb to load impulse
// responses and may be nil when that is not needed.
func NewFactory(g *graph.Context, dec backend.Backend) *Factory {
	return &Factory{g: g, dec: dec}
}

func (f *Factory) CreateEffect(kind Kind) (Effect, error) {
	var e Effect
	switch kind {
	case Gain:
		n := f.g.NewGain()
		e = newStage(kind, f.g, n, n, n.Gain)
	case StereoPan:
		n := f.g.NewStereoPanner()
		e = newStage(kind, f.g, n, n, n.Pan)
	case Reverb:
		r, err := f.newReverb()
		if err != nil {
			return nil, err
		}
		e = r
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}

	logrus.WithFields(logrus.Fields{
		"function": "CreateEffect",
		"kind":     kind.String(),
	}).Debug("Effect created")

	return e, nil
}

// ReverbEffect convolves its input with an impulse response. Its value is
// the output level, 1 by default.
type ReverbEffect struct {
	*stage
	conv *graph.Convolver
	dec  backend.Backend
}

func (f *Factory) newReverb() (*ReverbEffect, error) {
	conv := f.g.NewConvolver()
	level := f.g.NewGain()
	if err := f.g.Connect(conv, level); err != nil {
		return nil, err
	}

	return &ReverbEffect{
		stage: newStage(Reverb, f.g, conv, level, level.Gain),
		conv:  conv,
		dec:   f.dec,
	}, nil
}

// SetImpulseResponseFromFile decodes path and installs it as the impulse
// response. On failure the previous impulse stays in place.
func (r *ReverbEffect) SetImpulseResponseFromFile(ctx context.Context, path string) error {
	if r.dec == nil {
		return &ImpulseError{Path: path, Err: ErrNoDecoder}
	}

	buf, err := r.dec.Decode(ctx, path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SetImpulseResponseFromFile",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to load impulse response")
		return &ImpulseError{Path: path, Err: err}
	}

	r.conv.SetImpulse(buf)

	logrus.WithFields(logrus.Fields{
		"function": "SetImpulseResponseFromFile",
		"path":     path,
		"frames":   buf.Frames(),
	}).Debug("Impulse response installed")

	return nil
}
