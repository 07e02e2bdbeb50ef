// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"

	"github.com/ik5/audplay/effect"
	"github.com/spf13/pflag"
)

type effectHost interface {
	AddEffect(kind effect.Kind) (effect.Effect, error)
}

// effectFlags builds the chain gain -> pan -> reverb from command line flags.
type effectFlags struct {
	gain   float64
	pan    float64
	reverb string
	wet    float64
}

func (f *effectFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.gain, "gain", 1, "output gain")
	fs.Float64Var(&f.pan, "pan", 0, "stereo position from -1 (left) to 1 (right)")
	fs.StringVar(&f.reverb, "reverb", "", "impulse response file for the reverb")
	fs.Float64Var(&f.wet, "reverb-level", 1, "reverb output level")
}

func (f *effectFlags) apply(ctx context.Context, host effectHost) error {
	if f.gain != 1 {
		e, err := host.AddEffect(effect.Gain)
		if err != nil {
			return fmt.Errorf("adding gain: %w", err)
		}
		e.SetValue(f.gain)
	}

	if f.pan != 0 {
		e, err := host.AddEffect(effect.StereoPan)
		if err != nil {
			return fmt.Errorf("adding pan: %w", err)
		}
		e.SetValue(f.pan)
	}

	if f.reverb != "" {
		e, err := host.AddEffect(effect.Reverb)
		if err != nil {
			return fmt.Errorf("adding reverb: %w", err)
		}
		r, ok := e.(*effect.ReverbEffect)
		if !ok {
			return fmt.Errorf("adding reverb: unexpected effect %T", e)
		}
		if err := r.SetImpulseResponseFromFile(ctx, f.reverb); err != nil {
			return err
		}
		r.SetValue(f.wet)
	}
	return nil
}
