// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"time"

	"github.com/gopxl/beep/v2/effects"
)

// Gain scales its input mix by Gain (1 is unity).
type Gain struct {
	node
	Gain *Param
	in   inputStreamer
	fx   effects.Gain
}

func (c *Context) NewGain() *Gain {
	g := &Gain{
		node: node{ctx: c, name: "gain", sink: true},
		Gain: newParam(c, 1, 0, 10),
	}
	g.in.n = &g.node
	g.fx.Streamer = &g.in
	return g
}

func (g *Gain) render(buf [][2]float64, t time.Duration) {
	g.in.t = t
	// effects.Gain multiplies by 1+Gain
	g.fx.Gain = g.Gain.valueAt(t) - 1
	g.fx.Stream(buf)
}

// StereoPanner pans its input mix; Pan runs from -1 (left) to 1 (right).
type StereoPanner struct {
	node
	Pan *Param
	in  inputStreamer
	fx  effects.Pan
}

func (c *Context) NewStereoPanner() *StereoPanner {
	p := &StereoPanner{
		node: node{ctx: c, name: "stereo-panner", sink: true},
		Pan:  newParam(c, 0, -1, 1),
	}
	p.in.n = &p.node
	p.fx.Streamer = &p.in
	return p
}

func (p *StereoPanner) render(buf [][2]float64, t time.Duration) {
	p.in.t = t
	p.fx.Pan = p.Pan.valueAt(t)
	p.fx.Stream(buf)
}
