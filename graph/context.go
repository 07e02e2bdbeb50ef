// SPDX-License-Identifier: EPL-2.0

// Package graph is a small pull-based audio graph: sources feed processing
// nodes which feed a destination mix, and the whole thing is a beep.Streamer
// an output device (or an offline renderer) pulls from.
//
// Every node belongs to one Context. Mutations and rendering serialise on
// the context lock, so a chain can be torn down and rebuilt while audio is
// being pulled. Time inside the graph is the render clock: frames rendered
// divided by the sample rate. Parameter automation is scheduled against it.
package graph

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
)

// Quantum is the render block size; automation is evaluated once per block.
const Quantum = 128

var (
	ErrClosed         = errors.New("audio graph is closed")
	ErrForeignNode    = errors.New("node belongs to another graph")
	ErrNotConnectable = errors.New("node cannot take inputs")
	ErrEmptyMedia     = errors.New("looped media has no frames")
)

// Node is anything that can be wired into a Context.
type Node interface {
	Name() string
	core() *node
	render(buf [][2]float64, t time.Duration)
}

type node struct {
	ctx     *Context
	name    string
	inputs  []Node
	output  Node
	sink    bool // accepts inputs
	scratch [][2]float64
}

func (n *node) core() *node       { return n }
func (n *node) Name() string      { return n.name }
func (n *node) Context() *Context { return n.ctx }

// mix renders every input and sums them into buf.
func (n *node) mix(buf [][2]float64, t time.Duration) {
	clear(buf)
	if len(n.inputs) == 0 {
		return
	}
	if cap(n.scratch) < len(buf) {
		n.scratch = make([][2]float64, len(buf))
	}
	tmp := n.scratch[:len(buf)]
	for _, in := range n.inputs {
		in.render(tmp, t)
		for i := range buf {
			buf[i][0] += tmp[i][0]
			buf[i][1] += tmp[i][1]
		}
	}
}

// inputStreamer exposes a node's input mix to beep effects.
type inputStreamer struct {
	n *node
	t time.Duration
}

func (s *inputStreamer) Stream(samples [][2]float64) (int, bool) {
	s.n.mix(samples, s.t)
	return len(samples), true
}

func (s *inputStreamer) Err() error { return nil }

// Context owns the render clock and the destination mix.
type Context struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	frames atomic.Int64
	dest   *destination
	closed bool
}

func NewContext(sampleRate int) *Context {
	c := &Context{rate: beep.SampleRate(sampleRate)}
	c.dest = &destination{node: node{ctx: c, name: "destination", sink: true}}
	return c
}

func (c *Context) SampleRate() int         { return int(c.rate) }
func (c *Context) Format() beep.SampleRate { return c.rate }

// Destination is the terminal node every audible chain ends in.
func (c *Context) Destination() Node { return c.dest }

// CurrentTime is the render clock.
func (c *Context) CurrentTime() time.Duration {
	return c.rate.D(int(c.frames.Load()))
}

// Stream renders the destination mix. It implements beep.Streamer.
func (c *Context) Stream(samples [][2]float64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, false
	}

	for off := 0; off < len(samples); off += Quantum {
		chunk := samples[off:min(off+Quantum, len(samples))]
		c.dest.render(chunk, c.CurrentTime())
		c.frames.Add(int64(len(chunk)))
	}
	return len(samples), true
}

func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return nil
}

// Render pulls d worth of frames, for offline use and tests.
func (c *Context) Render(d time.Duration) [][2]float64 {
	out := make([][2]float64, c.rate.N(d))
	n, _ := c.Stream(out)
	return out[:n]
}

// Connect routes src's output into dst. A node has at most one output, so
// an existing connection of src is replaced.
func (c *Context) Connect(src, dst Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connect(src, dst)
}

func (c *Context) connect(src, dst Node) error {
	if c.closed {
		return ErrClosed
	}
	s, d := src.core(), dst.core()
	if s.ctx != c || d.ctx != c {
		return ErrForeignNode
	}
	if !d.sink {
		return ErrNotConnectable
	}

	c.disconnect(src)
	s.output = dst
	d.inputs = append(d.inputs, src)
	return nil
}

// Disconnect detaches n from whatever it feeds. Its own inputs stay attached.
func (c *Context) Disconnect(n Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disconnect(n)
}

func (c *Context) disconnect(n Node) {
	s := n.core()
	if s.output == nil {
		return
	}
	d := s.output.core()
	d.inputs = slices.DeleteFunc(d.inputs, func(in Node) bool { return in == n })
	s.output = nil
}

// Path follows outputs from n and returns every node on the way, n first.
// A chain that reaches the destination ends with it.
func (c *Context) Path(n Node) []Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	var path []Node
	for cur := n; cur != nil; cur = cur.core().output {
		path = append(path, cur)
		if len(path) > 1<<10 {
			break
		}
	}
	return path
}

// Inputs lists the nodes feeding n.
func (c *Context) Inputs(n Node) []Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(n.core().inputs)
}

// Close stops rendering. Later Stream calls report the stream as drained.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.closed = true
	c.dest.inputs = nil
	return nil
}

type destination struct {
	node
}

func (d *destination) render(buf [][2]float64, t time.Duration) {
	d.mix(buf, t)
}
