// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"slices"
	"time"
)

type event struct {
	at     time.Duration
	value  float64
	linear bool // ramp from the previous anchor instead of jumping
}

// Param is an automatable scalar. Scheduled events are kept sorted by time
// and folded into the base value as the render clock passes them.
type Param struct {
	ctx      *Context
	min, max float64
	value    float64
	anchor   time.Duration
	events   []event
}

func newParam(ctx *Context, value, lo, hi float64) *Param {
	p := &Param{ctx: ctx, min: lo, max: hi}
	p.value = p.clamp(value)
	return p
}

func (p *Param) clamp(v float64) float64 {
	return min(max(v, p.min), p.max)
}

func (p *Param) Range() (lo, hi float64) { return p.min, p.max }

func (p *Param) valueAt(t time.Duration) float64 {
	for len(p.events) > 0 && p.events[0].at <= t {
		p.value, p.anchor = p.events[0].value, p.events[0].at
		p.events = p.events[1:]
	}

	if len(p.events) > 0 && p.events[0].linear {
		next := p.events[0]
		span := next.at - p.anchor
		if span <= 0 {
			return next.value
		}
		frac := float64(t-p.anchor) / float64(span)
		return p.value + (next.value-p.value)*frac
	}
	return p.value
}

func (p *Param) schedule(e event) {
	e.value = p.clamp(e.value)
	i, _ := slices.BinarySearchFunc(p.events, e.at, func(a event, t time.Duration) int {
		if a.at <= t {
			return -1
		}
		return 1
	})
	p.events = slices.Insert(p.events, i, e)
}

// Value at the current render time.
func (p *Param) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	return p.valueAt(p.ctx.CurrentTime())
}

// SetValue drops pending automation and jumps to v now.
func (p *Param) SetValue(v float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	p.events = nil
	p.value = p.clamp(v)
	p.anchor = p.ctx.CurrentTime()
}

func (p *Param) SetValueAtTime(v float64, at time.Duration) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	p.schedule(event{at: at, value: v})
}

// LinearRampToValueAtTime ramps from the previous event, or from the value
// now when nothing is pending, to v at time at.
func (p *Param) LinearRampToValueAtTime(v float64, at time.Duration) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	if len(p.events) == 0 {
		now := p.ctx.CurrentTime()
		p.value = p.valueAt(now)
		p.anchor = now
	}
	p.schedule(event{at: at, value: v, linear: true})
}

// CancelScheduledValues removes every event at or after from.
func (p *Param) CancelScheduledValues(from time.Duration) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	p.events = slices.DeleteFunc(p.events, func(e event) bool { return e.at >= from })
}

// CancelAndHold freezes the parameter at its current value.
func (p *Param) CancelAndHold() {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	now := p.ctx.CurrentTime()
	p.value = p.valueAt(now)
	p.anchor = now
	p.events = nil
}
