// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"github.com/ik5/audplay/effect"
	"github.com/ik5/audplay/graph"
)

// Edge connects the output of From to the input of To.
type Edge[T any] struct {
	From, To T
}

// Plan lays out a signal chain: src feeds stages in order and the last
// stage feeds out. With no stages src feeds out directly.
func Plan[T any](src T, stages []T, out T) []Edge[T] {
	edges := make([]Edge[T], 0, len(stages)+1)
	prev := src
	for _, st := range stages {
		edges = append(edges, Edge[T]{From: prev, To: st})
		prev = st
	}
	return append(edges, Edge[T]{From: prev, To: out})
}

// hop is one point in a planned chain. Effects route their own output, so
// an edge leaving an effect goes through Effect.Connect.
type hop struct {
	node graph.Node
	fx   effect.Effect
}

func connectChain(g *graph.Context, src graph.Node, effects []effect.Effect) error {
	stages := make([]hop, len(effects))
	for i, e := range effects {
		stages[i] = hop{node: e.Node(), fx: e}
	}

	for _, edge := range Plan(hop{node: src}, stages, hop{node: g.Destination()}) {
		var err error
		if edge.From.fx != nil {
			err = edge.From.fx.Connect(edge.To.node)
		} else {
			err = g.Connect(edge.From.node, edge.To.node)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func disconnectChain(g *graph.Context, src graph.Node, effects []effect.Effect) {
	if src != nil {
		g.Disconnect(src)
	}
	for _, e := range effects {
		e.Disconnect()
	}
}

// route lists the effect kinds met walking the live graph from src.
func route(g *graph.Context, src graph.Node, effects []effect.Effect) []effect.Kind {
	if src == nil {
		return nil
	}

	kinds := make(map[graph.Node]effect.Kind, len(effects))
	for _, e := range effects {
		kinds[e.Node()] = e.Kind()
	}

	var out []effect.Kind
	for _, n := range g.Path(src) {
		if k, ok := kinds[n]; ok {
			out = append(out, k)
		}
	}
	return out
}
