// Package cfg builds a control-flow graph for each ir.Function and
// validates that every terminator target resolves within the function.
package cfg

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/lale/lale/ir"
)

// Graph is a function's control-flow graph: nodes are ir.BasicBlock
// indices, edges point from a block to each of its terminator's targets.
type Graph struct {
	Function *ir.Function
	g        *simple.DirectedGraph
}

// Underlying returns the underlying gonum directed graph, for callers that
// need gonum's graph.Graph interfaces directly (loop's SCC computation).
func (cg *Graph) Underlying() *simple.DirectedGraph { return cg.g }

// Successors returns the block indices cg's block idx transfers control to.
func (cg *Graph) Successors(idx int) []int {
	it := cg.g.From(int64(idx))
	var out []int
	for it.Next() {
		out = append(out, int(it.Node().ID()))
	}
	return out
}

// Predecessors returns the block indices that transfer control to idx.
func (cg *Graph) Predecessors(idx int) []int {
	it := cg.g.To(int64(idx))
	var in []int
	for it.Next() {
		in = append(in, int(it.Node().ID()))
	}
	return in
}

// Build constructs a Graph from fn, failing with ir.MalformedFunction if any
// terminator names a block absent from fn.
func Build(fn *ir.Function) (*Graph, error) {
	g := simple.NewDirectedGraph()
	for _, b := range fn.Blocks {
		g.AddNode(simple.Node(b.Index))
	}

	for _, b := range fn.Blocks {
		for _, target := range b.Term.Targets {
			tb, ok := fn.BlockByName(target)
			if !ok {
				return nil, &ir.MalformedFunction{
					Function: fn.Name,
					Reason:   fmt.Sprintf("block %s terminator references undefined label %q", b.Name, target),
				}
			}
			if !g.HasEdgeFromTo(int64(b.Index), int64(tb.Index)) {
				g.SetEdge(g.NewEdge(simple.Node(b.Index), simple.Node(tb.Index)))
			}
		}
	}

	return &Graph{Function: fn, g: g}, nil
}
