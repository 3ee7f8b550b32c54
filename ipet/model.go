// Package ipet implements the Implicit Path Enumeration Technique: builds
// an integer program over a function's CFG and loop bounds, then solves it
// for the worst-case execution path.
package ipet

import (
	"github.com/lale/lale/cfg"
	"github.com/lale/lale/ir"
	"github.com/lale/lale/loop"
)

// RowOp is a constraint's relational operator.
type RowOp int

const (
	OpEq RowOp = iota
	OpLE
)

// Row is one linear constraint over the model's variables, indexed 0..N-1.
type Row struct {
	Coef map[int]float64
	Op   RowOp
	RHS  float64
}

// Edge is a CFG edge, carried as its own non-negative integer variable.
type Edge struct {
	From, To int
}

// Model is the IPET integer program for one function: one column per block
// and per edge, flow-conservation and loop-bound rows, and an objective
// maximizing total worst-case cycles (spec.md §4.5).
type Model struct {
	Function    *ir.Function
	NumBlocks   int
	Edges       []Edge
	Rows        []Row
	Obj         []float64 // length NumBlocks+len(Edges)
	Exits       []int     // block indices whose terminator is return/unreachable

	blockVar int // first block variable index (always 0)
	edgeVar  int // first edge variable index
}

// NumVars is the model's total variable count (blocks plus edges).
func (m *Model) NumVars() int { return m.edgeVar + len(m.Edges) }

func (m *Model) blockCol(idx int) int { return m.blockVar + idx }
func (m *Model) edgeCol(i int) int    { return m.edgeVar + i }

// ErrInfiniteExecution is returned by Build when a function has no return
// or unreachable block — every path loops forever, so no finite WCET
// exists (spec.md §4.5's tie-break).
type ErrInfiniteExecution struct {
	Function string
}

func (e *ErrInfiniteExecution) Error() string {
	return "function " + e.Function + " has no exit: execution never terminates"
}

// Build constructs the IPET model for fn given its CFG, loop set, and the
// worst-case cycle cost of each block (indexed by block.Index).
func Build(fn *ir.Function, g *cfg.Graph, loops []*loop.Loop, blockWorstCycles []int) (*Model, error) {
	m := &Model{
		Function:  fn,
		NumBlocks: len(fn.Blocks),
		blockVar:  0,
	}
	m.edgeVar = m.NumBlocks

	edgeIndex := make(map[Edge]int)
	for _, b := range fn.Blocks {
		for _, s := range g.Successors(b.Index) {
			e := Edge{From: b.Index, To: s}
			if _, ok := edgeIndex[e]; ok {
				continue
			}
			edgeIndex[e] = len(m.Edges)
			m.Edges = append(m.Edges, e)
		}
	}

	entry := fn.Entry().Index
	for _, b := range fn.Blocks {
		if isExitKind(b.Term.Kind) {
			m.Exits = append(m.Exits, b.Index)
		}
	}
	if len(m.Exits) == 0 {
		return nil, &ErrInfiniteExecution{Function: fn.Name}
	}

	m.Obj = make([]float64, m.NumVars())
	for i, cost := range blockWorstCycles {
		if i < m.NumBlocks {
			m.Obj[m.blockCol(i)] = float64(cost)
		}
	}

	inEdges := make(map[int][]int)  // block -> edge indices entering it
	outEdges := make(map[int][]int) // block -> edge indices leaving it
	for i, e := range m.Edges {
		outEdges[e.From] = append(outEdges[e.From], i)
		inEdges[e.To] = append(inEdges[e.To], i)
	}

	exitSet := make(map[int]bool, len(m.Exits))
	for _, e := range m.Exits {
		exitSet[e] = true
	}

	// Entry invocation: exactly one call per analysis.
	m.Rows = append(m.Rows, Row{Coef: map[int]float64{m.blockCol(entry): 1}, Op: OpEq, RHS: 1})

	for _, b := range fn.Blocks {
		idx := b.Index
		if idx == entry {
			// An entry block that is also an exit has no outgoing flow to
			// balance; its count is fixed by the entry row alone.
			if !exitSet[idx] {
				row := Row{Coef: map[int]float64{m.blockCol(idx): 1}, Op: OpEq, RHS: 0}
				for _, ei := range outEdges[idx] {
					row.Coef[m.edgeCol(ei)] -= 1
				}
				m.Rows = append(m.Rows, row)
			}
			continue
		}
		// x_b = sum of in-edges (unreachable blocks get x_b = 0 for free,
		// since they have no in-edges — spec.md §4.5's tie-break).
		row := Row{Coef: map[int]float64{m.blockCol(idx): 1}, Op: OpEq, RHS: 0}
		for _, ei := range inEdges[idx] {
			row.Coef[m.edgeCol(ei)] -= 1
		}
		m.Rows = append(m.Rows, row)

		if !exitSet[idx] {
			row2 := Row{Coef: map[int]float64{m.blockCol(idx): 1}, Op: OpEq, RHS: 0}
			for _, ei := range outEdges[idx] {
				row2.Coef[m.edgeCol(ei)] -= 1
			}
			m.Rows = append(m.Rows, row2)
		}
	}

	// Exit closure: exactly one exit block executes on the final pass.
	closure := Row{Coef: map[int]float64{}, Op: OpEq, RHS: 1}
	for _, idx := range m.Exits {
		closure.Coef[m.blockCol(idx)] = 1
	}
	m.Rows = append(m.Rows, closure)

	// Loop bound rows, substituting the parent loop's header variable for
	// "times the enclosing region was entered" on nested loops (spec.md
	// §4.5: "the bound multiplies along enclosing headers").
	for _, l := range loops {
		row := Row{Coef: map[int]float64{m.blockCol(l.Header): 1}, Op: OpLE}
		if l.Parent != nil {
			row.Coef[m.blockCol(l.Parent.Header)] = -float64(l.Bound)
			row.RHS = 0
		} else {
			row.RHS = float64(l.Bound)
		}
		m.Rows = append(m.Rows, row)
	}

	return m, nil
}

func isExitKind(k ir.TermKind) bool {
	return k == ir.TermReturn || k == ir.TermUnreachable
}
