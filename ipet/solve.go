package ipet

import (
	"math"
	"time"
)

// Verdict classifies how a Result was reached.
type Verdict int

const (
	VerdictOptimal Verdict = iota
	VerdictInconclusive
)

func (v Verdict) String() string {
	if v == VerdictOptimal {
		return "optimal"
	}
	return "inconclusive"
}

// Result is the outcome of solving a Model: the worst-case cycle count,
// the integer block-execution-count path that attains it, and whether the
// search completed to proven optimality.
type Result struct {
	WCETCycles int64
	Path       []int64 // execution count per block index
	Verdict    Verdict
}

// InfeasibleModel is returned when phase-1 simplex proves the relaxation
// itself infeasible — per spec.md §4.5, possible only if the CFG is
// malformed (a flow-conservation or loop-bound row set with no solution).
type InfeasibleModel struct {
	Function string
}

func (e *InfeasibleModel) Error() string {
	return "function " + e.Function + ": IPET model is infeasible"
}

const (
	defaultMaxNodes    = 2000
	defaultSimplexIter = 500
)

// node is one branch-and-bound subproblem: additional <= / >= bound rows
// layered on top of the model's own rows.
type node struct {
	extra  []Row
	bound  float64 // LP relaxation value at this node (upper bound on WCET)
}

// Solve runs branch-and-bound over m's LP relaxation. On proven optimality
// it returns VerdictOptimal; on hitting the node cap or timeout first, it
// returns the best integer-feasible incumbent found so far tagged
// VerdictInconclusive, never silently promoted to a sound bound.
func Solve(m *Model, timeout time.Duration) (Result, error) {
	deadline := time.Now().Add(timeout)

	_, obj, feasible, err := solveRelaxation(m.NumVars(), m.Rows, m.Obj, defaultSimplexIter)
	if err != nil {
		return Result{}, err
	}
	if !feasible {
		return Result{}, &InfeasibleModel{Function: m.Function.Name}
	}

	root := node{bound: obj}
	queue := []node{root}

	var incumbent *Result
	incumbentVal := math.Inf(-1)
	nodesExplored := 0

	for len(queue) > 0 {
		if nodesExplored >= defaultMaxNodes || time.Now().After(deadline) {
			return finish(incumbent, false)
		}

		best := 0
		for i := 1; i < len(queue); i++ {
			if queue[i].bound > queue[best].bound {
				best = i
			}
		}
		n := queue[best]
		queue = append(queue[:best], queue[best+1:]...)
		nodesExplored++

		if incumbent != nil && n.bound <= incumbentVal+simplexEps {
			continue // pruned: cannot improve on incumbent
		}

		rows := append(append([]Row{}, m.Rows...), n.extra...)
		vals, objVal, feas, err := solveRelaxation(m.NumVars(), rows, m.Obj, defaultSimplexIter)
		if err != nil {
			continue // numerically degenerate branch; drop it
		}
		if !feas || objVal <= incumbentVal+simplexEps {
			continue
		}

		fracIdx, fracVal, isInt := mostFractionalBlock(vals, m.NumBlocks)
		if isInt {
			path := make([]int64, m.NumBlocks)
			for i := 0; i < m.NumBlocks; i++ {
				path[i] = int64(math.Round(vals[i]))
			}
			incumbent = &Result{WCETCycles: int64(math.Round(objVal)), Path: path}
			incumbentVal = objVal
			continue
		}

		floorRow := Row{Coef: map[int]float64{fracIdx: 1}, Op: OpLE, RHS: math.Floor(fracVal)}
		ceilRow := Row{Coef: map[int]float64{fracIdx: -1}, Op: OpLE, RHS: -math.Ceil(fracVal)}
		queue = append(queue,
			node{extra: append(append([]Row{}, n.extra...), floorRow), bound: objVal},
			node{extra: append(append([]Row{}, n.extra...), ceilRow), bound: objVal},
		)
	}

	return finish(incumbent, true)
}

// finish tags the returned Result's verdict: optimal only when the search
// tree was exhausted (exhaustive), never when a node cap or timeout cut it
// short, even if an integer-feasible incumbent was already in hand.
func finish(incumbent *Result, exhaustive bool) (Result, error) {
	if incumbent == nil {
		return Result{Verdict: VerdictInconclusive}, nil
	}
	r := *incumbent
	if exhaustive {
		r.Verdict = VerdictOptimal
	} else {
		r.Verdict = VerdictInconclusive
	}
	return r, nil
}

// mostFractionalBlock finds the block variable whose relaxed value is
// farthest from an integer, the branching rule spec.md §9 prescribes.
func mostFractionalBlock(vals []float64, numBlocks int) (idx int, val float64, isInt bool) {
	isInt = true
	bestDist := -1.0
	idx = -1
	for i := 0; i < numBlocks; i++ {
		frac := vals[i] - math.Floor(vals[i])
		dist := math.Min(frac, 1-frac)
		if dist > simplexEps {
			isInt = false
			if dist > bestDist {
				bestDist, idx, val = dist, i, vals[i]
			}
		}
	}
	return idx, val, isInt
}
