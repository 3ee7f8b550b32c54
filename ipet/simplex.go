package ipet

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// simplexEps is the zero-tolerance used throughout pivoting and
// feasibility checks; the tableau arithmetic is in floating point even
// though every model coefficient is a small integer or rational.
const simplexEps = 1e-7

// errUnbounded indicates the relaxation has no finite optimum — not
// expected for a well-formed IPET model (the loop-bound and exit-closure
// rows keep the flow polytope bounded), but guarded against rather than
// assumed away.
var errUnbounded = fmt.Errorf("ipet: relaxation is unbounded")

// tableau is a textbook two-phase primal simplex over a dense tableau.
// Isolated from the rest of ipet so it can be swapped for an external LP
// backend without touching Model or the branch-and-bound search.
type tableau struct {
	rows, cols int // cols excludes the RHS column
	t          *mat.Dense
	basis      []int
}

// newTableau builds the standard-form tableau for rows, adding one slack
// per <= row, one surplus+artificial per >= row (after sign normalization
// makes RHS >= 0), and one artificial per = row.
func newTableau(numOrigVars int, rows []Row) (tb *tableau, artificialCols []int) {
	type prepped struct {
		coef map[int]float64
		op   RowOp
		rhs  float64
	}
	pr := make([]prepped, len(rows))
	for i, r := range rows {
		coef, op, rhs := r.Coef, r.Op, r.RHS
		if rhs < 0 {
			flipped := make(map[int]float64, len(coef))
			for k, v := range coef {
				flipped[k] = -v
			}
			coef = flipped
			rhs = -rhs
			if op == OpLE {
				op = opGE
			}
		}
		pr[i] = prepped{coef, op, rhs}
	}

	nSlackSurplus := 0
	nArtificial := 0
	for _, r := range pr {
		switch r.op {
		case OpLE:
			nSlackSurplus++
		case opGE:
			nSlackSurplus++
			nArtificial++
		case OpEq:
			nArtificial++
		}
	}

	totalCols := numOrigVars + nSlackSurplus + nArtificial
	m := len(rows)
	t := mat.NewDense(m, totalCols+1, nil)
	basis := make([]int, m)

	slackCol := numOrigVars
	artCol := numOrigVars + nSlackSurplus
	for i, r := range pr {
		for k, v := range r.coef {
			t.Set(i, k, v)
		}
		t.Set(i, totalCols, r.rhs)
		switch r.op {
		case OpLE:
			t.Set(i, slackCol, 1)
			basis[i] = slackCol
			slackCol++
		case opGE:
			t.Set(i, slackCol, -1)
			slackCol++
			t.Set(i, artCol, 1)
			basis[i] = artCol
			artificialCols = append(artificialCols, artCol)
			artCol++
		case OpEq:
			t.Set(i, artCol, 1)
			basis[i] = artCol
			artificialCols = append(artificialCols, artCol)
			artCol++
		}
	}

	return &tableau{rows: m, cols: totalCols, t: t, basis: basis}, artificialCols
}

// pivot runs primal simplex maximizing cost (length tb.cols) until optimal
// or unbounded, mutating tb in place. maxIters bounds pivot count as a
// cycling safety net for degenerate models.
func (tb *tableau) pivot(cost []float64, maxIters int) error {
	for iter := 0; iter < maxIters; iter++ {
		basisCost := make([]float64, tb.rows)
		for i, b := range tb.basis {
			basisCost[i] = cost[b]
		}

		entering, bestReduced := -1, simplexEps
		for j := 0; j < tb.cols; j++ {
			if tb.isBasic(j) {
				continue
			}
			z := 0.0
			for i := 0; i < tb.rows; i++ {
				z += basisCost[i] * tb.t.At(i, j)
			}
			reduced := cost[j] - z
			if reduced > bestReduced {
				bestReduced = reduced
				entering = j
			}
		}
		if entering == -1 {
			return nil // optimal
		}

		leaving, bestRatio := -1, math.Inf(1)
		for i := 0; i < tb.rows; i++ {
			a := tb.t.At(i, entering)
			if a <= simplexEps {
				continue
			}
			ratio := tb.t.At(i, tb.cols) / a
			if ratio < bestRatio-simplexEps {
				bestRatio, leaving = ratio, i
			}
		}
		if leaving == -1 {
			return errUnbounded
		}

		tb.doPivot(leaving, entering)
	}
	return fmt.Errorf("ipet: simplex exceeded %d iterations without converging", maxIters)
}

func (tb *tableau) isBasic(col int) bool {
	for _, b := range tb.basis {
		if b == col {
			return true
		}
	}
	return false
}

func (tb *tableau) doPivot(row, col int) {
	pivotVal := tb.t.At(row, col)
	rowVec := mat.Row(nil, row, tb.t)
	for j := range rowVec {
		rowVec[j] /= pivotVal
	}
	tb.t.SetRow(row, rowVec)

	for i := 0; i < tb.rows; i++ {
		if i == row {
			continue
		}
		factor := tb.t.At(i, col)
		if factor == 0 {
			continue
		}
		for j := 0; j <= tb.cols; j++ {
			tb.t.Set(i, j, tb.t.At(i, j)-factor*rowVec[j])
		}
	}
	tb.basis[row] = col
}

func (tb *tableau) value(col int) float64 {
	for i, b := range tb.basis {
		if b == col {
			return tb.t.At(i, tb.cols)
		}
	}
	return 0
}

const opGE = RowOp(2) // internal only: sign-normalized >= row before slack/surplus expansion

// solveRelaxation solves the LP relaxation of rows with objective obj
// (length numOrigVars), returning the values of the original variables.
func solveRelaxation(numOrigVars int, rows []Row, obj []float64, maxIters int) (values []float64, objective float64, feasible bool, err error) {
	tb, artificials := newTableau(numOrigVars, rows)

	if len(artificials) > 0 {
		phase1Cost := make([]float64, tb.cols)
		for _, a := range artificials {
			phase1Cost[a] = -1
		}
		if err := tb.pivot(phase1Cost, maxIters); err != nil {
			return nil, 0, false, err
		}
		sumArt := 0.0
		for _, a := range artificials {
			sumArt += tb.value(a)
		}
		if sumArt > 1e-5 {
			return nil, 0, false, nil // infeasible
		}
	}

	phase2Cost := make([]float64, tb.cols)
	copy(phase2Cost, obj)
	for _, a := range artificials {
		phase2Cost[a] = -1e12 // lock artificials out of phase 2
	}
	if err := tb.pivot(phase2Cost, maxIters); err != nil {
		return nil, 0, false, err
	}

	values = make([]float64, numOrigVars)
	for j := 0; j < numOrigVars; j++ {
		values[j] = tb.value(j)
	}
	objective = 0
	for j := 0; j < numOrigVars; j++ {
		objective += obj[j] * values[j]
	}
	return values, objective, true, nil
}
