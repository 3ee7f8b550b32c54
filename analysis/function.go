package analysis

import (
	"strconv"
	"time"

	"github.com/lale/lale/cfg"
	"github.com/lale/lale/diag"
	"github.com/lale/lale/ipet"
	"github.com/lale/lale/ir"
	"github.com/lale/lale/loop"
	"github.com/lale/lale/platform"
	"github.com/lale/lale/report"
	"github.com/lale/lale/timing"
)

// analyzeFunction runs the full CFG → loop → timing → IPET pipeline for
// one function. It never returns a Go error for function-local problems —
// spec.md §7's propagation policy requires a bad function to surface as a
// tagged FunctionResult, not invalidate the batch.
func analyzeFunction(fn *ir.Function, p platform.Platform, overrides loop.Overrides, timeout time.Duration) report.FunctionResult {
	var bag diag.Bag

	g, err := cfg.Build(fn)
	if err != nil {
		return errorResult(fn.Name, err)
	}

	loops := loop.Analyze(fn, g, overrides)
	for _, l := range loops {
		if l.Source == loop.BoundDefault {
			bag.Add(diag.LoopBoundDefaulted, fn.Name, "header block defaulted to "+strconv.Itoa(loop.DefaultBound))
		}
		if l.Irreducible() {
			bag.Add(diag.IrreducibleRegion, fn.Name, "merged into a single outer bound")
		}
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Class == ir.ClassOther {
				bag.Add(diag.UnknownInstructionClass, fn.Name, "opcode "+instr.Opcode+" has no timing mapping, costed as other")
			}
		}
	}

	worstCosts := make([]int, len(fn.Blocks))
	bestCosts := make([]int, len(fn.Blocks))
	for _, b := range fn.Blocks {
		t := timing.Block(p, b)
		worstCosts[b.Index] = t.Worst
		bestCosts[b.Index] = t.Best
	}

	mWorst, err := ipet.Build(fn, g, loops, worstCosts)
	if err != nil {
		return errorResult(fn.Name, err)
	}
	resWorst, err := ipet.Solve(mWorst, timeout)
	if err != nil {
		return errorResult(fn.Name, err)
	}

	mBest, err := ipet.Build(fn, g, loops, bestCosts)
	if err != nil {
		return errorResult(fn.Name, err)
	}
	resBest, err := ipet.Solve(mBest, timeout)
	if err != nil {
		return errorResult(fn.Name, err)
	}

	verdict := "optimal"
	if resWorst.Verdict == ipet.VerdictInconclusive || resBest.Verdict == ipet.VerdictInconclusive {
		verdict = "inconclusive"
		bag.Add(diag.Inconclusive, fn.Name, "branch-and-bound cut short by node cap or timeout")
	}

	return report.FunctionResult{
		Name:        fn.Name,
		WCETCycles:  resWorst.WCETCycles,
		WCETUs:      timing.CyclesToMicros(resWorst.WCETCycles, p),
		BCETCycles:  resBest.WCETCycles,
		BCETUs:      timing.CyclesToMicros(resBest.WCETCycles, p),
		LoopCount:   len(loops),
		Verdict:     verdict,
		Diagnostics: bag.Entries(),
	}
}

func errorResult(name string, err error) report.FunctionResult {
	return report.FunctionResult{
		Name:    name,
		Verdict: "error",
		Error:   err.Error(),
	}
}

