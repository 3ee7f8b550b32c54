// Package timing reduces a function's blocks and instructions to cycle
// costs against a chosen platform.Platform. It holds no state of its own;
// every function is pure, mirroring emul's decode/execute split where
// decoding (ir.Load) and cost dispatch (here) are separate concerns.
package timing

import (
	"github.com/lale/lale/ir"
	"github.com/lale/lale/platform"
)

// Cost returns the best/worst cycle cost of a single instruction class on
// p.
func Cost(p platform.Platform, cls ir.Class) platform.Timing {
	return p.Cost(cls)
}

// TerminatorClass maps a terminator kind to the instruction class its
// cycle cost is charged against. Return and unreachable terminators cost
// nothing beyond the block's last real instruction; switch is charged as a
// conditional branch, since IPET's per-edge accounting (not this package)
// is what distinguishes which arm was taken.
func TerminatorClass(kind ir.TermKind) (cls ir.Class, chargeable bool) {
	switch kind {
	case ir.TermConditional, ir.TermSwitch:
		return ir.ClassBranchCond, true
	case ir.TermUnconditional:
		return ir.ClassBranchUncond, true
	default:
		return 0, false
	}
}

// Block sums a basic block's own cost (excluding any loop iteration
// multiplier, which ipet applies through the block's execution count):
// every interior instruction plus
// the terminator, if chargeable.
func Block(p platform.Platform, b *ir.BasicBlock) platform.Timing {
	var total platform.Timing
	for _, instr := range b.Instrs {
		t := p.Cost(instr.Class)
		total.Best += t.Best
		total.Worst += t.Worst
	}
	if cls, ok := TerminatorClass(b.Term.Kind); ok {
		t := p.Cost(cls)
		total.Best += t.Best
		total.Worst += t.Worst
	}
	return total
}

// CyclesToMicros converts a cycle count to microseconds at p's clock rate.
func CyclesToMicros(cycles int64, p platform.Platform) float64 {
	if p.CPUMHz <= 0 {
		return 0
	}
	return float64(cycles) / p.CPUMHz
}
