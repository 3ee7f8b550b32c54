package loop

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lale/lale/cfg"
	"github.com/lale/lale/ir"
)

var (
	reICmp     = regexp.MustCompile(`^(\w+)\s+[\w.<> ]+?\s+([%\w.$-]+)\s*,\s*([%\w.$-]+)\s*$`)
	rePhiIncoming = regexp.MustCompile(`\[\s*([^,\]]+?)\s*,\s*%([\w.$-]+)\s*\]`)
	reBinOp    = regexp.MustCompile(`^[\w.<> ]+?\s+([%\w.$-]+)\s*,\s*([%\w.$-]+)\s*$`)
)

// inferBound resolves l's iteration bound in priority order: constant trip
// count, induction variable, user annotation, default (spec.md §3).
func inferBound(fn *ir.Function, g *cfg.Graph, l *Loop, overrides Overrides) (uint64, BoundSource) {
	if l.irreducible {
		return DefaultBound, BoundDefault
	}

	if n, source, ok := matchInduction(fn, l); ok {
		return n, source
	}

	if bound, ok := lookupAnnotation(fn, l, overrides); ok {
		return bound, BoundAnnotation
	}

	return DefaultBound, BoundDefault
}

// matchInduction recognizes a header phi driving a loop counter compared
// against a constant limit, with a constant step applied somewhere in the
// loop body (spec.md §9's "pattern-based, limited" matcher). The comparison
// is the one tested by the header's conditional branch or, when the header
// branches unconditionally, by the first body block (in block order) whose
// conditional branch targets the header. A step of
// exactly 1 is reported as BoundConstantTrip (the common counting-loop
// case this analyzer can fold directly); any other constant step is
// BoundInductionVariable. Any shape outside this pattern returns ok=false.
func matchInduction(fn *ir.Function, l *Loop) (uint64, BoundSource, bool) {
	header := headerBlock(fn, l.Header)
	if header == nil {
		return 0, 0, false
	}
	test := header
	for _, b := range fn.Blocks {
		if test.Term.Cond != "" {
			break
		}
		if l.Body[b.Index] && b.Term.Kind == ir.TermConditional && (b.Term.Targets[0] == header.Name || b.Term.Targets[1] == header.Name) {
			test = b
		}
	}
	if test.Term.Cond == "" {
		return 0, 0, false
	}

	cmp := findInstruction(test, test.Term.Cond)
	if cmp == nil || cmp.Opcode != "icmp" {
		return 0, 0, false
	}
	m := reICmp.FindStringSubmatch(cmp.Operand)
	if m == nil {
		return 0, 0, false
	}
	lhs, rhs := m[2], m[3]

	var ivReg, limitTok string
	if isReg(lhs) && !isReg(rhs) {
		ivReg, limitTok = lhs, rhs
	} else if isReg(rhs) && !isReg(lhs) {
		ivReg, limitTok = rhs, lhs
	} else {
		return 0, 0, false
	}
	limit, err := strconv.ParseInt(limitTok, 10, 64)
	if err != nil {
		return 0, 0, false
	}

	// The comparison may test the phi itself ("icmp slt %i, 10") or the
	// value produced by its own increment ("icmp slt %inext, 10", where
	// %inext = add %i, 1") — both are common depending on how the compiler
	// ordered the increment relative to the test.
	var phi, stepInstr *ir.Instruction
	if p := findInstruction(header, ivReg); p != nil && p.Class == ir.ClassPhi {
		phi = p
	} else if step := findInBody(fn, l, ivReg); step != nil && step.Opcode == "add" {
		stepInstr = step
		bm := reBinOp.FindStringSubmatch(step.Operand)
		if bm == nil {
			return 0, 0, false
		}
		for _, cand := range []string{bm[1], bm[2]} {
			if p := findInstruction(header, cand); p != nil && p.Class == ir.ClassPhi {
				phi = p
				break
			}
		}
	}
	if phi == nil {
		return 0, 0, false
	}
	ivReg = phi.Dest

	incoming := rePhiIncoming.FindAllStringSubmatch(phi.Operand, -1)
	if len(incoming) != 2 {
		return 0, 0, false
	}

	var init int64
	var haveInit bool
	var stepReg string
	for _, in := range incoming {
		val, pred := strings.TrimSpace(in[1]), in[2]
		if !l.Body[blockIndexByName(fn, pred)] {
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, 0, false
			}
			init, haveInit = n, true
		} else if isReg(val) {
			stepReg = val
		}
	}
	if !haveInit || stepReg == "" {
		return 0, 0, false
	}

	if stepInstr == nil {
		stepInstr = findInBody(fn, l, stepReg)
	}
	if stepInstr == nil || stepInstr.Opcode != "add" {
		return 0, 0, false
	}
	bm := reBinOp.FindStringSubmatch(stepInstr.Operand)
	if bm == nil {
		return 0, 0, false
	}
	var stepTok string
	if bm[1] == ivReg {
		stepTok = bm[2]
	} else if bm[2] == ivReg {
		stepTok = bm[1]
	} else {
		return 0, 0, false
	}
	step, err := strconv.ParseInt(stepTok, 10, 64)
	if err != nil || step <= 0 {
		return 0, 0, false
	}

	trips := int64(0)
	if limit > init {
		trips = int64(math.Ceil(float64(limit-init) / float64(step)))
	}
	if trips < 0 {
		trips = 0
	}

	if step == 1 {
		return uint64(trips), BoundConstantTrip, true
	}
	return uint64(trips), BoundInductionVariable, true
}

func headerBlock(fn *ir.Function, idx int) *ir.BasicBlock {
	for _, b := range fn.Blocks {
		if b.Index == idx {
			return b
		}
	}
	return nil
}

func blockIndexByName(fn *ir.Function, name string) int {
	b, ok := fn.BlockByName(name)
	if !ok {
		return -1
	}
	return b.Index
}

func findInstruction(b *ir.BasicBlock, dest string) *ir.Instruction {
	for i := range b.Instrs {
		if b.Instrs[i].Dest == dest {
			return &b.Instrs[i]
		}
	}
	return nil
}

func findInBody(fn *ir.Function, l *Loop, dest string) *ir.Instruction {
	for idx := range l.Body {
		b := headerBlock(fn, idx)
		if b == nil {
			continue
		}
		if instr := findInstruction(b, dest); instr != nil {
			return instr
		}
	}
	return nil
}

func isReg(tok string) bool {
	return strings.HasPrefix(tok, "%")
}

// lookupAnnotation resolves a user override keyed first by header source
// line (when recorded), else by header block index, per spec.md §9.
func lookupAnnotation(fn *ir.Function, l *Loop, overrides Overrides) (uint64, bool) {
	if overrides == nil {
		return 0, false
	}
	header := headerBlock(fn, l.Header)
	if header == nil {
		return 0, false
	}
	if line := headerSourceLine(header); line > 0 {
		if n, ok := overrides[Key{Function: fn.Name, HeaderSourceLine: line}]; ok {
			return n, true
		}
	}
	n, ok := overrides[Key{Function: fn.Name, HeaderBlockIndex: l.Header}]
	return n, ok
}

func headerSourceLine(b *ir.BasicBlock) int {
	if len(b.Instrs) > 0 {
		return b.Instrs[0].Line
	}
	return b.Term.Line
}
