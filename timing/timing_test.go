package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lale/lale/ir"
	"github.com/lale/lale/platform"
)

func TestBlockSumsInstructionsAndTerminator(t *testing.T) {
	p, err := platform.Lookup("cortex-m4")
	require.NoError(t, err)

	b := &ir.BasicBlock{
		Instrs: []ir.Instruction{
			{Class: ir.ClassArithInt},
			{Class: ir.ClassMul},
		},
		Term: ir.Terminator{Kind: ir.TermConditional},
	}
	want := p.Cost(ir.ClassArithInt)
	m := p.Cost(ir.ClassMul)
	br := p.Cost(ir.ClassBranchCond)
	total := Block(p, b)
	assert.Equal(t, want.Best+m.Best+br.Best, total.Best)
	assert.Equal(t, want.Worst+m.Worst+br.Worst, total.Worst)
}

func TestBlockReturnTerminatorNotChargeable(t *testing.T) {
	p, _ := platform.Lookup("cortex-m0")
	b := &ir.BasicBlock{
		Instrs: []ir.Instruction{{Class: ir.ClassArithInt}},
		Term:   ir.Terminator{Kind: ir.TermReturn},
	}
	want := p.Cost(ir.ClassArithInt)
	total := Block(p, b)
	assert.Equal(t, want, total)
}

func TestCyclesToMicros(t *testing.T) {
	p := platform.Platform{CPUMHz: 100}
	assert.Equal(t, 10.0, CyclesToMicros(1000, p))
}

func TestCyclesToMicrosZeroClock(t *testing.T) {
	assert.Equal(t, 0.0, CyclesToMicros(1000, platform.Platform{}))
}
