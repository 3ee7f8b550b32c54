package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBagAccumulatesInInsertionOrder(t *testing.T) {
	var b Bag
	b.Add(LoopBoundDefaulted, "f", "header block 3")
	b.Add(IrreducibleRegion, "f", "blocks 2,4")

	entries := b.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, LoopBoundDefaulted, entries[0].Kind)
	assert.Equal(t, IrreducibleRegion, entries[1].Kind)
	assert.Equal(t, Warning, entries[0].Severity)
	assert.Equal(t, 2, b.Len())
}

func TestEmptyBag(t *testing.T) {
	var b Bag
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Entries())
}

func TestKindStrings(t *testing.T) {
	cases := map[Kind]string{
		LoopBoundDefaulted:      "loop_bound_defaulted",
		IrreducibleRegion:       "irreducible_region",
		UnknownInstructionClass: "unknown_instruction_class",
		Inconclusive:            "inconclusive",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
