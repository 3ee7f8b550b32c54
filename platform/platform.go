// Package platform holds the static hardware timing table: per
// instruction-class {best,worst} cycle costs and the CPU frequency used to
// convert cycles to microseconds. A Platform is plain data — spec.md §9
// ("Polymorphism over platforms... no dynamic dispatch needed; new
// platforms are new data") — never a closure or interface.
package platform

import (
	"fmt"

	"github.com/lale/lale/ir"
)

// Timing is a block or instruction's best/worst cycle cost.
type Timing struct {
	Best  int
	Worst int
}

// Platform is a named hardware timing model: CPU frequency plus a complete
// mapping from every ir.Class to its cycle cost.
type Platform struct {
	Name   string
	CPUMHz float64
	Cycles map[ir.Class]Timing
}

// Cost returns the best/worst cycles for a class, falling back to the
// "other" entry's cost if the platform table is missing an entry for cls —
// this should not happen for a Platform built by Lookup, since every
// registry entry carries a complete table, but FromYAML-supplied tables are
// user data and spec.md §4.4 requires unknown classes to map to "other" at
// a conservative cost rather than panic.
func (p Platform) Cost(cls ir.Class) Timing {
	if t, ok := p.Cycles[cls]; ok {
		return t
	}
	return p.Cycles[ir.ClassOther]
}

// ErrUnknownPlatform is returned by Lookup for a name outside the closed
// registry (spec.md §6).
type ErrUnknownPlatform struct {
	Name string
}

func (e *ErrUnknownPlatform) Error() string {
	return fmt.Sprintf("unknown platform %q", e.Name)
}
