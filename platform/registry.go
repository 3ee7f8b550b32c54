package platform

import "github.com/lale/lale/ir"

// costs is a per-class best-cycle table used to build a Platform's Cycles
// map; worst-case multipliers for stalls (cache miss, divider latency,
// mispredict) are applied uniformly in build, not stored per platform,
// since none of the registered cores publish distinct worst-case figures.
type costs struct {
	arithInt, mul, div             int
	memLoad, memStore               int
	branchCond, branchUncond, call  int
	phi, cast, cmp, other           int
}

// registry is the closed set of supported platforms (spec.md §6). Each
// entry's table is complete: every ir.Class maps to a cost. Figures are
// conservative round numbers representative of the named core's published
// timing, not a cycle-accurate model — spec.md §9 accepts this as the
// deliberate boundary of a static estimator.
var registry = map[string]Platform{
	"cortex-m0":  build("cortex-m0", 48, costs{1, 1, 32, 2, 2, 1, 1, 4, 0, 1, 1, 2}),
	"cortex-m3":  build("cortex-m3", 72, costs{1, 1, 2, 2, 2, 1, 1, 4, 0, 1, 1, 2}),
	"cortex-m4":  build("cortex-m4", 168, costs{1, 1, 2, 2, 2, 1, 1, 4, 0, 1, 1, 2}),
	"cortex-m7":  build("cortex-m7", 216, costs{1, 1, 2, 1, 1, 1, 1, 3, 0, 1, 1, 2}),
	"cortex-m33": build("cortex-m33", 150, costs{1, 1, 2, 2, 2, 1, 1, 4, 0, 1, 1, 2}),
	"cortex-r4":  build("cortex-r4", 300, costs{1, 3, 7, 2, 2, 1, 1, 3, 0, 1, 1, 2}),
	"cortex-r5":  build("cortex-r5", 400, costs{1, 3, 6, 2, 2, 1, 1, 3, 0, 1, 1, 2}),
	"cortex-a7":  build("cortex-a7", 1200, costs{1, 4, 10, 3, 2, 1, 1, 3, 0, 1, 1, 2}),
	"cortex-a53": build("cortex-a53", 1400, costs{1, 4, 10, 3, 2, 1, 1, 3, 0, 1, 1, 2}),
	"rv32i":      build("rv32i", 100, costs{1, 9, 9, 2, 1, 1, 1, 3, 0, 1, 1, 2}),
	"rv32imac":   build("rv32imac", 100, costs{1, 1, 9, 2, 1, 1, 1, 3, 0, 1, 1, 2}),
	"rv32gc":     build("rv32gc", 320, costs{1, 4, 8, 2, 1, 1, 1, 3, 0, 1, 1, 2}),
	"rv64gc":     build("rv64gc", 1000, costs{1, 4, 12, 3, 2, 1, 1, 3, 0, 1, 1, 2}),
}

func build(name string, mhz float64, c costs) Platform {
	return Platform{
		Name:   name,
		CPUMHz: mhz,
		Cycles: map[ir.Class]Timing{
			ir.ClassArithInt:     {c.arithInt, c.arithInt},
			ir.ClassArithFloat:   {c.arithInt, c.arithInt},
			ir.ClassMul:          {c.mul, c.mul},
			ir.ClassDiv:          {c.div, c.div * 3},
			ir.ClassMemLoad:      {c.memLoad, c.memLoad * 10},
			ir.ClassMemStore:     {c.memStore, c.memStore * 5},
			ir.ClassBranchCond:   {c.branchCond, c.branchCond + 2},
			ir.ClassBranchUncond: {c.branchUncond, c.branchUncond},
			ir.ClassCall:         {c.call, c.call},
			ir.ClassPhi:          {c.phi, c.phi},
			ir.ClassCast:         {c.cast, c.cast},
			ir.ClassCmp:          {c.cmp, c.cmp},
			ir.ClassOther:        {c.other, c.other},
		},
	}
}

// platformOrder is the fixed display order for Names.
var platformOrder = []string{
	"cortex-m0", "cortex-m3", "cortex-m4", "cortex-m7", "cortex-m33",
	"cortex-r4", "cortex-r5", "cortex-a7", "cortex-a53",
	"rv32i", "rv32imac", "rv32gc", "rv64gc",
}

// Lookup resolves a platform name from the closed registry.
func Lookup(name string) (Platform, error) {
	p, ok := registry[name]
	if !ok {
		return Platform{}, &ErrUnknownPlatform{Name: name}
	}
	return p, nil
}

// Names returns the registry's platform names in a fixed order.
func Names() []string {
	names := make([]string, len(platformOrder))
	copy(names, platformOrder)
	return names
}
