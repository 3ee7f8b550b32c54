package platform

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lale/lale/ir"
)

// yamlTiming mirrors Timing with yaml tags; best/worst are optional and
// default to equal values when only one is given, matching how the pack's
// config loaders (e.g. task period/deadline) treat single-value fields.
type yamlTiming struct {
	Best  *int `yaml:"best"`
	Worst *int `yaml:"worst"`
}

type yamlPlatform struct {
	Name   string                `yaml:"name"`
	CPUMHz float64               `yaml:"cpu_mhz"`
	Cycles map[string]yamlTiming `yaml:"cycles"`
}

// classByName maps the spec's wire names for instruction classes back to
// ir.Class, the inverse of ir.Class.String.
var classByName = map[string]ir.Class{
	"arith_int":     ir.ClassArithInt,
	"arith_float":   ir.ClassArithFloat,
	"mul":           ir.ClassMul,
	"div":           ir.ClassDiv,
	"mem_load":      ir.ClassMemLoad,
	"mem_store":     ir.ClassMemStore,
	"branch_cond":   ir.ClassBranchCond,
	"branch_uncond": ir.ClassBranchUncond,
	"call":          ir.ClassCall,
	"phi":           ir.ClassPhi,
	"cast":          ir.ClassCast,
	"cmp":           ir.ClassCmp,
	"other":         ir.ClassOther,
}

// UnknownClass is returned by FromYAML for a cycles key outside
// classByName.
type UnknownClass struct {
	Name string
}

func (e *UnknownClass) Error() string {
	return fmt.Sprintf("unknown instruction class %q", e.Name)
}

// FromYAML parses a user-supplied platform override document (spec.md §4.2:
// platforms may be extended beyond the built-in registry). A class omitted
// from Cycles falls back to the "other" entry at Cost time, so callers are
// not required to supply all thirteen classes.
func FromYAML(data []byte) (Platform, error) {
	var yp yamlPlatform
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return Platform{}, fmt.Errorf("platform: %w", err)
	}
	if yp.Name == "" {
		return Platform{}, fmt.Errorf("platform: missing name")
	}
	p := Platform{
		Name:   yp.Name,
		CPUMHz: yp.CPUMHz,
		Cycles: make(map[ir.Class]Timing, len(yp.Cycles)),
	}
	for name, t := range yp.Cycles {
		cls, ok := classByName[name]
		if !ok {
			return Platform{}, &UnknownClass{Name: name}
		}
		var tm Timing
		switch {
		case t.Best != nil && t.Worst != nil:
			tm = Timing{Best: *t.Best, Worst: *t.Worst}
		case t.Best != nil:
			tm = Timing{Best: *t.Best, Worst: *t.Best}
		case t.Worst != nil:
			tm = Timing{Best: *t.Worst, Worst: *t.Worst}
		}
		p.Cycles[cls] = tm
	}
	if _, ok := p.Cycles[ir.ClassOther]; !ok {
		p.Cycles[ir.ClassOther] = Timing{Best: 2, Worst: 2}
	}
	return p, nil
}
