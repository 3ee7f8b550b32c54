package ipet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lale/lale/cfg"
	"github.com/lale/lale/ir"
	"github.com/lale/lale/loop"
)

func loadFn(t *testing.T, src string) (*ir.Function, *cfg.Graph) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "m.ll")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	mod, err := ir.Load(path)
	require.NoError(t, err)
	fn := mod.Functions[0]
	g, err := cfg.Build(fn)
	require.NoError(t, err)
	return fn, g
}

// worstCosts assigns a fixed worst-case cost to every block, for tests
// that only care about the IPET path-counting logic, not real timing.
func worstCosts(fn *ir.Function, costs map[string]int) []int {
	out := make([]int, len(fn.Blocks))
	for _, b := range fn.Blocks {
		out[b.Index] = costs[b.Name]
	}
	return out
}

func TestSolveStraightLine(t *testing.T) {
	fn, g := loadFn(t, `
define i32 @f() {
entry:
  ret i32 0
}
`)
	m, err := Build(fn, g, nil, worstCosts(fn, map[string]int{"entry": 7}))
	require.NoError(t, err)

	res, err := Solve(m, time.Second)
	require.NoError(t, err)
	assert.Equal(t, VerdictOptimal, res.Verdict)
	assert.Equal(t, int64(7), res.WCETCycles)
	assert.Equal(t, int64(1), res.Path[fn.Entry().Index])
}

func TestSolveBranchTakesExpensivePath(t *testing.T) {
	fn, g := loadFn(t, `
define i32 @f(i32 %x) {
entry:
  %c = icmp sgt i32 %x, 0
  br i1 %c, label %heavy, label %light
heavy:
  br label %join
light:
  br label %join
join:
  ret i32 0
}
`)
	costs := worstCosts(fn, map[string]int{"entry": 2, "heavy": 100, "light": 1, "join": 3})
	m, err := Build(fn, g, nil, costs)
	require.NoError(t, err)

	res, err := Solve(m, time.Second)
	require.NoError(t, err)
	assert.Equal(t, VerdictOptimal, res.Verdict)
	assert.Equal(t, int64(2+100+3), res.WCETCycles)

	heavyIdx, lightIdx := -1, -1
	for _, b := range fn.Blocks {
		switch b.Name {
		case "heavy":
			heavyIdx = b.Index
		case "light":
			lightIdx = b.Index
		}
	}
	assert.Equal(t, int64(1), res.Path[heavyIdx])
	assert.Equal(t, int64(0), res.Path[lightIdx])
}

func TestSolveRespectsLoopBound(t *testing.T) {
	fn, g := loadFn(t, `
define i32 @f() {
entry:
  br label %loop
loop:
  %i = phi i32 [ 0, %entry ], [ %inext, %loop ]
  %inext = add i32 %i, 1
  %cond = icmp slt i32 %inext, 10
  br i1 %cond, label %loop, label %exit
exit:
  ret i32 0
}
`)
	loops := loop.Analyze(fn, g, nil)
	require.Len(t, loops, 1)
	require.Equal(t, uint64(10), loops[0].Bound)

	costs := worstCosts(fn, map[string]int{"entry": 1, "loop": 5, "exit": 1})
	m, err := Build(fn, g, loops, costs)
	require.NoError(t, err)

	res, err := Solve(m, time.Second)
	require.NoError(t, err)
	assert.Equal(t, VerdictOptimal, res.Verdict)
	// entry(1) + 10*loop(5) + exit(1)
	assert.Equal(t, int64(1+10*5+1), res.WCETCycles)
}

func TestBuildRejectsFunctionWithNoExit(t *testing.T) {
	fn, g := loadFn(t, `
define i32 @f() {
entry:
  br label %entry
}
`)
	_, err := Build(fn, g, nil, worstCosts(fn, map[string]int{"entry": 1}))
	require.Error(t, err)
	var ie *ErrInfiniteExecution
	assert.ErrorAs(t, err, &ie)
}
