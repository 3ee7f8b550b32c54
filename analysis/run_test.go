package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lale/lale/ir"
	"github.com/lale/lale/platform"
	"github.com/lale/lale/schedule"
)

func loadModule(t *testing.T, src string) *ir.Module {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "m.ll")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	mod, err := ir.Load(path)
	require.NoError(t, err)
	return mod
}

const straightLineIR = `
define i32 @f() {
entry:
  %x = add i32 1, 2
  ret i32 0
}
`

func TestRunAnalyzesFunctionsAndAssemblesReport(t *testing.T) {
	mod := loadModule(t, straightLineIR)
	p, err := platform.Lookup("cortex-m4")
	require.NoError(t, err)

	cfg := Config{
		Modules:  []*ir.Module{mod},
		Platform: p,
		Tasks: []schedule.Task{
			{Name: "t1", Function: "f", PeriodUs: 1000, Preemptible: true},
		},
		Policy: schedule.PolicyRMA,
	}

	r, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, r.WCETAnalysis.Functions, 1)

	fr := r.WCETAnalysis.Functions[0]
	assert.Equal(t, "f", fr.Name)
	assert.Equal(t, "optimal", fr.Verdict)
	assert.Greater(t, fr.WCETCycles, int64(0))
	assert.GreaterOrEqual(t, fr.WCETCycles, fr.BCETCycles)

	assert.Equal(t, "RMA", r.Schedulability.Method)
	assert.NotNil(t, r.Schedule)
	assert.False(t, r.Cancelled)
	assert.Equal(t, "lale", r.AnalysisInfo.Tool)
}

func TestRunReportsUnresolvedTaskFunctionAsFatal(t *testing.T) {
	mod := loadModule(t, straightLineIR)
	p, err := platform.Lookup("cortex-m4")
	require.NoError(t, err)

	cfg := Config{
		Modules:  []*ir.Module{mod},
		Platform: p,
		Tasks: []schedule.Task{
			{Name: "t1", Function: "missing", PeriodUs: 1000, Preemptible: true},
		},
		Policy: schedule.PolicyRMA,
	}

	_, err = Run(context.Background(), cfg)
	require.Error(t, err)
	var ut *UnresolvedTaskFunction
	assert.ErrorAs(t, err, &ut)
}

func TestRunTagsInfiniteExecutionAsErrorResultNotFatal(t *testing.T) {
	mod := loadModule(t, `
define i32 @loops() {
entry:
  br label %entry
}
`)
	p, err := platform.Lookup("cortex-m4")
	require.NoError(t, err)

	r, err := Run(context.Background(), Config{Modules: []*ir.Module{mod}, Platform: p})
	require.NoError(t, err)
	require.Len(t, r.WCETAnalysis.Functions, 1)
	assert.Equal(t, "error", r.WCETAnalysis.Functions[0].Verdict)
	assert.NotEmpty(t, r.WCETAnalysis.Functions[0].Error)
}

func TestRunWithNoTasksSkipsScheduling(t *testing.T) {
	mod := loadModule(t, straightLineIR)
	p, err := platform.Lookup("cortex-m4")
	require.NoError(t, err)

	r, err := Run(context.Background(), Config{Modules: []*ir.Module{mod}, Platform: p})
	require.NoError(t, err)
	assert.Nil(t, r.Schedule)
	assert.Empty(t, r.TaskModel.Tasks)
}
