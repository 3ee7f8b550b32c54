package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lale/lale/loop"
	"github.com/lale/lale/schedule"
)

func TestLoadTasksDefaultsPreemptibleTrue(t *testing.T) {
	doc := `
tasks:
  - name: t1
    function: f
    period_us: 1000
  - name: t2
    function: g
    period_us: 2000
    deadline_us: 1500
    preemptible: false
`
	tasks, err := LoadTasks(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.True(t, tasks[0].Preemptible)
	assert.False(t, tasks[1].Preemptible)
	assert.Equal(t, 1500.0, tasks[1].DeadlineUs)
}

func TestLoadOverridesBySourceLineAndBlockIndex(t *testing.T) {
	doc := `
overrides:
  f:
    - source_line: 42
      bound: 10
    - block_index: 3
      bound: 5
`
	ov, err := LoadOverrides(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, uint64(10), ov[loop.Key{Function: "f", HeaderSourceLine: 42}])
	assert.Equal(t, uint64(5), ov[loop.Key{Function: "f", HeaderBlockIndex: 3}])
}

func TestValidateRejectsNonPositivePeriod(t *testing.T) {
	tasks := []schedule.Task{{Name: "t1", Function: "f", PeriodUs: 0}}
	err := Validate(tasks, nil)
	require.Error(t, err)
	var ic *InvalidTaskConfig
	assert.ErrorAs(t, err, &ic)
}

func TestValidateRejectsDeadlineExceedingPeriod(t *testing.T) {
	tasks := []schedule.Task{{Name: "t1", Function: "f", PeriodUs: 10, DeadlineUs: 20}}
	err := Validate(tasks, nil)
	require.Error(t, err)
}

func TestValidateRejectsDuplicateName(t *testing.T) {
	tasks := []schedule.Task{
		{Name: "t1", Function: "f", PeriodUs: 10},
		{Name: "t1", Function: "g", PeriodUs: 20},
	}
	err := Validate(tasks, nil)
	require.Error(t, err)
}

func TestValidateRejectsUnknownFunction(t *testing.T) {
	tasks := []schedule.Task{{Name: "t1", Function: "missing", PeriodUs: 10}}
	err := Validate(tasks, map[string]bool{"f": true})
	require.Error(t, err)
}

func TestValidateAcceptsWellFormedTasks(t *testing.T) {
	tasks := []schedule.Task{
		{Name: "t1", Function: "f", PeriodUs: 10},
		{Name: "t2", Function: "g", PeriodUs: 20, DeadlineUs: 15},
	}
	err := Validate(tasks, map[string]bool{"f": true, "g": true})
	assert.NoError(t, err)
}
