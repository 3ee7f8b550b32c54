package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRMAUnderUtilizationBoundSchedulable(t *testing.T) {
	tasks := []Task{
		{Name: "a", WCETUs: 1, PeriodUs: 4, Preemptible: true},
		{Name: "b", WCETUs: 1, PeriodUs: 6, Preemptible: true},
	}
	res := AnalyzeRMA(tasks)
	assert.Equal(t, Schedulable, res.Verdict)
	assert.Equal(t, "RMA", res.Method)
	assert.InDelta(t, 1.0/4+1.0/6, res.Utilization, 1e-9)
}

func TestAnalyzeRMAFallsBackToExactRTAWhenOverBound(t *testing.T) {
	// Above the Liu & Layland bound for n=3, forcing exact RTA.
	tasks := []Task{
		{Name: "a", WCETUs: 1, PeriodUs: 4, Preemptible: true},
		{Name: "b", WCETUs: 3, PeriodUs: 5, Preemptible: true},
		{Name: "c", WCETUs: 2, PeriodUs: 20, Preemptible: true},
	}
	u := 1.0/4 + 3.0/5 + 2.0/20
	bound := 3 * (math.Pow(2, 1.0/3) - 1)
	require.Greater(t, u, bound)

	res := AnalyzeRMA(tasks)
	require.Contains(t, []Verdict{Schedulable, Unschedulable}, res.Verdict)
	assert.NotZero(t, res.ResponseTimesUs["a"])
}

func TestAnalyzeRMAUnschedulable(t *testing.T) {
	tasks := []Task{
		{Name: "a", WCETUs: 5, PeriodUs: 10},
		{Name: "b", WCETUs: 5, PeriodUs: 10},
		{Name: "c", WCETUs: 5, PeriodUs: 10},
	}
	res := AnalyzeRMA(tasks)
	assert.Equal(t, Unschedulable, res.Verdict)
	assert.NotEmpty(t, res.OffendingTask)
}

func TestAnalyzeRMABlockingTermFromNonPreemptibleTask(t *testing.T) {
	// Utilization exceeds the Liu & Layland bound, forcing exact RTA, where
	// high's response time must include low's non-preemptible blocking term.
	tasks := []Task{
		{Name: "high", WCETUs: 1, PeriodUs: 10},
		{Name: "low", WCETUs: 15, PeriodUs: 20, Preemptible: false},
	}
	res := AnalyzeRMA(tasks)
	assert.GreaterOrEqual(t, res.ResponseTimesUs["high"], 1.0+15.0-1e-9)
}

func TestAnalyzeEDFImplicitDeadlineSchedulable(t *testing.T) {
	tasks := []Task{
		{Name: "a", WCETUs: 1, PeriodUs: 4},
		{Name: "b", WCETUs: 2, PeriodUs: 5},
	}
	res := AnalyzeEDF(tasks)
	assert.Equal(t, Schedulable, res.Verdict)
}

func TestAnalyzeEDFUnschedulable(t *testing.T) {
	tasks := []Task{
		{Name: "a", WCETUs: 6, PeriodUs: 10},
		{Name: "b", WCETUs: 6, PeriodUs: 10},
	}
	res := AnalyzeEDF(tasks)
	assert.Equal(t, Unschedulable, res.Verdict)
}

func TestAnalyzeEDFConstrainedDeadlinePassingTestIsInconclusive(t *testing.T) {
	tasks := []Task{
		{Name: "a", WCETUs: 1, PeriodUs: 10, DeadlineUs: 5},
		{Name: "b", WCETUs: 1, PeriodUs: 20, DeadlineUs: 15},
	}
	res := AnalyzeEDF(tasks)
	assert.Equal(t, Inconclusive, res.Verdict)
}

func TestSimulateRMAProducesFullHyperperiodCoverage(t *testing.T) {
	tasks := []Task{
		{Name: "a", WCETUs: 1, PeriodUs: 4, Preemptible: true},
		{Name: "b", WCETUs: 1, PeriodUs: 6, Preemptible: true},
	}
	sched, err := Simulate(tasks, PolicyRMA)
	require.NoError(t, err)
	assert.Equal(t, float64(12), sched.HyperperiodUs)

	var covered float64
	for _, s := range sched.Slots {
		assert.GreaterOrEqual(t, s.EndUs, s.StartUs)
		covered += s.EndUs - s.StartUs
	}
	assert.InDelta(t, sched.HyperperiodUs, covered, 1e-6)
}

func TestSimulateHigherPriorityPreemptsLowerPriority(t *testing.T) {
	tasks := []Task{
		{Name: "fast", WCETUs: 1, PeriodUs: 4, Preemptible: true},
		{Name: "slow", WCETUs: 3, PeriodUs: 12, Preemptible: true},
	}
	sched, err := Simulate(tasks, PolicyRMA)
	require.NoError(t, err)

	// "fast" (shorter period, higher RMA priority) must never wait behind
	// "slow" once both are ready: its every slot should start at a release
	// boundary (0, 4, 8) with no more than epsilon delay.
	releaseBoundaries := map[float64]bool{0: true, 4: true, 8: true}
	for _, s := range sched.Slots {
		if s.Task != "fast" {
			continue
		}
		_, atBoundary := releaseBoundaries[s.StartUs]
		assert.True(t, atBoundary, "fast slot starting at %v not at a release boundary", s.StartUs)
	}
}

func TestSimulateNonPreemptibleTaskBlocksHigherPriorityUntilDone(t *testing.T) {
	// "high" (period 3) outranks "low" (period 20) under RMA, but once
	// low starts its non-preemptible run at t=1 a mid-run release of high
	// (at t=3) must wait until low finishes at t=6, not preempt it.
	tasks := []Task{
		{Name: "high", WCETUs: 1, PeriodUs: 3, Preemptible: true},
		{Name: "low", WCETUs: 5, PeriodUs: 20, Preemptible: false},
	}
	sched, err := Simulate(tasks, PolicyRMA)
	require.NoError(t, err)

	var lowSlot *Slot
	for i := range sched.Slots {
		if sched.Slots[i].Task == "low" {
			lowSlot = &sched.Slots[i]
			break
		}
	}
	require.NotNil(t, lowSlot)
	assert.InDelta(t, 1, lowSlot.StartUs, 1e-6)
	assert.InDelta(t, 6, lowSlot.EndUs, 1e-6)

	for _, s := range sched.Slots {
		if s.Task == "high" && s.StartUs > lowSlot.StartUs && s.StartUs < lowSlot.EndUs {
			t.Fatalf("high ran at %+v during low's non-preemptible window %+v", s, *lowSlot)
		}
	}
}

func TestSimulateRejectsEmptyTaskSet(t *testing.T) {
	_, err := Simulate(nil, PolicyRMA)
	require.Error(t, err)
	var nt *NoTasks
	require.ErrorAs(t, err, &nt)
}
