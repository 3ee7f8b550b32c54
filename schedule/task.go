// Package schedule implements Rate-Monotonic and Earliest-Deadline-First
// schedulability analysis and hyperperiod schedule simulation.
package schedule

import "sort"

// Task is one periodic unit of work already timed by the IPET solver
// (spec.md §3). Priority is 0 for "unset"; RMA assigns it, EDF ignores it.
type Task struct {
	Name        string
	Function    string
	WCETCycles  int64
	WCETUs      float64
	PeriodUs    float64
	DeadlineUs  float64 // 0 means "implicit", i.e. equal to PeriodUs
	Priority    int
	Preemptible bool
}

// Deadline returns t's deadline, defaulting to its period when unset.
func (t Task) Deadline() float64 {
	if t.DeadlineUs > 0 {
		return t.DeadlineUs
	}
	return t.PeriodUs
}

// byRMAPriority orders tasks by increasing period, ties broken by name —
// shorter period runs at higher priority (spec.md §4.6).
func byRMAPriority(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	sort.Slice(out, func(i, j int) bool {
		if out[i].PeriodUs != out[j].PeriodUs {
			return out[i].PeriodUs < out[j].PeriodUs
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Priority = i // 0 is highest priority
	}
	return out
}

// Verdict is a schedulability test's outcome.
type Verdict int

const (
	Schedulable Verdict = iota
	Unschedulable
	Inconclusive
)

func (v Verdict) String() string {
	switch v {
	case Schedulable:
		return "schedulable"
	case Unschedulable:
		return "unschedulable"
	default:
		return "inconclusive"
	}
}

// Result is a schedulability test's full outcome (spec.md §3).
type Result struct {
	Method           string
	Verdict          Verdict
	Utilization      float64
	UtilizationBound float64 // 0 when the method has no closed-form bound (EDF)
	ResponseTimesUs  map[string]float64
	OffendingTask    string
}
