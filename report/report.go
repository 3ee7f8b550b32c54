// Package report aggregates per-function WCET results, the task model,
// and the schedulability verdict into a single immutable report object.
// It performs no I/O; struct tags describe the external JSON shape but a
// collaborator owns the actual marshaling (spec.md §6).
package report

import "github.com/lale/lale/diag"

// AnalysisInfo identifies the tool run that produced a Report.
type AnalysisInfo struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Platform  string `json:"platform"`
}

// FunctionResult is one analyzed function's WCET/BCET and its warnings.
type FunctionResult struct {
	Name        string            `json:"name"`
	WCETCycles  int64             `json:"wcet_cycles"`
	WCETUs      float64           `json:"wcet_us"`
	BCETCycles  int64             `json:"bcet_cycles"`
	BCETUs      float64           `json:"bcet_us"`
	LoopCount   int               `json:"loop_count"`
	Verdict     string            `json:"verdict"`
	Error       string            `json:"error,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// WCETAnalysis wraps the per-function results.
type WCETAnalysis struct {
	Functions []FunctionResult `json:"functions"`
}

// Task mirrors schedule.Task's external shape (report imports nothing from
// schedule to keep its dependency direction one-way: schedule produces
// values, report only shapes them for output).
type Task struct {
	Name       string  `json:"name"`
	Function   string  `json:"function"`
	PeriodUs   float64 `json:"period_us"`
	DeadlineUs float64 `json:"deadline_us,omitempty"`
	Priority   int     `json:"priority,omitempty"`
}

// TaskModel wraps the configured task set.
type TaskModel struct {
	Tasks []Task `json:"tasks"`
}

// Schedulability is the RMA/EDF verdict and its supporting numbers.
type Schedulability struct {
	Method           string             `json:"method"`
	Result           string             `json:"result"`
	Utilization      float64            `json:"utilization"`
	UtilizationBound *float64           `json:"utilization_bound,omitempty"`
	ResponseTimesUs  map[string]float64 `json:"response_times"`
}

// Slot is one contiguous run in a generated hyperperiod schedule.
type Slot struct {
	StartUs     float64 `json:"start_us"`
	DurationUs  float64 `json:"duration_us"`
	Task        string  `json:"task"`
	Preemptible bool    `json:"preemptible"`
}

// Schedule is the optional generated hyperperiod trace.
type Schedule struct {
	HyperperiodUs float64 `json:"hyperperiod_us"`
	Slots         []Slot  `json:"slots"`
}

// Report is the full, immutable analysis result (spec.md §6).
type Report struct {
	AnalysisInfo   AnalysisInfo   `json:"analysis_info"`
	WCETAnalysis   WCETAnalysis   `json:"wcet_analysis"`
	TaskModel      TaskModel      `json:"task_model"`
	Schedulability Schedulability `json:"schedulability"`
	Schedule       *Schedule      `json:"schedule,omitempty"`
	Cancelled      bool           `json:"cancelled,omitempty"`
}

// Build assembles a Report from its already-computed parts. It is a pure
// function: given the same inputs it returns byte-identical content (up
// to the caller-supplied timestamp), which is what makes the
// determinism and round-trip properties (spec.md §8) checkable without
// any I/O.
func Build(info AnalysisInfo, functions []FunctionResult, tasks []Task, sched Schedulability, schedule *Schedule, cancelled bool) Report {
	return Report{
		AnalysisInfo:   info,
		WCETAnalysis:   WCETAnalysis{Functions: functions},
		TaskModel:      TaskModel{Tasks: tasks},
		Schedulability: sched,
		Schedule:       schedule,
		Cancelled:      cancelled,
	}
}
