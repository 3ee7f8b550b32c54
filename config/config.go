// Package config loads the task set and loop-bound override map from
// YAML documents into the structs spec.md §3/§6 already define, and
// validates a loaded task set before analysis proceeds — mirroring the
// teacher's linker's "resolve and verify up front, fail fast" phase
// style rather than discovering a bad reference mid-run.
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/lale/lale/loop"
	"github.com/lale/lale/schedule"
)

// InvalidTaskConfig is returned by Validate for a malformed task entry.
type InvalidTaskConfig struct {
	Task   string
	Reason string
}

func (e *InvalidTaskConfig) Error() string {
	return fmt.Sprintf("invalid task %q: %s", e.Task, e.Reason)
}

type yamlTask struct {
	Name        string  `yaml:"name"`
	Function    string  `yaml:"function"`
	PeriodUs    float64 `yaml:"period_us"`
	DeadlineUs  float64 `yaml:"deadline_us"`
	Priority    int     `yaml:"priority"`
	Preemptible *bool   `yaml:"preemptible"`
}

type tasksDoc struct {
	Tasks []yamlTask `yaml:"tasks"`
}

// LoadTasks parses an ordered task-set document (spec.md §6's "Task
// configuration"). Preemptible defaults to true when the document omits
// it, matching the common case of ordinary preemptible periodic tasks;
// only an explicit `preemptible: false` opts a task into the
// non-preemptive blocking-time extension.
func LoadTasks(r io.Reader) ([]schedule.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: reading task document: %w", err)
	}

	var doc tasksDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing task document: %w", err)
	}

	tasks := make([]schedule.Task, len(doc.Tasks))
	for i, yt := range doc.Tasks {
		preemptible := true
		if yt.Preemptible != nil {
			preemptible = *yt.Preemptible
		}
		tasks[i] = schedule.Task{
			Name:        yt.Name,
			Function:    yt.Function,
			PeriodUs:    yt.PeriodUs,
			DeadlineUs:  yt.DeadlineUs,
			Priority:    yt.Priority,
			Preemptible: preemptible,
		}
	}
	return tasks, nil
}

// overridesDoc is keyed by function name; each function maps either a
// source line or a block index to an iteration bound. Exactly one of
// SourceLine/BlockIndex must be set per entry.
type overrideEntry struct {
	SourceLine int    `yaml:"source_line"`
	BlockIndex int    `yaml:"block_index"`
	Bound      uint64 `yaml:"bound"`
}

type overridesDoc struct {
	Overrides map[string][]overrideEntry `yaml:"overrides"`
}

// LoadOverrides parses the optional loop-bound override map (spec.md
// §6's "(function_name, header_id_or_source_line) → natural").
func LoadOverrides(r io.Reader) (loop.Overrides, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: reading overrides document: %w", err)
	}

	var doc overridesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing overrides document: %w", err)
	}

	out := make(loop.Overrides)
	for fn, entries := range doc.Overrides {
		for _, e := range entries {
			key := loop.Key{Function: fn}
			if e.SourceLine > 0 {
				key.HeaderSourceLine = e.SourceLine
			} else {
				key.HeaderBlockIndex = e.BlockIndex
			}
			out[key] = e.Bound
		}
	}
	return out, nil
}

// Validate enforces spec.md §7's InvalidTaskConfig rules: a positive
// period, a deadline that's either unset (implicit) or within
// (0, period], and (when knownFunctions is non-nil) a function
// reference that actually exists in the analyzed module set.
func Validate(tasks []schedule.Task, knownFunctions map[string]bool) error {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Name == "" {
			return &InvalidTaskConfig{Task: t.Function, Reason: "task name is empty"}
		}
		if seen[t.Name] {
			return &InvalidTaskConfig{Task: t.Name, Reason: "duplicate task name"}
		}
		seen[t.Name] = true

		if t.PeriodUs <= 0 {
			return &InvalidTaskConfig{Task: t.Name, Reason: "period_us must be positive"}
		}
		if t.DeadlineUs < 0 || t.DeadlineUs > t.PeriodUs {
			return &InvalidTaskConfig{Task: t.Name, Reason: "deadline_us must be 0 (implicit) or in (0, period_us]"}
		}
		if knownFunctions != nil && !knownFunctions[t.Function] {
			return &InvalidTaskConfig{Task: t.Name, Reason: fmt.Sprintf("unknown function %q", t.Function)}
		}
	}
	return nil
}
