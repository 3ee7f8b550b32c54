package schedule

import "math"

// Policy selects which priority rule drives Simulate's job selection.
type Policy int

const (
	PolicyRMA Policy = iota
	PolicyEDF
)

func (p Policy) String() string {
	if p == PolicyEDF {
		return "EDF"
	}
	return "RMA"
}

// Slot is one contiguous run of a single task (or "IDLE") in a Schedule.
type Slot struct {
	StartUs float64
	EndUs   float64
	Task    string
}

// Schedule is a full hyperperiod trace produced by Simulate.
type Schedule struct {
	HyperperiodUs float64
	Slots         []Slot
}

// NoTasks is returned by Simulate when given an empty task set.
type NoTasks struct{}

func (e *NoTasks) Error() string { return "simulate: no tasks given" }

// job is one periodic release of a task, tracked across the hyperperiod.
type job struct {
	task      Task
	release   float64
	deadline  float64
	remaining float64
}

const epsUs = 1e-9

// Simulate runs an event-driven single-processor simulation over one
// hyperperiod, selecting at every release event the ready job with
// highest priority under policy (RMA: Task.Priority; EDF: earliest
// absolute deadline, ties broken by name). A running non-preemptible
// task locks out preemption until it completes, mirroring the blocking
// term exactRTA already accounts for (spec.md §9).
func Simulate(tasks []Task, policy Policy) (Schedule, error) {
	if len(tasks) == 0 {
		return Schedule{}, &NoTasks{}
	}

	ordered := tasks
	if policy == PolicyRMA {
		ordered = byRMAPriority(tasks)
	}

	hyper := hyperperiod(ordered)

	var pending []*job
	for _, t := range ordered {
		for rel := 0.0; rel < hyper-epsUs; rel += t.PeriodUs {
			pending = append(pending, &job{task: t, release: rel, deadline: rel + t.Deadline(), remaining: t.WCETUs})
		}
	}

	sched := Schedule{HyperperiodUs: hyper}

	now := 0.0
	var running *job
	locked := false

	readyAt := func(t float64) []*job {
		var out []*job
		for _, j := range pending {
			if j.release <= t+epsUs && j.remaining > epsUs {
				out = append(out, j)
			}
		}
		return out
	}

	higherPriority := func(a, b *job) bool {
		if policy == PolicyEDF {
			if a.deadline != b.deadline {
				return a.deadline < b.deadline
			}
			return a.task.Name < b.task.Name
		}
		if a.task.Priority != b.task.Priority {
			return a.task.Priority < b.task.Priority
		}
		return a.task.Name < b.task.Name
	}

	selectNext := func() *job {
		ready := readyAt(now)
		if len(ready) == 0 {
			return nil
		}
		best := ready[0]
		for _, j := range ready[1:] {
			if higherPriority(j, best) {
				best = j
			}
		}
		return best
	}

	nextReleaseAfter := func(t float64) (float64, bool) {
		best, found := math.Inf(1), false
		for _, j := range pending {
			if j.release > t+epsUs && j.release < best {
				best, found = j.release, true
			}
		}
		return best, found
	}

	for now < hyper-epsUs {
		if !(locked && running != nil && running.remaining > epsUs) {
			candidate := selectNext()
			if candidate != running {
				running = candidate
				locked = running != nil && !running.task.Preemptible
			}
		}

		if running == nil {
			end := hyper
			if next, ok := nextReleaseAfter(now); ok && next < end {
				end = next
			}
			sched.Slots = append(sched.Slots, Slot{StartUs: now, EndUs: end, Task: "IDLE"})
			now = end
			continue
		}

		end := now + running.remaining
		if !locked {
			if next, ok := nextReleaseAfter(now); ok && next < end {
				end = next
			}
		}
		if end > hyper {
			end = hyper
		}
		dt := end - now
		sched.Slots = append(sched.Slots, Slot{StartUs: now, EndUs: end, Task: running.task.Name})
		running.remaining -= dt
		now = end
		if running.remaining <= epsUs {
			running = nil
			locked = false
		}
	}

	mergeAdjacentSlots(&sched)
	return sched, nil
}

// mergeAdjacentSlots collapses consecutive slots for the same task into
// one, which event-driven stepping otherwise leaves split at every
// release boundary even when nothing actually changed.
func mergeAdjacentSlots(s *Schedule) {
	if len(s.Slots) == 0 {
		return
	}
	merged := s.Slots[:1]
	for _, sl := range s.Slots[1:] {
		last := &merged[len(merged)-1]
		if last.Task == sl.Task && math.Abs(last.EndUs-sl.StartUs) < epsUs {
			last.EndUs = sl.EndUs
			continue
		}
		merged = append(merged, sl)
	}
	s.Slots = merged
}

func hyperperiod(tasks []Task) float64 {
	l := int64(math.Round(tasks[0].PeriodUs))
	for _, t := range tasks[1:] {
		l = lcm(l, int64(math.Round(t.PeriodUs)))
	}
	return float64(l)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func lcm(a, b int64) int64 {
	g := gcd(a, b)
	if g == 0 {
		return 0
	}
	return a / g * b
}
