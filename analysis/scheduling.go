package analysis

import (
	"github.com/rs/zerolog"

	"github.com/lale/lale/report"
	"github.com/lale/lale/schedule"
)

// buildSchedulability resolves each configured task's WCET from the
// per-function analysis results, runs the configured schedulability
// policy, and — per spec.md §9 ("EDF hyperperiod schedules are
// generated... not optional") — always simulates a hyperperiod schedule
// when at least one task is configured.
func buildSchedulability(cfg Config, byFunction map[string]report.FunctionResult, log zerolog.Logger) ([]report.Task, report.Schedulability, *report.Schedule, error) {
	if len(cfg.Tasks) == 0 {
		return nil, report.Schedulability{ResponseTimesUs: map[string]float64{}}, nil, nil
	}

	resolved := make([]schedule.Task, len(cfg.Tasks))
	reportTasks := make([]report.Task, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		fr, ok := byFunction[t.Function]
		if !ok {
			return nil, report.Schedulability{}, nil, &UnresolvedTaskFunction{Task: t.Name, Function: t.Function}
		}
		t.WCETCycles = fr.WCETCycles
		t.WCETUs = fr.WCETUs
		resolved[i] = t
		reportTasks[i] = report.Task{
			Name:       t.Name,
			Function:   t.Function,
			PeriodUs:   t.PeriodUs,
			DeadlineUs: t.DeadlineUs,
			Priority:   t.Priority,
		}
	}

	var res schedule.Result
	if cfg.Policy == schedule.PolicyEDF {
		res = schedule.AnalyzeEDF(resolved)
	} else {
		res = schedule.AnalyzeRMA(resolved)
	}
	log.Info().Str("method", res.Method).Str("verdict", res.Verdict.String()).Msg("schedulability analyzed")

	var boundPtr *float64
	if res.UtilizationBound > 0 {
		bound := res.UtilizationBound
		boundPtr = &bound
	}
	sched := report.Schedulability{
		Method:           res.Method,
		Result:           res.Verdict.String(),
		Utilization:      res.Utilization,
		UtilizationBound: boundPtr,
		ResponseTimesUs:  res.ResponseTimesUs,
	}

	preemptible := make(map[string]bool, len(resolved))
	for _, t := range resolved {
		preemptible[t.Name] = t.Preemptible
	}

	sim, err := schedule.Simulate(resolved, cfg.Policy)
	if err != nil {
		return nil, report.Schedulability{}, nil, err
	}
	slots := make([]report.Slot, len(sim.Slots))
	for i, s := range sim.Slots {
		p := preemptible[s.Task]
		if s.Task == "IDLE" {
			p = true
		}
		slots[i] = report.Slot{
			StartUs:     s.StartUs,
			DurationUs:  s.EndUs - s.StartUs,
			Task:        s.Task,
			Preemptible: p,
		}
	}

	return reportTasks, sched, &report.Schedule{HyperperiodUs: sim.HyperperiodUs, Slots: slots}, nil
}
