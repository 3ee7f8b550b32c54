package schedule

// AnalyzeEDF runs Earliest-Deadline-First schedulability analysis:
// Σ C_i/D_i ≤ 1 is necessary and sufficient for implicit deadlines
// (D_i == T_i), necessary only otherwise — a passing test on constrained
// deadlines (D_i ≤ T_i, D_i < T_i for at least one task) is reported
// Inconclusive rather than claimed sufficient (spec.md §4.6).
func AnalyzeEDF(tasks []Task) Result {
	u := 0.0
	implicit := true
	for _, t := range tasks {
		u += t.WCETUs / t.Deadline()
		if t.Deadline() != t.PeriodUs {
			implicit = false
		}
	}

	res := Result{
		Method:          "EDF",
		Utilization:     u,
		ResponseTimesUs: map[string]float64{},
	}

	if u > 1 {
		res.Verdict = Unschedulable
		return res
	}
	if implicit {
		res.Verdict = Schedulable
		return res
	}
	res.Verdict = Inconclusive
	return res
}
