package analysis

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lale/lale/ir"
	"github.com/lale/lale/report"
)

// Run orchestrates the analysis pipeline over every function in
// cfg.Modules with a bounded worker pool, then folds the resulting WCETs
// through the scheduler and assembles a report.Report. ctx is polled by
// each worker between functions only; a function already being analyzed,
// including its solver calls, runs to completion (bounded by the solver
// timeout) before cancellation is observed.
func Run(ctx context.Context, cfg Config) (*report.Report, error) {
	functions := flatten(cfg.Modules)
	log := cfg.logger()
	log.Info().Int("functions", len(functions)).Msg("analysis starting")

	results := make([]report.FunctionResult, len(functions))
	analyzed := make([]bool, len(functions))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	indices := make(chan int)
	g.Go(func() error {
		defer close(indices)
		for i := range functions {
			select {
			case indices <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	timeout := cfg.solverTimeout()
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for idx := range indices {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				results[idx] = analyzeFunction(functions[idx], cfg.Platform, cfg.Overrides, timeout)
				analyzed[idx] = true
				log.Debug().Str("function", functions[idx].Name).Str("verdict", results[idx].Verdict).Msg("function analyzed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	cancelled := ctx.Err() != nil
	finished := make([]report.FunctionResult, 0, len(results))
	byFunction := make(map[string]report.FunctionResult, len(results))
	for i, ok := range analyzed {
		if !ok {
			continue
		}
		finished = append(finished, results[i])
		byFunction[functions[i].Name] = results[i]
	}

	tasks, sched, hyperSchedule, err := buildSchedulability(cfg, byFunction, log)
	if err != nil {
		return nil, err
	}

	info := report.AnalysisInfo{
		Tool:      "lale",
		Version:   "0.1.0",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Platform:  cfg.Platform.Name,
	}

	r := report.Build(info, finished, tasks, sched, hyperSchedule, cancelled)
	log.Info().Bool("cancelled", cancelled).Str("schedulability", sched.Result).Msg("analysis finished")
	return &r, nil
}

func flatten(modules []*ir.Module) []*ir.Function {
	var out []*ir.Function
	for _, m := range modules {
		out = append(out, m.Functions...)
	}
	return out
}
