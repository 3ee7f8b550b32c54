// Package analysis orchestrates the per-function WCET pipeline
// (CFG → loop → timing → IPET) across every function in a set of loaded
// modules, then folds the task model through the scheduler and hands the
// whole thing to report.Build.
package analysis

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lale/lale/ir"
	"github.com/lale/lale/loop"
	"github.com/lale/lale/platform"
	"github.com/lale/lale/schedule"
)

// Config is Run's full input: already-loaded modules, an already-resolved
// platform, an already-validated task set. Loading and validation are the
// config/platform packages' concerns; Run only orchestrates analysis.
type Config struct {
	Modules       []*ir.Module
	Platform      platform.Platform
	Tasks         []schedule.Task
	Policy        schedule.Policy
	Overrides     loop.Overrides
	Workers       int             // 0 means runtime.GOMAXPROCS(0)
	SolverTimeout time.Duration   // 0 means defaultSolverTimeout
	Logger        *zerolog.Logger // nil means zerolog.Nop()
}

const defaultSolverTimeout = 60 * time.Second

func (c Config) solverTimeout() time.Duration {
	if c.SolverTimeout > 0 {
		return c.SolverTimeout
	}
	return defaultSolverTimeout
}

func (c Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}

// UnresolvedTaskFunction is fatal: a task in the config names a function
// this Run never analyzed (the set of loaded modules doesn't contain it).
type UnresolvedTaskFunction struct {
	Task     string
	Function string
}

func (e *UnresolvedTaskFunction) Error() string {
	return fmt.Sprintf("task %q references unanalyzed function %q", e.Task, e.Function)
}
