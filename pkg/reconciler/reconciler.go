// Package reconciler orchestrates a full run: acquire the run lock,
// load the ledger, plan, execute, and persist what actually happened.
// Persistence is unconditional once execution starts, so the next
// run diffs against the true system state even after failures.
package reconciler

import (
	"context"

	"github.com/dotty-sh/dotty/pkg/config"
	"github.com/dotty-sh/dotty/pkg/executor"
	"github.com/dotty-sh/dotty/pkg/lock"
	"github.com/dotty-sh/dotty/pkg/logging"
	"github.com/dotty-sh/dotty/pkg/paths"
	"github.com/dotty-sh/dotty/pkg/planner"
	"github.com/dotty-sh/dotty/pkg/registry"
	"github.com/dotty-sh/dotty/pkg/runner"
	"github.com/dotty-sh/dotty/pkg/state"
	"github.com/dotty-sh/dotty/pkg/template"
)

// Mode selects what a run reconciles
type Mode string

const (
	// ModeApply reconciles packages, dotfiles and once-hooks
	ModeApply Mode = "apply"
	// ModeUpdate runs manager update commands and update hooks
	ModeUpdate Mode = "update"
)

// Status is the aggregate outcome of a run
type Status string

const (
	StatusFullySucceeded     Status = "fully-succeeded"
	StatusPartiallySucceeded Status = "partially-succeeded"
	StatusPlanEmpty          Status = "plan-empty"
	// StatusCancelled means the run was interrupted: completed chains
	// are persisted, the rest were skipped
	StatusCancelled Status = "cancelled"
)

// RunResult is what a reconciliation run produced
type RunResult struct {
	Status Status
	Plan   *planner.Plan
	Report *executor.Report
}

// Failed reports whether any chain failed
func (r *RunResult) Failed() bool {
	return r.Status == StatusPartiallySucceeded
}

// Options configures a run
type Options struct {
	Config *config.Config
	Paths  paths.Paths
	DryRun bool

	// Runner overrides the shell runner, used by tests
	Runner runner.Runner

	// Renderer overrides the template engine, used by tests
	Renderer template.Renderer
}

func (o *Options) runner() runner.Runner {
	if o.Runner != nil {
		return o.Runner
	}
	return runner.NewShell(o.Config.Dotty.EffectiveTimeout())
}

func (o *Options) renderer() template.Renderer {
	if o.Renderer != nil {
		return o.Renderer
	}
	return template.NewEngine()
}

// Run performs one reconciliation. The lock is held for the whole
// run and released on every exit path.
func Run(ctx context.Context, opts Options, mode Mode) (*RunResult, error) {
	logger := logging.GetLogger("reconciler")

	runLock, err := lock.Acquire(opts.Paths.LockFile())
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = runLock.Release()
	}()

	store := state.NewStore(opts.Paths.StateFile())
	applied, err := store.Load()
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("mode", string(mode)).Msg("Planning")
	plan, err := computePlan(opts, applied, mode)
	if err != nil {
		return nil, err
	}

	if plan.Empty() {
		logger.Info().Msg("Nothing to do")
		return &RunResult{Status: StatusPlanEmpty, Plan: plan}, nil
	}

	recorder := state.NewRecorder(applied.Clone())
	exec := executor.New(executor.Options{
		Runner:   opts.runner(),
		Recorder: recorder,
		DryRun:   opts.DryRun,
		Logger:   logger.With().Str("component", "executor").Logger(),
	})

	logger.Debug().Int("chains", len(plan.Chains)).Msg("Executing")
	report := exec.Execute(ctx, plan)

	// Persisting runs even after partial failure: only confirmed
	// actions were recorded, and losing them would replay work the
	// system already absorbed. Dry runs changed nothing to persist.
	if !opts.DryRun {
		logger.Debug().Msg("Persisting")
		if err := store.Save(recorder.State()); err != nil {
			return nil, err
		}
	}

	result := &RunResult{Plan: plan, Report: report}
	switch {
	case !report.Clean():
		result.Status = StatusPartiallySucceeded
	case report.Cancelled():
		result.Status = StatusCancelled
	default:
		result.Status = StatusFullySucceeded
	}

	logger.Info().
		Str("status", string(result.Status)).
		Int("actions", len(report.Results)).
		Int("failures", len(report.Failures())+len(report.RuleFailures)).
		Msg("Run finished")

	return result, nil
}

// Plan computes a plan without executing anything, for previewing.
// It takes no lock: planning only reads.
func Plan(opts Options, mode Mode) (*planner.Plan, error) {
	store := state.NewStore(opts.Paths.StateFile())
	applied, err := store.Load()
	if err != nil {
		return nil, err
	}
	return computePlan(opts, applied, mode)
}

func computePlan(opts Options, applied *state.AppliedState, mode Mode) (*planner.Plan, error) {
	reg := registry.New(opts.Config.Managers)
	pl := planner.New(opts.Config, reg, opts.renderer(), opts.Paths.StagingDir())

	if mode == ModeUpdate {
		return pl.PlanUpdate()
	}
	return pl.Plan(applied)
}
