// Package executor runs plans. Chains of independent managers execute
// concurrently on a bounded pool; dotfile and hook chains share a
// serial lane that runs after the managers. Within a chain execution
// is strictly ordered and fail-fast: a failed action halts its own
// chain's remainder and nothing else.
package executor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dotty-sh/dotty/pkg/actions"
	"github.com/dotty-sh/dotty/pkg/logging"
	"github.com/dotty-sh/dotty/pkg/planner"
	"github.com/dotty-sh/dotty/pkg/runner"
	"github.com/dotty-sh/dotty/pkg/state"
)

// ActionResult is the outcome of one action
type ActionResult struct {
	Chain    string
	Action   actions.Action
	Success  bool
	Skipped  bool
	// Cancelled marks a skip caused by run cancellation rather than an
	// earlier failure in the chain
	Cancelled bool
	Message   string
	Err       error
	Duration  time.Duration
}

// Report collects per-action outcomes in plan order plus the plan's
// own notes and per-rule failures
type Report struct {
	Results      []ActionResult
	Notes        []string
	RuleFailures []planner.RuleFailure
}

// Failures returns the failed action results
func (r *Report) Failures() []ActionResult {
	var out []ActionResult
	for _, res := range r.Results {
		if !res.Success && !res.Skipped {
			out = append(out, res)
		}
	}
	return out
}

// Clean reports whether nothing failed
func (r *Report) Clean() bool {
	return len(r.Failures()) == 0 && len(r.RuleFailures) == 0
}

// Cancelled reports whether any action was skipped because the run
// was cancelled
func (r *Report) Cancelled() bool {
	for _, res := range r.Results {
		if res.Cancelled {
			return true
		}
	}
	return false
}

// Options configures the executor
type Options struct {
	Runner   runner.Runner
	Recorder *state.Recorder
	DryRun   bool
	Logger   zerolog.Logger
}

// Executor executes plans against the environment
type Executor struct {
	env    *actions.Env
	dryRun bool
	logger zerolog.Logger
}

// New creates an executor
func New(opts Options) *Executor {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("executor")
	}
	return &Executor{
		env:    &actions.Env{Runner: opts.Runner, Recorder: opts.Recorder},
		dryRun: opts.DryRun,
		logger: logger,
	}
}

// Execute runs the plan. Cancelling ctx halts dispatch of further
// actions but lets the action already in flight finish, so external
// commands are never killed halfway.
func (e *Executor) Execute(ctx context.Context, plan *planner.Plan) *Report {
	report := &Report{
		Notes:        plan.Notes,
		RuleFailures: plan.Failures,
	}

	concurrent := plan.Concurrent()
	chainResults := make([][]ActionResult, len(concurrent))

	// One worker per distinct manager; chains share no state except
	// the recorder, which serializes itself.
	var group errgroup.Group
	group.SetLimit(len(concurrent) + 1)
	for i, chain := range concurrent {
		i, chain := i, chain
		group.Go(func() error {
			chainResults[i] = e.runChain(ctx, chain)
			return nil
		})
	}
	_ = group.Wait()

	for _, results := range chainResults {
		report.Results = append(report.Results, results...)
	}

	for _, chain := range plan.Serial() {
		report.Results = append(report.Results, e.runChain(ctx, chain)...)
	}

	return report
}

// runChain executes one chain in order, halting at the first failure
func (e *Executor) runChain(ctx context.Context, chain planner.Chain) []ActionResult {
	results := make([]ActionResult, 0, len(chain.Actions))
	halted := false

	for _, action := range chain.Actions {
		if halted {
			results = append(results, ActionResult{
				Chain:   chain.Name,
				Action:  action,
				Skipped: true,
				Message: "chain halted by earlier failure",
			})
			continue
		}
		if ctx.Err() != nil {
			results = append(results, ActionResult{
				Chain:     chain.Name,
				Action:    action,
				Skipped:   true,
				Cancelled: true,
				Message:   "run cancelled",
			})
			continue
		}

		results = append(results, e.runAction(ctx, chain, action))
		if last := results[len(results)-1]; !last.Success && !last.Skipped {
			halted = true
		}
	}

	return results
}

func (e *Executor) runAction(ctx context.Context, chain planner.Chain, action actions.Action) ActionResult {
	start := time.Now()

	e.logger.Debug().
		Str("chain", chain.Name).
		Str("action", action.Description()).
		Bool("dry_run", e.dryRun).
		Msg("Executing action")

	if e.dryRun {
		return ActionResult{
			Chain:    chain.Name,
			Action:   action,
			Success:  true,
			Skipped:  true,
			Message:  "dry run - no changes made",
			Duration: time.Since(start),
		}
	}

	// Actions run detached from the cancellation signal: cancellation
	// stops dispatch between actions, never an external command
	// already running. Timeouts are the runner's own concern.
	err := action.Execute(context.WithoutCancel(ctx), e.env)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("chain", chain.Name).
			Str("action", action.Description()).
			Msg("Action execution failed")

		return ActionResult{
			Chain:    chain.Name,
			Action:   action,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	e.logger.Info().
		Str("chain", chain.Name).
		Str("action", action.Description()).
		Dur("duration", time.Since(start)).
		Msg("Action completed")

	return ActionResult{
		Chain:    chain.Name,
		Action:   action,
		Success:  true,
		Duration: time.Since(start),
	}
}
