// Package planner computes what has to change: it diffs the desired
// configuration against the applied-state ledger and the files on
// disk, producing an ordered plan of actions. Planning never mutates
// the system beyond read-only checksums.
package planner

import (
	"sort"

	"github.com/dotty-sh/dotty/pkg/actions"
)

// ChainKind classifies a chain for scheduling
type ChainKind string

const (
	// ChainManager chains are independent of each other and may run
	// concurrently
	ChainManager ChainKind = "manager"
	// ChainFile chains run sequentially on the serial lane
	ChainFile ChainKind = "file"
	// ChainHook chains run on the serial lane after manager chains
	ChainHook ChainKind = "hook"
)

// Chain is an ordered group of actions that must execute in sequence
// relative to itself. A failure halts the chain's remaining actions
// but not other chains.
type Chain struct {
	Name     string
	Kind     ChainKind
	Priority int
	Actions  []actions.Action
}

// RuleFailure is a dotfile rule that could not be planned, surfaced
// in the run result without stopping the other chains.
type RuleFailure struct {
	Rule string
	Err  error
}

// Plan is the ordered outcome of planning
type Plan struct {
	Chains []Chain

	// Notes are user-facing notices, e.g. rules skipped by the
	// conflict policy
	Notes []string

	// Failures are per-rule planning errors (template problems,
	// missing sources) that halt only the owning rule
	Failures []RuleFailure
}

// Empty reports whether there is nothing to execute and nothing failed
func (p *Plan) Empty() bool {
	return len(p.Chains) == 0 && len(p.Failures) == 0
}

// Concurrent returns the chains that may execute in parallel
func (p *Plan) Concurrent() []Chain {
	var out []Chain
	for _, c := range p.Chains {
		if c.Kind == ChainManager {
			out = append(out, c)
		}
	}
	return out
}

// Serial returns the chains bound to the serial lane, in order
func (p *Plan) Serial() []Chain {
	var out []Chain
	for _, c := range p.Chains {
		if c.Kind != ChainManager {
			out = append(out, c)
		}
	}
	return out
}

// sortChains orders chains by priority, then name for determinism
func sortChains(chains []Chain) {
	sort.SliceStable(chains, func(i, j int) bool {
		if chains[i].Priority != chains[j].Priority {
			return chains[i].Priority < chains[j].Priority
		}
		return chains[i].Name < chains[j].Name
	})
}
