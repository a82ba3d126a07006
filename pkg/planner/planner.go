package planner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dotty-sh/dotty/pkg/actions"
	"github.com/dotty-sh/dotty/pkg/config"
	"github.com/dotty-sh/dotty/pkg/hashutil"
	"github.com/dotty-sh/dotty/pkg/logging"
	"github.com/dotty-sh/dotty/pkg/paths"
	"github.com/dotty-sh/dotty/pkg/registry"
	"github.com/dotty-sh/dotty/pkg/state"
	"github.com/dotty-sh/dotty/pkg/template"
)

// Planner computes plans from configuration and the applied ledger
type Planner struct {
	cfg      *config.Config
	reg      *registry.Registry
	renderer template.Renderer
	staging  string
	logger   zerolog.Logger
}

// New returns a planner. stagingDir receives rendered template
// content, keyed by checksum.
func New(cfg *config.Config, reg *registry.Registry, renderer template.Renderer, stagingDir string) *Planner {
	return &Planner{
		cfg:      cfg,
		reg:      reg,
		renderer: renderer,
		staging:  stagingDir,
		logger:   logging.GetLogger("planner"),
	}
}

// Plan computes the apply plan: package diffs per manager, pending
// once-hooks, and dotfile rules whose content or destination changed.
func (p *Planner) Plan(applied *state.AppliedState) (*Plan, error) {
	plan := &Plan{}

	managersWithWork := 0
	for _, name := range sortedKeys(p.cfg.Packages) {
		chain, err := p.managerChain(name, applied)
		if err != nil {
			return nil, err
		}
		if chain != nil {
			plan.Chains = append(plan.Chains, *chain)
			managersWithWork++
		}
	}

	// Post-update hooks follow the manager chains that made them
	// necessary; with no package work they stay out of the plan.
	if managersWithWork > 0 {
		plan.Chains = append(plan.Chains, p.updateHookChains()...)
	}

	for _, name := range sortedKeys(p.cfg.Hooks.Once) {
		hook := p.cfg.Hooks.Once[name]
		current := hashutil.ChecksumString(hook.Command)
		if prev, ok := applied.HookChecksum(name); ok && prev == current {
			continue
		}
		plan.Chains = append(plan.Chains, Chain{
			Name:     "hook:" + name,
			Kind:     ChainHook,
			Priority: hook.EffectivePriority(),
			Actions:  []actions.Action{&actions.RunHook{Name: name, Command: hook.Command, Once: true}},
		})
	}

	for _, dest := range sortedKeys(p.cfg.Files) {
		p.fileChain(plan, dest, applied)
	}

	sortChains(plan.Chains)
	return plan, nil
}

// PlanUpdate computes the update plan: every manager's update command
// plus all configured update hooks. The ledger is not consulted;
// update runs are unconditional.
func (p *Planner) PlanUpdate() (*Plan, error) {
	plan := &Plan{}

	for _, name := range p.reg.Names() {
		spec, err := p.reg.Resolve(name)
		if err != nil {
			return nil, err
		}
		if spec.Update == "" {
			continue
		}
		cmds, err := registry.Render(spec, registry.OpUpdate, p.cfg.Packages[name])
		if err != nil {
			return nil, err
		}
		var acts []actions.Action
		for _, cmd := range cmds {
			acts = append(acts, &actions.UpdateManager{Manager: name, Command: cmd, Sudo: spec.Sudo})
		}
		plan.Chains = append(plan.Chains, Chain{
			Name:     "manager:" + name,
			Kind:     ChainManager,
			Priority: spec.EffectivePriority(),
			Actions:  acts,
		})
	}

	plan.Chains = append(plan.Chains, p.updateHookChains()...)

	sortChains(plan.Chains)
	return plan, nil
}

// managerChain diffs one manager's desired packages against the
// ledger. Removals precede installs so a renamed package never
// conflicts with its old name mid-chain.
func (p *Planner) managerChain(name string, applied *state.AppliedState) (*Chain, error) {
	spec, err := p.reg.Resolve(name)
	if err != nil {
		return nil, err
	}

	desired := p.cfg.Packages[name]
	current := applied.PackagesFor(name)

	toInstall := difference(desired, current)
	toRemove := difference(current, desired)
	if len(toInstall) == 0 && len(toRemove) == 0 {
		return nil, nil
	}

	chain := &Chain{
		Name:     "manager:" + name,
		Kind:     ChainManager,
		Priority: spec.EffectivePriority(),
	}

	removeActs, err := packageActions(spec, registry.OpRemove, name, toRemove)
	if err != nil {
		return nil, err
	}
	chain.Actions = append(chain.Actions, removeActs...)

	installActs, err := packageActions(spec, registry.OpAdd, name, toInstall)
	if err != nil {
		return nil, err
	}
	chain.Actions = append(chain.Actions, installActs...)

	if spec.Update != "" {
		cmds, err := registry.Render(spec, registry.OpUpdate, desired)
		if err != nil {
			return nil, err
		}
		for _, cmd := range cmds {
			chain.Actions = append(chain.Actions, &actions.UpdateManager{
				Manager: name, Command: cmd, Sudo: spec.Sudo,
			})
		}
	}

	p.logger.Debug().
		Str("manager", name).
		Strs("install", toInstall).
		Strs("remove", toRemove).
		Msg("Manager diff computed")

	return chain, nil
}

// packageActions renders commands for a package operation. One action
// per rendered command, carrying the packages that command covers.
// A manager without a remove template still gets its packages dropped
// from the ledger through a command-less action, so abandoned entries
// do not linger forever.
func packageActions(spec config.Manager, op registry.Operation, manager string, pkgs []string) ([]actions.Action, error) {
	if len(pkgs) == 0 {
		return nil, nil
	}

	if op == registry.OpRemove && spec.Remove == "" {
		return []actions.Action{&actions.RemovePackages{Manager: manager, Packages: pkgs}}, nil
	}

	cmds, err := registry.Render(spec, op, pkgs)
	if err != nil {
		return nil, err
	}
	if len(cmds) == 0 {
		return nil, nil
	}

	var acts []actions.Action
	if len(cmds) == 1 {
		acts = append(acts, newPackageAction(op, manager, pkgs, cmds[0], spec.Sudo))
		return acts, nil
	}
	// Per-package batching: commands align with package order
	for i, cmd := range cmds {
		acts = append(acts, newPackageAction(op, manager, pkgs[i:i+1], cmd, spec.Sudo))
	}
	return acts, nil
}

func newPackageAction(op registry.Operation, manager string, pkgs []string, cmd string, sudo bool) actions.Action {
	if op == registry.OpRemove {
		return &actions.RemovePackages{Manager: manager, Packages: pkgs, Command: cmd, Sudo: sudo}
	}
	return &actions.InstallPackages{Manager: manager, Packages: pkgs, Command: cmd, Sudo: sudo}
}

// fileChain plans one dotfile rule. Per-rule problems (template
// errors, unreadable sources) fail only this rule; they are recorded
// on the plan and the remaining rules proceed.
func (p *Planner) fileChain(plan *Plan, destKey string, applied *state.AppliedState) {
	rule := p.cfg.Files[destKey]
	dest := paths.ExpandHome(destKey)

	var content []byte
	var contentSum string
	if rule.Templated() {
		rendered, err := p.renderer.Render(rule.Source, p.cfg.Template)
		if err != nil {
			plan.Failures = append(plan.Failures, RuleFailure{Rule: destKey, Err: err})
			return
		}
		content = rendered
		contentSum = hashutil.ChecksumBytes(rendered)
	} else {
		sum, err := hashutil.ChecksumFile(rule.Source)
		if err != nil {
			plan.Failures = append(plan.Failures, RuleFailure{Rule: destKey, Err: err})
			return
		}
		contentSum = sum
	}

	destSum, destErr := hashutil.ChecksumFile(dest)
	destExists := destErr == nil

	record, hasRecord := applied.FileRecordFor(dest)

	if hasRecord && destExists && record.Content == contentSum && record.Destination == destSum {
		return
	}

	// A destination that drifted from what we last wrote was modified
	// outside this tool.
	if hasRecord && destExists && record.Destination != destSum {
		if p.cfg.Dotty.EffectiveConflictPolicy() == config.ConflictSkip {
			note := fmt.Sprintf("skipping %s: destination modified outside dotty", dest)
			p.logger.Warn().Str("destination", dest).Msg("Destination modified outside dotty, skipping")
			plan.Notes = append(plan.Notes, note)
			return
		}
		p.logger.Warn().Str("destination", dest).Msg("Destination modified outside dotty, overwriting")
	}

	chain := Chain{
		Name:     "file:" + dest,
		Kind:     ChainFile,
		Priority: rule.EffectivePriority(),
	}

	if rule.Templated() {
		staged := filepath.Join(p.staging, strings.TrimPrefix(contentSum, "sha256:"))
		chain.Actions = append(chain.Actions,
			&actions.RenderTemplate{Source: rule.Source, StagedPath: staged, Content: content},
			&actions.LinkFile{Destination: dest, SourcePath: staged, Checksum: contentSum},
		)
	} else {
		chain.Actions = append(chain.Actions, &actions.LinkFile{
			Destination: dest,
			SourcePath:  rule.Source,
			Checksum:    contentSum,
			Sudo:        rule.Sudo,
		})
	}

	if rule.PostHook != "" {
		chain.Actions = append(chain.Actions, &actions.RunHook{
			Name:    "post:" + dest,
			Command: rule.PostHook,
		})
	}

	plan.Chains = append(plan.Chains, chain)
}

// updateHookChains builds serial chains for the configured post-update
// hooks; the executor runs them after all manager chains resolve.
func (p *Planner) updateHookChains() []Chain {
	var chains []Chain
	for _, name := range sortedKeys(p.cfg.Hooks.Update) {
		hook := p.cfg.Hooks.Update[name]
		chains = append(chains, Chain{
			Name:     "hook:" + name,
			Kind:     ChainHook,
			Priority: hook.EffectivePriority(),
			Actions:  []actions.Action{&actions.RunHook{Name: name, Command: hook.Command}},
		})
	}
	return chains
}

// difference returns the members of a not present in b, preserving
// a's order
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, x := range b {
		inB[x] = true
	}
	var out []string
	for _, x := range a {
		if !inB[x] {
			out = append(out, x)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
