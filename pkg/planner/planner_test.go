// pkg/planner/planner_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (t.TempDir), fake renderer
// PURPOSE: Test diff computation, ordering invariants, idempotence

package planner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dotty-sh/dotty/pkg/actions"
	"github.com/dotty-sh/dotty/pkg/config"
	"github.com/dotty-sh/dotty/pkg/hashutil"
	"github.com/dotty-sh/dotty/pkg/planner"
	"github.com/dotty-sh/dotty/pkg/registry"
	"github.com/dotty-sh/dotty/pkg/state"
	"github.com/dotty-sh/dotty/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlanner(t *testing.T, cfg *config.Config) *planner.Planner {
	t.Helper()
	return planner.New(cfg, registry.New(cfg.Managers), template.NewEngine(), filepath.Join(t.TempDir(), "staging"))
}

func pacmanConfig() *config.Config {
	cfg := config.New()
	cfg.Managers["pacman"] = config.Manager{
		Add:    "pacman -S #:?",
		Remove: "pacman -Rns #:?",
		Sudo:   true,
	}
	cfg.Packages["pacman"] = []string{"neovim", "git"}
	return cfg
}

func TestPlan_FreshInstall(t *testing.T) {
	p := newPlanner(t, pacmanConfig())

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)

	chain := plan.Chains[0]
	assert.Equal(t, "manager:pacman", chain.Name)
	assert.Equal(t, planner.ChainManager, chain.Kind)
	require.Len(t, chain.Actions, 1)

	install, ok := chain.Actions[0].(*actions.InstallPackages)
	require.True(t, ok)
	assert.Equal(t, []string{"neovim", "git"}, install.Packages)
	assert.Equal(t, "pacman -S neovim git", install.Command)
	assert.True(t, install.Sudo)
}

func TestPlan_Idempotent(t *testing.T) {
	p := newPlanner(t, pacmanConfig())

	applied := state.New()
	applied.AddPackages("pacman", "neovim", "git")

	plan, err := p.Plan(applied)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestPlan_RemoveBeforeInstall(t *testing.T) {
	cfg := pacmanConfig()
	p := newPlanner(t, cfg)

	applied := state.New()
	applied.AddPackages("pacman", "git", "vim")

	plan, err := p.Plan(applied)
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)

	chainActs := plan.Chains[0].Actions
	require.Len(t, chainActs, 2)

	remove, ok := chainActs[0].(*actions.RemovePackages)
	require.True(t, ok, "remove must precede install")
	assert.Equal(t, []string{"vim"}, remove.Packages)

	install, ok := chainActs[1].(*actions.InstallPackages)
	require.True(t, ok)
	assert.Equal(t, []string{"neovim"}, install.Packages)
}

func TestPlan_SetDifferenceProperties(t *testing.T) {
	cfg := pacmanConfig()
	p := newPlanner(t, cfg)

	applied := state.New()
	applied.AddPackages("pacman", "git", "htop", "tmux")

	plan, err := p.Plan(applied)
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)

	for _, act := range plan.Chains[0].Actions {
		switch a := act.(type) {
		case *actions.InstallPackages:
			for _, pkg := range a.Packages {
				assert.NotContains(t, applied.PackagesFor("pacman"), pkg,
					"to_install must not intersect applied")
			}
		case *actions.RemovePackages:
			for _, pkg := range a.Packages {
				assert.Contains(t, applied.PackagesFor("pacman"), pkg,
					"to_remove must be a subset of applied")
				assert.NotContains(t, cfg.Packages["pacman"], pkg,
					"to_remove must not intersect desired")
			}
		}
	}
}

func TestPlan_PerPackageBatching(t *testing.T) {
	cfg := config.New()
	empty := ""
	cfg.Managers["flatpak"] = config.Manager{Add: "flatpak install -y #:?", Separator: &empty}
	cfg.Packages["flatpak"] = []string{"org.gimp.GIMP", "org.inkscape.Inkscape"}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)
	require.Len(t, plan.Chains[0].Actions, 2)

	first := plan.Chains[0].Actions[0].(*actions.InstallPackages)
	assert.Equal(t, []string{"org.gimp.GIMP"}, first.Packages)
	assert.Equal(t, "flatpak install -y org.gimp.GIMP", first.Command)
}

func TestPlan_UpdateAfterInstall(t *testing.T) {
	cfg := pacmanConfig()
	mgr := cfg.Managers["pacman"]
	mgr.Update = "pacman -Syu"
	cfg.Managers["pacman"] = mgr
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)

	chainActs := plan.Chains[0].Actions
	last := chainActs[len(chainActs)-1]
	_, ok := last.(*actions.UpdateManager)
	assert.True(t, ok, "update must follow install/remove actions")
}

func TestPlan_UpdateHooksFollowManagerWork(t *testing.T) {
	cfg := pacmanConfig()
	cfg.Hooks.Update["cleanup"] = config.Hook{Command: "paccache -r"}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 2)

	// Hook chains live on the serial lane, which runs after managers
	serial := plan.Serial()
	require.Len(t, serial, 1)
	assert.Equal(t, "hook:cleanup", serial[0].Name)

	// With no package work, no update hooks either
	applied := state.New()
	applied.AddPackages("pacman", "neovim", "git")
	plan, err = p.Plan(applied)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestPlan_OnceHooks(t *testing.T) {
	cfg := config.New()
	cfg.Hooks.Once["bootstrap"] = config.Hook{Command: "./bootstrap.sh"}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)
	assert.Equal(t, "hook:bootstrap", plan.Chains[0].Name)

	// Recorded hook with unchanged command does not re-run
	applied := state.New()
	applied.SetHookChecksum("bootstrap", hashutil.ChecksumString("./bootstrap.sh"))
	plan, err = p.Plan(applied)
	require.NoError(t, err)
	assert.True(t, plan.Empty())

	// Changed command re-runs
	applied.SetHookChecksum("bootstrap", hashutil.ChecksumString("./old.sh"))
	plan, err = p.Plan(applied)
	require.NoError(t, err)
	assert.Len(t, plan.Chains, 1)
}

func TestPlan_PlainFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "vimrc")
	dest := filepath.Join(dir, "home", ".vimrc")
	require.NoError(t, os.WriteFile(src, []byte("set number\n"), 0644))

	cfg := config.New()
	cfg.Files[dest] = config.File{Source: src}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)
	assert.Equal(t, planner.ChainFile, plan.Chains[0].Kind)

	link := plan.Chains[0].Actions[0].(*actions.LinkFile)
	assert.Equal(t, src, link.SourcePath)
	assert.Equal(t, dest, link.Destination)
	assert.Equal(t, hashutil.ChecksumBytes([]byte("set number\n")), link.Checksum)
}

func TestPlan_FileIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "vimrc")
	dest := filepath.Join(dir, ".vimrc")
	content := []byte("set number\n")
	require.NoError(t, os.WriteFile(src, content, 0644))
	require.NoError(t, os.WriteFile(dest, content, 0644))

	sum := hashutil.ChecksumBytes(content)
	applied := state.New()
	applied.SetFileRecord(dest, state.FileRecord{Content: sum, Destination: sum})

	cfg := config.New()
	cfg.Files[dest] = config.File{Source: src}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(applied)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestPlan_FileConflictPolicies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "vimrc")
	dest := filepath.Join(dir, ".vimrc")
	require.NoError(t, os.WriteFile(src, []byte("managed\n"), 0644))
	require.NoError(t, os.WriteFile(dest, []byte("edited by hand\n"), 0644))

	sum := hashutil.ChecksumBytes([]byte("managed\n"))
	applied := state.New()
	applied.SetFileRecord(dest, state.FileRecord{Content: sum, Destination: sum})

	cfg := config.New()
	cfg.Files[dest] = config.File{Source: src}

	// Default policy overwrites
	plan, err := newPlanner(t, cfg).Plan(applied)
	require.NoError(t, err)
	assert.Len(t, plan.Chains, 1)

	// Skip policy leaves the file and notes it
	cfg.Dotty.OnConflict = config.ConflictSkip
	plan, err = newPlanner(t, cfg).Plan(applied)
	require.NoError(t, err)
	assert.Empty(t, plan.Chains)
	require.Len(t, plan.Notes, 1)
	assert.Contains(t, plan.Notes[0], "modified outside")
}

func TestPlan_TemplatedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "theme.tmpl")
	dest := filepath.Join(dir, ".theme")
	require.NoError(t, os.WriteFile(src, []byte("accent={{ .accent }}\n"), 0644))

	cfg := config.New()
	cfg.Files[dest] = config.File{Source: src}
	cfg.Template["accent"] = "blue"
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)
	require.Len(t, plan.Chains[0].Actions, 2)

	render := plan.Chains[0].Actions[0].(*actions.RenderTemplate)
	assert.Equal(t, "accent=blue\n", string(render.Content))

	link := plan.Chains[0].Actions[1].(*actions.LinkFile)
	assert.Equal(t, render.StagedPath, link.SourcePath)
	assert.Equal(t, hashutil.ChecksumBytes(render.Content), link.Checksum)
}

func TestPlan_TemplateFailureIsPerRule(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.tmpl")
	good := filepath.Join(dir, "good")
	require.NoError(t, os.WriteFile(broken, []byte("{{ .missing }}"), 0644))
	require.NoError(t, os.WriteFile(good, []byte("fine\n"), 0644))

	cfg := config.New()
	cfg.Files[filepath.Join(dir, ".broken")] = config.File{Source: broken}
	cfg.Files[filepath.Join(dir, ".good")] = config.File{Source: good}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)

	// The broken rule fails alone; the good rule still plans
	require.Len(t, plan.Failures, 1)
	assert.Contains(t, plan.Failures[0].Rule, ".broken")
	require.Len(t, plan.Chains, 1)
	assert.Contains(t, plan.Chains[0].Name, ".good")
}

func TestPlan_PostHookAppended(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "conf")
	require.NoError(t, os.WriteFile(src, []byte("x\n"), 0644))

	cfg := config.New()
	cfg.Files[filepath.Join(dir, ".conf")] = config.File{Source: src, PostHook: "systemctl --user reload foo"}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 1)

	last := plan.Chains[0].Actions[len(plan.Chains[0].Actions)-1]
	hook, ok := last.(*actions.RunHook)
	require.True(t, ok)
	assert.Equal(t, "systemctl --user reload foo", hook.Command)
	assert.False(t, hook.Once)
}

func priority(v int) *int {
	return &v
}

func TestPlan_ChainPriorityOrdering(t *testing.T) {
	cfg := config.New()
	cfg.Managers["early"] = config.Manager{Add: "early add #:?", Priority: priority(10)}
	cfg.Managers["late"] = config.Manager{Add: "late add #:?", Priority: priority(90)}
	cfg.Packages["early"] = []string{"a"}
	cfg.Packages["late"] = []string{"b"}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 2)
	assert.Equal(t, "manager:early", plan.Chains[0].Name)
	assert.Equal(t, "manager:late", plan.Chains[1].Name)
}

func TestPlan_ExplicitZeroPriority(t *testing.T) {
	cfg := config.New()
	cfg.Managers["first"] = config.Manager{Add: "first add #:?", Priority: priority(0)}
	cfg.Managers["plain"] = config.Manager{Add: "plain add #:?"}
	cfg.Packages["first"] = []string{"a"}
	cfg.Packages["plain"] = []string{"b"}
	p := newPlanner(t, cfg)

	plan, err := p.Plan(state.New())
	require.NoError(t, err)
	require.Len(t, plan.Chains, 2)

	// priority = 0 is a real value, not "unset": it sorts ahead of the
	// default
	assert.Equal(t, 0, plan.Chains[0].Priority)
	assert.Equal(t, "manager:first", plan.Chains[0].Name)
	assert.Equal(t, config.DefaultPriority, plan.Chains[1].Priority)
}

func TestPlanUpdate(t *testing.T) {
	cfg := pacmanConfig()
	mgr := cfg.Managers["pacman"]
	mgr.Update = "pacman -Syu"
	cfg.Managers["pacman"] = mgr
	cfg.Hooks.Update["cleanup"] = config.Hook{Command: "paccache -r"}
	p := newPlanner(t, cfg)

	plan, err := p.PlanUpdate()
	require.NoError(t, err)
	require.Len(t, plan.Chains, 2)

	update := plan.Concurrent()
	require.Len(t, update, 1)
	act := update[0].Actions[0].(*actions.UpdateManager)
	assert.Equal(t, "pacman -Syu", act.Command)
	assert.True(t, act.Sudo)

	serial := plan.Serial()
	require.Len(t, serial, 1)
	assert.Equal(t, "hook:cleanup", serial[0].Name)
}
