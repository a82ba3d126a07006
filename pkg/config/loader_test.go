// pkg/config/loader_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (t.TempDir)
// PURPOSE: Test config loading, shorthand decoding, module imports

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dotty-sh/dotty/pkg/config"
	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Basic(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[dotty]
timeout = "5m"

[managers.pacman]
add = "pacman -S #:?"
remove = "pacman -Rns #:?"
update = "pacman -Syu"
sudo = true

[packages]
pacman = ["neovim", "git", "neovim"]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Dotty.EffectiveTimeout())
	assert.Equal(t, config.ConflictOverwrite, cfg.Dotty.EffectiveConflictPolicy())

	mgr, ok := cfg.Managers["pacman"]
	require.True(t, ok)
	assert.True(t, mgr.Sudo)
	assert.Equal(t, " ", mgr.Sep())
	assert.Equal(t, config.DefaultPriority, mgr.EffectivePriority())

	// Duplicates collapse, order preserved
	assert.Equal(t, []string{"neovim", "git"}, cfg.Packages["pacman"])
}

func TestLoad_FileShorthand(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[files]
"~/.vimrc" = "vimrc"

[files."~/.gitconfig"]
source = "gitconfig.tmpl"
priority = 10
post_hook = "echo done"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	vimrc := cfg.Files["~/.vimrc"]
	assert.Equal(t, filepath.Join(dir, "vimrc"), vimrc.Source)
	assert.False(t, vimrc.Templated())

	git := cfg.Files["~/.gitconfig"]
	assert.Equal(t, filepath.Join(dir, "gitconfig.tmpl"), git.Source)
	assert.True(t, git.Templated())
	assert.Equal(t, 10, git.EffectivePriority())
	assert.Equal(t, "echo done", git.PostHook)
}

func TestLoad_HookShorthand(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[hooks.once]
bootstrap = "./bootstrap.sh"

[hooks.update.cleanup]
command = "paccache -r"
priority = 90
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./bootstrap.sh", cfg.Hooks.Once["bootstrap"].Command)
	assert.Equal(t, config.DefaultPriority, cfg.Hooks.Once["bootstrap"].EffectivePriority())
	assert.Equal(t, 90, cfg.Hooks.Update["cleanup"].EffectivePriority())
}

func TestLoad_ZeroPriorityIsNotUnset(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[managers.pacman]
add = "pacman -S #:?"
priority = 0
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	mgr := cfg.Managers["pacman"]
	require.NotNil(t, mgr.Priority)
	assert.Equal(t, 0, mgr.EffectivePriority())
}

func TestLoad_ExplicitEmptySeparator(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[managers.flatpak]
add = "flatpak install -y #:?"
separator = ""
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	// Explicit "" means one invocation per package, unlike the default
	assert.Equal(t, "", cfg.Managers["flatpak"].Sep())
}

func TestLoad_ModuleImports(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "modules/work.toml", `
[managers.brew]
add = "brew install #:?"

[packages]
brew = ["jq"]
pacman = ["tmux"]
`)
	path := writeConfig(t, dir, "dotty.toml", `
[module]
import = ["modules/work.toml"]

[managers.pacman]
add = "pacman -S #:?"

[packages]
pacman = ["git"]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Contains(t, cfg.Managers, "pacman")
	assert.Contains(t, cfg.Managers, "brew")
	assert.ElementsMatch(t, []string{"git", "tmux"}, cfg.Packages["pacman"])
	assert.Equal(t, []string{"jq"}, cfg.Packages["brew"])
	// Module section is consumed during loading
	assert.Empty(t, cfg.Module.Import)
}

func TestLoad_DisabledModule(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "modules/off.toml", `
[module]
disable = true

[packages]
pacman = ["should-not-appear"]

[managers.pacman]
add = "pacman -S #:?"
`)
	path := writeConfig(t, dir, "dotty.toml", `
[module]
import = ["modules/off.toml"]

[managers.pacman]
add = "pacman -S #:?"

[packages]
pacman = ["git"]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"git"}, cfg.Packages["pacman"])
}

func TestLoad_ImportCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.toml", `
[module]
import = ["b.toml"]
`)
	writeConfig(t, dir, "b.toml", `
[module]
import = ["a.toml"]
`)

	_, err := config.Load(filepath.Join(dir, "a.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestLoad_Missing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestValidate_UnknownManager(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[packages]
pacman = ["git"]
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownManager))
}

func TestValidate_MissingPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[managers.pacman]
add = "pacman -S"
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidTemplate))
}

func TestValidate_SudoTemplate(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[files."/etc/motd"]
source = "motd.tmpl"
sudo = true
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestValidate_ConflictPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dotty.toml", `
[dotty]
on_conflict = "ask"
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestStarterTOML_LoadsClean(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(config.StarterTOML))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	assert.Contains(t, cfg.Managers, "pacman")
	assert.ElementsMatch(t, []string{"neovim", "git"}, cfg.Packages["pacman"])
}
