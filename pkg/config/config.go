// Package config defines dotty's configuration schema and loader.
//
// A configuration is a TOML document declaring package managers, the
// packages each should hold, dotfiles to place, hooks, and a template
// context. Other config files can be composed in through module imports.
package config

import (
	"time"
)

// Placeholder is the token in manager command templates that gets
// substituted with package names.
const Placeholder = "#:?"

// DefaultPriority is assumed when a manager, file or hook declares none.
// Lower priorities run first.
const DefaultPriority = 50

// ConflictPolicy controls what happens when a dotfile destination was
// modified outside of dotty since the last run.
type ConflictPolicy string

const (
	// ConflictOverwrite replaces the destination (last desired state wins)
	ConflictOverwrite ConflictPolicy = "overwrite"
	// ConflictSkip leaves the destination alone and reports the rule as skipped
	ConflictSkip ConflictPolicy = "skip"
)

// Config is the fully merged configuration for one run
type Config struct {
	Dotty    Settings               `koanf:"dotty" toml:"dotty"`
	Module   Module                 `koanf:"module" toml:"module"`
	Managers map[string]Manager     `koanf:"managers" toml:"managers"`
	Packages map[string][]string    `koanf:"packages" toml:"packages"`
	Files    map[string]File        `koanf:"files" toml:"files"`
	Hooks    Hooks                  `koanf:"hooks" toml:"hooks"`
	Template map[string]interface{} `koanf:"template" toml:"template"`
}

// Settings holds tool-level options
type Settings struct {
	// Timeout bounds each external command invocation
	Timeout time.Duration `koanf:"timeout" toml:"timeout"`
	// OnConflict is the policy for externally modified destinations
	OnConflict ConflictPolicy `koanf:"on_conflict" toml:"on_conflict"`
}

// Module declares config composition for the file it appears in
type Module struct {
	Import  []string `koanf:"import" toml:"import"`
	Disable bool     `koanf:"disable" toml:"disable"`
}

// Manager describes one package manager purely as data: three command
// templates and a privilege flag. The add/remove templates must contain
// the placeholder token; update typically takes no packages.
type Manager struct {
	Add      string `koanf:"add" toml:"add"`
	Remove   string `koanf:"remove" toml:"remove"`
	Update   string `koanf:"update" toml:"update"`
	Sudo     bool   `koanf:"sudo" toml:"sudo"`
	Priority *int   `koanf:"priority" toml:"priority"`

	// Separator joins package names in a single invocation. When set to
	// the empty string explicitly, one command is issued per package.
	Separator *string `koanf:"separator" toml:"separator"`
}

// Sep returns the effective package separator
func (m Manager) Sep() string {
	if m.Separator == nil {
		return " "
	}
	return *m.Separator
}

// EffectivePriority returns the chain priority, applying the default.
// An explicit priority of 0 is honored; only an absent one defaults.
func (m Manager) EffectivePriority() int {
	if m.Priority == nil {
		return DefaultPriority
	}
	return *m.Priority
}

// File is one dotfile rule. The map key in Config.Files is the
// destination path; Source is relative to the declaring config file
// unless absolute. A source ending in .tmpl is rendered as a template.
type File struct {
	Source   string `koanf:"source" toml:"source"`
	Priority *int   `koanf:"priority" toml:"priority"`
	PostHook string `koanf:"post_hook" toml:"post_hook"`
	Sudo     bool   `koanf:"sudo" toml:"sudo"`
}

// Templated reports whether the rule's source is a template
func (f File) Templated() bool {
	return hasTemplateExt(f.Source)
}

// EffectivePriority returns the chain priority, applying the default
func (f File) EffectivePriority() int {
	if f.Priority == nil {
		return DefaultPriority
	}
	return *f.Priority
}

// Hooks groups commands by trigger
type Hooks struct {
	// Once hooks run when first seen or when their command changes
	Once map[string]Hook `koanf:"once" toml:"once"`
	// Update hooks run after manager update commands
	Update map[string]Hook `koanf:"update" toml:"update"`
}

// Hook is a named shell command with an ordering priority
type Hook struct {
	Command  string `koanf:"command" toml:"command"`
	Priority *int   `koanf:"priority" toml:"priority"`
}

// EffectivePriority returns the chain priority, applying the default
func (h Hook) EffectivePriority() int {
	if h.Priority == nil {
		return DefaultPriority
	}
	return *h.Priority
}

// TemplateExt is the file extension marking a source as templated
const TemplateExt = ".tmpl"

func hasTemplateExt(source string) bool {
	return len(source) > len(TemplateExt) &&
		source[len(source)-len(TemplateExt):] == TemplateExt
}

// DefaultTimeout bounds external commands when the config declares none
const DefaultTimeout = 10 * time.Minute

// EffectiveTimeout returns the command timeout, applying the default
func (s Settings) EffectiveTimeout() time.Duration {
	if s.Timeout == 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// EffectiveConflictPolicy returns the conflict policy, applying the default
func (s Settings) EffectiveConflictPolicy() ConflictPolicy {
	if s.OnConflict == "" {
		return ConflictOverwrite
	}
	return s.OnConflict
}

// New returns an empty configuration with initialized maps
func New() *Config {
	return &Config{
		Managers: make(map[string]Manager),
		Packages: make(map[string][]string),
		Files:    make(map[string]File),
		Hooks: Hooks{
			Once:   make(map[string]Hook),
			Update: make(map[string]Hook),
		},
		Template: make(map[string]interface{}),
	}
}
