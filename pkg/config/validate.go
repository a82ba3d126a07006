package config

import (
	"strings"

	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/dotty-sh/dotty/pkg/paths"
)

// Validate checks the merged configuration before any planning happens.
// All violations here are fatal; nothing has been mutated yet.
func Validate(cfg *Config) error {
	for manager := range cfg.Packages {
		if _, ok := cfg.Managers[manager]; !ok {
			return errors.Newf(errors.ErrUnknownManager,
				"packages declared for manager %q but no [managers.%s] section exists", manager, manager)
		}
	}

	for name, m := range cfg.Managers {
		if m.Add != "" && !strings.Contains(m.Add, Placeholder) {
			return errors.Newf(errors.ErrInvalidTemplate,
				"manager %q add template is missing the %s placeholder", name, Placeholder)
		}
		if m.Remove != "" && !strings.Contains(m.Remove, Placeholder) {
			return errors.Newf(errors.ErrInvalidTemplate,
				"manager %q remove template is missing the %s placeholder", name, Placeholder)
		}
	}

	// Two rules resolving to the same destination would race; they are
	// rejected at load time rather than detected mid-run.
	destinations := make(map[string]string)
	for dest, f := range cfg.Files {
		if f.Source == "" {
			return errors.Newf(errors.ErrConfigValid, "file %q has no source", dest)
		}
		if f.Sudo && f.Templated() {
			return errors.Newf(errors.ErrConfigValid,
				"file %q: sudo cannot be combined with a templated source", dest)
		}
		expanded := paths.ExpandHome(dest)
		if prev, ok := destinations[expanded]; ok && prev != dest {
			return errors.Newf(errors.ErrConfigValid,
				"files %q and %q resolve to the same destination %s", prev, dest, expanded)
		}
		destinations[expanded] = dest
	}

	for name, h := range cfg.Hooks.Once {
		if h.Command == "" {
			return errors.Newf(errors.ErrConfigValid, "once hook %q has no command", name)
		}
	}
	for name, h := range cfg.Hooks.Update {
		if h.Command == "" {
			return errors.Newf(errors.ErrConfigValid, "update hook %q has no command", name)
		}
	}

	if p := cfg.Dotty.OnConflict; p != "" && p != ConflictOverwrite && p != ConflictSkip {
		return errors.Newf(errors.ErrConfigValid, "unknown on_conflict policy %q", p)
	}

	return nil
}
