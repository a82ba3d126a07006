// Package registry resolves package manager names to their command
// specs and renders executable command strings from them. Managers are
// pure data: substituting the placeholder token in a template is the
// whole of the dispatch mechanism.
package registry

import (
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/dotty-sh/dotty/pkg/config"
	"github.com/dotty-sh/dotty/pkg/errors"
)

// Operation selects which of a manager's command templates to render
type Operation string

const (
	OpAdd    Operation = "add"
	OpRemove Operation = "remove"
	OpUpdate Operation = "update"
)

// Registry maps manager names to their specs
type Registry struct {
	managers map[string]config.Manager
}

// New builds a registry from the configured managers
func New(managers map[string]config.Manager) *Registry {
	m := make(map[string]config.Manager, len(managers))
	for name, spec := range managers {
		m[name] = spec
	}
	return &Registry{managers: m}
}

// Resolve returns the spec for a manager name
func (r *Registry) Resolve(name string) (config.Manager, error) {
	spec, ok := r.managers[name]
	if !ok {
		return config.Manager{}, errors.Newf(errors.ErrUnknownManager, "manager %q is not configured", name)
	}
	return spec, nil
}

// Names returns all manager names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render produces the command strings for an operation on a manager.
// Package names are shell-escaped before substitution. A non-empty
// separator batches all packages into one invocation; an explicitly
// empty separator yields one invocation per package. An empty template
// renders no commands, and add/remove templates must carry the
// placeholder token.
func Render(spec config.Manager, op Operation, packages []string) ([]string, error) {
	var tmpl string
	switch op {
	case OpAdd:
		tmpl = spec.Add
	case OpRemove:
		tmpl = spec.Remove
	case OpUpdate:
		tmpl = spec.Update
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown operation %q", op)
	}

	if tmpl == "" {
		return nil, nil
	}

	if op == OpUpdate {
		// Update commands usually take no packages, but the placeholder
		// is honored when present.
		if strings.Contains(tmpl, config.Placeholder) {
			return substitute(tmpl, spec.Sep(), packages), nil
		}
		return []string{tmpl}, nil
	}

	if !strings.Contains(tmpl, config.Placeholder) {
		return nil, errors.Newf(errors.ErrInvalidTemplate,
			"%s template %q is missing the %s placeholder", op, tmpl, config.Placeholder)
	}
	if len(packages) == 0 {
		return nil, nil
	}

	return substitute(tmpl, spec.Sep(), packages), nil
}

func substitute(tmpl, sep string, packages []string) []string {
	if sep == "" {
		cmds := make([]string, 0, len(packages))
		for _, pkg := range packages {
			cmds = append(cmds, strings.ReplaceAll(tmpl, config.Placeholder, shellquote.Join(pkg)))
		}
		return cmds
	}

	escaped := make([]string, 0, len(packages))
	for _, pkg := range packages {
		escaped = append(escaped, shellquote.Join(pkg))
	}
	return []string{strings.ReplaceAll(tmpl, config.Placeholder, strings.Join(escaped, sep))}
}
