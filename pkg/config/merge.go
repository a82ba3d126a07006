package config

import (
	"github.com/dotty-sh/dotty/pkg/errors"
)

// Merge folds src into dst. Managers, files and hooks override by key,
// package sets union, and template contexts merge deeply. Conflicting
// scalar template values are a configuration error.
func Merge(dst, src *Config) error {
	if src.Dotty.Timeout != 0 {
		dst.Dotty.Timeout = src.Dotty.Timeout
	}
	if src.Dotty.OnConflict != "" {
		dst.Dotty.OnConflict = src.Dotty.OnConflict
	}

	for name, m := range src.Managers {
		dst.Managers[name] = m
	}
	for dest, f := range src.Files {
		dst.Files[dest] = f
	}
	for name, h := range src.Hooks.Once {
		dst.Hooks.Once[name] = h
	}
	for name, h := range src.Hooks.Update {
		dst.Hooks.Update[name] = h
	}

	for manager, pkgs := range src.Packages {
		dst.Packages[manager] = unionPackages(dst.Packages[manager], pkgs)
	}

	for key, value := range src.Template {
		current, ok := dst.Template[key]
		if !ok {
			dst.Template[key] = value
			continue
		}
		combined, err := combineTemplateValues(current, value)
		if err != nil {
			return errors.Wrapf(err, errors.ErrConfigValid, "template key %q", key)
		}
		dst.Template[key] = combined
	}

	return nil
}

// unionPackages appends packages not already present, keeping order
// stable and collapsing duplicates.
func unionPackages(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, p := range existing {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range incoming {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// combineTemplateValues merges two template context values. Sequences
// concatenate, mappings merge recursively, anything else conflicts.
func combineTemplateValues(a, b interface{}) (interface{}, error) {
	switch av := a.(type) {
	case []interface{}:
		if bv, ok := b.([]interface{}); ok {
			return append(append([]interface{}{}, av...), bv...), nil
		}
	case map[string]interface{}:
		if bv, ok := b.(map[string]interface{}); ok {
			out := make(map[string]interface{}, len(av))
			for k, v := range av {
				out[k] = v
			}
			for k, v := range bv {
				if cur, ok := out[k]; ok {
					combined, err := combineTemplateValues(cur, v)
					if err != nil {
						return nil, errors.Wrapf(err, errors.ErrConfigValid, "in %q", k)
					}
					out[k] = combined
					continue
				}
				out[k] = v
			}
			return out, nil
		}
	}
	return nil, errors.Newf(errors.ErrConfigValid, "incompatible template values %v and %v", a, b)
}
