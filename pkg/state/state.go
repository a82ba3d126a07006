// Package state persists the applied-state ledger: dotty's own record
// of what it previously installed and placed. The ledger is the diff
// baseline for planning, never a full system inventory — it only ever
// contains effects this tool produced itself.
package state

import (
	"sort"
)

// AppliedState is the persisted ledger
type AppliedState struct {
	// Packages maps manager name to the packages this tool installed
	Packages map[string][]string `toml:"packages"`

	// Files maps destination path to its last applied checksums
	Files map[string]FileRecord `toml:"files"`

	// Hooks maps once-hook names to the checksum of the command that
	// last ran, so a changed command triggers a re-run
	Hooks map[string]string `toml:"hooks"`
}

// FileRecord captures the checksums for one placed dotfile
type FileRecord struct {
	// Content is the checksum of the source (or rendered) content
	// that was last applied
	Content string `toml:"content"`

	// Destination is the destination file's checksum right after the
	// last apply, used to detect outside modification
	Destination string `toml:"destination"`
}

// New returns an empty ledger
func New() *AppliedState {
	return &AppliedState{
		Packages: make(map[string][]string),
		Files:    make(map[string]FileRecord),
		Hooks:    make(map[string]string),
	}
}

// PackagesFor returns the recorded packages for a manager
func (s *AppliedState) PackagesFor(manager string) []string {
	return s.Packages[manager]
}

// AddPackages records packages as installed by this tool
func (s *AppliedState) AddPackages(manager string, pkgs ...string) {
	current := s.Packages[manager]
	seen := make(map[string]bool, len(current))
	for _, p := range current {
		seen[p] = true
	}
	for _, p := range pkgs {
		if !seen[p] {
			seen[p] = true
			current = append(current, p)
		}
	}
	sort.Strings(current)
	s.Packages[manager] = current
}

// RemovePackages removes packages from the ledger
func (s *AppliedState) RemovePackages(manager string, pkgs ...string) {
	drop := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		drop[p] = true
	}
	var kept []string
	for _, p := range s.Packages[manager] {
		if !drop[p] {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		delete(s.Packages, manager)
		return
	}
	s.Packages[manager] = kept
}

// FileRecordFor returns the record for a destination, if any
func (s *AppliedState) FileRecordFor(destination string) (FileRecord, bool) {
	rec, ok := s.Files[destination]
	return rec, ok
}

// SetFileRecord records the checksums for a placed destination
func (s *AppliedState) SetFileRecord(destination string, rec FileRecord) {
	s.Files[destination] = rec
}

// HookChecksum returns the recorded command checksum for a once-hook
func (s *AppliedState) HookChecksum(name string) (string, bool) {
	sum, ok := s.Hooks[name]
	return sum, ok
}

// SetHookChecksum records a once-hook as having run
func (s *AppliedState) SetHookChecksum(name, checksum string) {
	s.Hooks[name] = checksum
}

// Clone returns a deep copy, used so execution can mutate a working
// copy while the loaded baseline stays untouched until persistence.
func (s *AppliedState) Clone() *AppliedState {
	out := New()
	for manager, pkgs := range s.Packages {
		out.Packages[manager] = append([]string(nil), pkgs...)
	}
	for dest, rec := range s.Files {
		out.Files[dest] = rec
	}
	for name, sum := range s.Hooks {
		out.Hooks[name] = sum
	}
	return out
}
