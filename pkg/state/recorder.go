package state

import (
	"sync"
)

// Recorder serializes ledger updates from concurrently executing
// chains. Each chain records its confirmed effects here; the single
// writer lock keeps partial updates from interleaving.
type Recorder struct {
	mu    sync.Mutex
	state *AppliedState
}

// NewRecorder wraps a working copy of the loaded ledger
func NewRecorder(st *AppliedState) *Recorder {
	return &Recorder{state: st}
}

// RecordInstall marks packages as installed by this tool
func (r *Recorder) RecordInstall(manager string, pkgs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.AddPackages(manager, pkgs...)
}

// RecordRemove drops packages from the ledger
func (r *Recorder) RecordRemove(manager string, pkgs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.RemovePackages(manager, pkgs...)
}

// RecordFile stores the checksums for a placed destination
func (r *Recorder) RecordFile(destination string, rec FileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.SetFileRecord(destination, rec)
}

// RecordOnceHook stores the command checksum of a hook that ran
func (r *Recorder) RecordOnceHook(name, checksum string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.SetHookChecksum(name, checksum)
}

// State returns the recorded ledger. Call only after all chains have
// resolved; the reconciler persists the result.
func (r *Recorder) State() *AppliedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
