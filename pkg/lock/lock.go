// Package lock guards the applied-state ledger against concurrent
// runs. Two reconciliations diffing and rewriting the same ledger
// would corrupt each other, so the lock is mandatory and never waited
// on: a held lock fails the run immediately.
package lock

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/dotty-sh/dotty/pkg/errors"
)

// Lock is an exclusive file lock scoped to one reconciliation run
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock at path without blocking. If another process
// holds it, the run aborts with LOCK_HELD.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "creating lock directory for %s", path)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrLockHeld, "acquiring lock %s", path)
	}
	if !ok {
		return nil, errors.Newf(errors.ErrLockHeld, "another dotty run is in progress (lock %s)", path)
	}

	return &Lock{fl: fl}, nil
}

// Release drops the lock. Safe to call on all exit paths.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
