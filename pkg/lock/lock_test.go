// pkg/lock/lock_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (t.TempDir)
// PURPOSE: Test exclusive run locking

package lock_test

import (
	"path/filepath"
	"testing"

	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/dotty-sh/dotty/pkg/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "dotty.lock")

	l, err := lock.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l.Release())

	// Reacquirable after release
	l2, err := lock.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestAcquire_Held(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotty.lock")

	l, err := lock.Acquire(path)
	require.NoError(t, err)
	defer func() { _ = l.Release() }()

	_, err = lock.Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLockHeld))
}

func TestRelease_Nil(t *testing.T) {
	var l *lock.Lock
	assert.NoError(t, l.Release())
}
