// pkg/runner/runner_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: POSIX shell
// PURPOSE: Test exit-status mapping and timeout handling

package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/dotty-sh/dotty/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	r := runner.NewShell(time.Minute)
	assert.NoError(t, r.Run(context.Background(), "true", false))
}

func TestRun_NonZeroExit(t *testing.T) {
	r := runner.NewShell(time.Minute)
	err := r.Run(context.Background(), "exit 3", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrActionFailed))
}

func TestRun_Timeout(t *testing.T) {
	r := runner.NewShell(50 * time.Millisecond)
	err := r.Run(context.Background(), "sleep 5", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrActionTimeout))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runner.NewShell(time.Minute)
	err := r.Run(ctx, "sleep 5", false)
	require.Error(t, err)
	// Cancellation is not a timeout
	assert.True(t, errors.IsErrorCode(err, errors.ErrActionFailed))
}
