// Package runner is the boundary to external commands. It never
// parses command output: exit status alone decides success.
package runner

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/dotty-sh/dotty/pkg/logging"
)

// Runner executes a shell command, optionally with privilege
// escalation, bounded by the configured timeout.
type Runner interface {
	Run(ctx context.Context, command string, sudo bool) error
}

// ShellRunner runs commands through `sh -c`, prefixing `sudo` when
// privilege escalation is requested.
type ShellRunner struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewShell returns a runner with the given per-command timeout
func NewShell(timeout time.Duration) *ShellRunner {
	return &ShellRunner{
		timeout: timeout,
		logger:  logging.GetLogger("runner"),
	}
}

// Run executes the command. The returned error is ACTION_TIMEOUT when
// the timeout expired and ACTION_FAILED for any non-zero exit.
func (r *ShellRunner) Run(ctx context.Context, command string, sudo bool) error {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if sudo {
		cmd = exec.CommandContext(runCtx, "sudo", "sh", "-c", command)
	} else {
		cmd = exec.CommandContext(runCtx, "sh", "-c", command)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	r.logger.Debug().Str("command", command).Bool("sudo", sudo).Msg("Executing command")
	start := time.Now()
	err := cmd.Run()
	r.logger.Debug().Str("command", command).Dur("duration", time.Since(start)).Err(err).Msg("Command finished")

	if err == nil {
		return nil
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return errors.Wrapf(err, errors.ErrActionTimeout, "command timed out after %s: %s", r.timeout, command)
	}
	return errors.Wrapf(err, errors.ErrActionFailed, "command failed: %s", command)
}
