// Package actions defines the reversible operations a plan is made of.
// Each action is self-contained: it knows how to execute itself against
// the execution environment and records its own confirmed effect in the
// ledger, so partially executed plans persist exactly what happened.
package actions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kballard/go-shellquote"

	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/dotty-sh/dotty/pkg/hashutil"
	"github.com/dotty-sh/dotty/pkg/runner"
	"github.com/dotty-sh/dotty/pkg/state"
)

// Env is what actions execute against
type Env struct {
	Runner   runner.Runner
	Recorder *state.Recorder
}

// Action is one step of a plan
type Action interface {
	// Execute performs the action and records its effect on success
	Execute(ctx context.Context, env *Env) error

	// Description returns a human-readable description of the action
	Description() string
}

// InstallPackages runs one install command and records the packages
// it covers. Batching policy decides whether a manager's installs are
// one action or one per package.
type InstallPackages struct {
	Manager  string
	Packages []string
	Command  string
	Sudo     bool
}

func (a *InstallPackages) Execute(ctx context.Context, env *Env) error {
	if err := env.Runner.Run(ctx, a.Command, a.Sudo); err != nil {
		return err
	}
	env.Recorder.RecordInstall(a.Manager, a.Packages...)
	return nil
}

func (a *InstallPackages) Description() string {
	return fmt.Sprintf("install via %s: %v", a.Manager, a.Packages)
}

// RemovePackages runs one remove command and drops the packages from
// the ledger. An empty Command is a ledger-only removal, used when a
// manager has no remove template.
type RemovePackages struct {
	Manager  string
	Packages []string
	Command  string
	Sudo     bool
}

func (a *RemovePackages) Execute(ctx context.Context, env *Env) error {
	if a.Command != "" {
		if err := env.Runner.Run(ctx, a.Command, a.Sudo); err != nil {
			return err
		}
	}
	env.Recorder.RecordRemove(a.Manager, a.Packages...)
	return nil
}

func (a *RemovePackages) Description() string {
	return fmt.Sprintf("remove via %s: %v", a.Manager, a.Packages)
}

// UpdateManager runs a manager's update command. It leaves the ledger
// untouched: updating changes no package membership.
type UpdateManager struct {
	Manager string
	Command string
	Sudo    bool
}

func (a *UpdateManager) Execute(ctx context.Context, env *Env) error {
	return env.Runner.Run(ctx, a.Command, a.Sudo)
}

func (a *UpdateManager) Description() string {
	return fmt.Sprintf("update %s", a.Manager)
}

// RunHook runs a configured hook command. Once-hooks record the
// command checksum so they only re-run when the command changes.
type RunHook struct {
	Name    string
	Command string
	Once    bool
}

func (a *RunHook) Execute(ctx context.Context, env *Env) error {
	if err := env.Runner.Run(ctx, a.Command, false); err != nil {
		return err
	}
	if a.Once {
		env.Recorder.RecordOnceHook(a.Name, hashutil.ChecksumString(a.Command))
	}
	return nil
}

func (a *RunHook) Description() string {
	return fmt.Sprintf("hook %s: %s", a.Name, a.Command)
}

// RenderTemplate stages content rendered at plan time. The staged file
// is content-addressed, so re-staging identical output is a no-op.
type RenderTemplate struct {
	Source     string
	StagedPath string
	Content    []byte
}

func (a *RenderTemplate) Execute(ctx context.Context, env *Env) error {
	if err := os.MkdirAll(filepath.Dir(a.StagedPath), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "creating staging directory for %s", a.Source)
	}
	if err := os.WriteFile(a.StagedPath, a.Content, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "staging rendered %s", a.Source)
	}
	return nil
}

func (a *RenderTemplate) Description() string {
	return fmt.Sprintf("render %s", a.Source)
}

// LinkFile places content at a destination and records both checksums
// in the ledger. SourcePath is either the original dotfile or the
// staged render. Privileged placements go through the command runner.
type LinkFile struct {
	Destination string
	SourcePath  string
	Checksum    string
	Sudo        bool
}

func (a *LinkFile) Execute(ctx context.Context, env *Env) error {
	if a.Sudo {
		if err := a.placeSudo(ctx, env); err != nil {
			return err
		}
	} else {
		if err := a.place(); err != nil {
			return err
		}
	}

	// The destination checksum is recomputed from disk where possible;
	// for unreadable privileged destinations the content checksum
	// stands in, which is what the copy produced anyway.
	destSum, err := hashutil.ChecksumFile(a.Destination)
	if err != nil {
		destSum = a.Checksum
	}
	env.Recorder.RecordFile(a.Destination, state.FileRecord{
		Content:     a.Checksum,
		Destination: destSum,
	})
	return nil
}

func (a *LinkFile) place() error {
	data, err := os.ReadFile(a.SourcePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileNotFound, "reading %s", a.SourcePath)
	}
	if err := os.MkdirAll(filepath.Dir(a.Destination), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "creating parent of %s", a.Destination)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(a.SourcePath); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(a.Destination, data, mode); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "writing %s", a.Destination)
	}
	return nil
}

func (a *LinkFile) placeSudo(ctx context.Context, env *Env) error {
	cmd := fmt.Sprintf("mkdir -p %s && cp %s %s",
		shellquote.Join(filepath.Dir(a.Destination)),
		shellquote.Join(a.SourcePath),
		shellquote.Join(a.Destination))
	return env.Runner.Run(ctx, cmd, true)
}

func (a *LinkFile) Description() string {
	return fmt.Sprintf("place %s -> %s", a.SourcePath, a.Destination)
}
