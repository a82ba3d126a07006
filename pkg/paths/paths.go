// Package paths provides centralized path handling for dotty.
// It implements XDG Base Directory specification compliance and
// provides a consistent API for all path operations in the codebase.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dotty-sh/dotty/pkg/errors"
)

// Environment variable names
const (
	// EnvConfigFile overrides the default config file location
	EnvConfigFile = "DOTTY_CONFIG"

	// EnvStateDir overrides the XDG state directory for dotty
	EnvStateDir = "DOTTY_STATE_DIR"
)

// Default directories and files.
// These constants define dotty's on-disk layout and are not
// user-configurable beyond the environment overrides above.
const (
	// DottyDirName is the directory name for dotty-specific files
	DottyDirName = "dotty"

	// ConfigFileName is the default name of the root configuration file
	ConfigFileName = "dotty.toml"

	// StateFileName is the name of the applied-state ledger file
	StateFileName = "dotty.state.toml"

	// LockFileName is the name of the run lock file
	LockFileName = "dotty.lock"

	// StagingDirName is the subdirectory for staged rendered templates
	StagingDirName = "staging"
)

// Paths provides centralized path management for dotty
type Paths struct {
	configFile string
	stateFile  string
	stateDir   string
}

// New resolves dotty's paths. configFile and stateFile may be empty, in
// which case the environment overrides and XDG defaults apply. An
// explicit stateFile is used as given; the lock and staging directory
// live beside it.
func New(configFile, stateFile string) (Paths, error) {
	if configFile == "" {
		configFile = os.Getenv(EnvConfigFile)
	}
	if configFile == "" {
		configFile = filepath.Join(xdg.ConfigHome, DottyDirName, ConfigFileName)
	}

	abs, err := filepath.Abs(configFile)
	if err != nil {
		return Paths{}, errors.Wrapf(err, errors.ErrInvalidInput, "resolving config path %s", configFile)
	}

	if stateFile != "" {
		absState, err := filepath.Abs(stateFile)
		if err != nil {
			return Paths{}, errors.Wrapf(err, errors.ErrInvalidInput, "resolving state path %s", stateFile)
		}
		return Paths{
			configFile: abs,
			stateFile:  absState,
			stateDir:   filepath.Dir(absState),
		}, nil
	}

	stateDir := os.Getenv(EnvStateDir)
	if stateDir == "" {
		stateDir = filepath.Join(xdg.StateHome, DottyDirName)
	}

	return Paths{
		configFile: abs,
		stateFile:  filepath.Join(stateDir, StateFileName),
		stateDir:   stateDir,
	}, nil
}

// ConfigFile returns the root configuration file path
func (p Paths) ConfigFile() string {
	return p.configFile
}

// ConfigDir returns the directory containing the root configuration,
// used as the base for module imports and relative file sources.
func (p Paths) ConfigDir() string {
	return filepath.Dir(p.configFile)
}

// StateFile returns the applied-state ledger path
func (p Paths) StateFile() string {
	return p.stateFile
}

// LockFile returns the run lock path, kept beside the state file so the
// lock scope matches the ledger it protects.
func (p Paths) LockFile() string {
	return filepath.Join(p.stateDir, LockFileName)
}

// StagingDir returns the directory holding rendered template content,
// keyed by content hash.
func (p Paths) StagingDir() string {
	return filepath.Join(p.stateDir, StagingDirName)
}

// ExpandHome expands a leading ~/ to the user's home directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
