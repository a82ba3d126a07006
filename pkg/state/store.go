package state

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/dotty-sh/dotty/pkg/errors"
	"github.com/dotty-sh/dotty/pkg/logging"
)

// Store loads and persists the ledger as a TOML file
type Store struct {
	path string
}

// NewStore returns a store writing the ledger at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the ledger file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the ledger. A missing file yields an empty ledger: the
// first run diffs against nothing, so everything desired gets applied.
func (s *Store) Load() (*AppliedState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errors.Wrapf(err, errors.ErrStateLoad, "reading state file %s", s.path)
	}

	st := New()
	if err := toml.Unmarshal(data, st); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStateLoad, "parsing state file %s", s.path)
	}
	if st.Packages == nil {
		st.Packages = make(map[string][]string)
	}
	if st.Files == nil {
		st.Files = make(map[string]FileRecord)
	}
	if st.Hooks == nil {
		st.Hooks = make(map[string]string)
	}
	return st, nil
}

// Save persists the ledger atomically: write to a temp file in the
// same directory, then rename over the target. A crash mid-write
// leaves the previous ledger intact.
func (s *Store) Save(st *AppliedState) error {
	logger := logging.GetLogger("state")

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrStatePersist, "creating state directory %s", dir)
	}

	data, err := toml.Marshal(st)
	if err != nil {
		return errors.Wrap(err, errors.ErrStatePersist, "encoding state")
	}

	tmp, err := os.CreateTemp(dir, ".dotty-state-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrStatePersist, "creating temp state file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, errors.ErrStatePersist, "writing temp state file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, errors.ErrStatePersist, "closing temp state file")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, errors.ErrStatePersist, "renaming state file into place at %s", s.path)
	}

	logger.Debug().Str("path", s.path).Msg("State persisted")
	return nil
}
