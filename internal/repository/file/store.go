package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/NordCoder/Feedwatch/internal/domain/state"
)

// Store keeps one JSON document per fingerprint in a directory.
type Store struct {
	dir string
}

var _ state.Store = (*Store)(nil)

func New(dir string) (*Store, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir %s: %w", state.ErrPersistence, dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Path(fp state.Fingerprint) string {
	return filepath.Join(s.dir, string(fp)+".json")
}

func (s *Store) Load(_ context.Context, fp state.Fingerprint) (state.State, bool, error) {
	raw, err := os.ReadFile(s.Path(fp))
	if errors.Is(err, fs.ErrNotExist) {
		return state.State{}, false, nil
	}
	if err != nil {
		return state.State{}, false, fmt.Errorf("%w: read %s: %w", state.ErrPersistence, fp, err)
	}

	var st state.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return state.State{}, false, fmt.Errorf("%w: decode %s: %w", state.ErrPersistence, fp, err)
	}
	return st, true, nil
}

func (s *Store) Save(_ context.Context, fp state.Fingerprint, st state.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", state.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(s.dir, string(fp)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: temp file: %w", state.ErrPersistence, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write: %w", state.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync: %w", state.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", state.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(fp)); err != nil {
		return fmt.Errorf("%w: rename: %w", state.ErrPersistence, err)
	}
	return nil
}
