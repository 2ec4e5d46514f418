// Package file stores values as sealed files, one per key, in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/aussiebroadwan/storefront/internal/storefront/store"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
)

const fileExt = ".sealed"

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store persists each key as dir/<key>.sealed, encrypted with a Sealer.
// Writes go through a temp file and a rename so readers (including other
// processes) never observe a partial value.
type Store struct {
	dir    string
	sealer *cryptox.Sealer

	// known holds the last value this process wrote or read per key ("" for
	// absent). The watcher compares against it to ignore our own writes.
	mu    sync.Mutex
	known map[string]string
}

// NewStore creates dir (mode 0700) if needed and returns a Store over it.
func NewStore(dir string, sealer *cryptox.Sealer) (*Store, error) {
	if sealer == nil {
		return nil, fmt.Errorf("file store: sealer is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file store: failed to create directory: %w", err)
	}

	return &Store{
		dir:    dir,
		sealer: sealer,
		known:  make(map[string]string),
	}, nil
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, err := s.read(key)
	if err != nil {
		return "", err
	}

	s.remember(key, v)
	return v, nil
}

func (s *Store) read(key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}

	sealed, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("file store: read %s: %w", key, err)
	}

	plain, err := s.sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("file store: open %s: %w", key, err)
	}

	return string(plain), nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	sealed, err := s.sealer.Seal([]byte(value))
	if err != nil {
		return fmt.Errorf("file store: seal %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("file store: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file store: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close %s: %w", key, err)
	}

	// Remember before the rename so the resulting fs event is recognised
	s.remember(key, value)

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("file store: rename %s: %w", key, err)
	}

	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.remember(key, "")

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file store: delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the directory is still there and writable.
func (s *Store) Ping(context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("file store: ping: %w", err)
	}
	_ = f.Close()
	return os.Remove(f.Name())
}

func (s *Store) Close() error { return nil }

func (s *Store) remember(key, value string) {
	s.mu.Lock()
	s.known[key] = value
	s.mu.Unlock()
}

// changed re-reads key and reports whether it differs from what this process
// last saw, updating the record when it does.
func (s *Store) changed(key string) bool {
	current, err := s.read(key)
	if errors.Is(err, store.ErrNotFound) {
		current = ""
	} else if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.known[key]; ok && prev == current {
		return false
	}
	s.known[key] = current
	return true
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Watcher = (*Store)(nil)
)
