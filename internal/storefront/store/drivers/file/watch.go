package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the store directory and calls fn when key is modified or
// removed by someone other than this Store. Events caused by our own Set and
// Delete calls are filtered out by comparing against the last known value.
func (s *Store) Watch(ctx context.Context, key string, fn func()) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file store: create watcher: %w", err)
	}

	// Watch the directory, not the file: atomic renames replace the inode
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("file store: watch %s: %w", s.dir, err)
	}

	// Seed the known value so the first foreign change is detected
	s.changed(key)

	go func() {
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
					!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if s.changed(key) {
					fn()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}
