package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current catalog. It is safe for concurrent use; readers
// always see a complete catalog.
type Store struct {
	current atomic.Pointer[Catalog]
	logger  *slog.Logger
}

// NewStore returns a Store serving c.
func NewStore(c *Catalog, logger *slog.Logger) *Store {
	s := &Store{logger: logger}
	s.current.Store(c)
	return s
}

// Get returns the current catalog. Callers must not modify it.
func (s *Store) Get() *Catalog {
	return s.current.Load()
}

// Reload replaces the catalog with the contents of path. On error the
// current catalog is kept.
func (s *Store) Reload(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	s.current.Store(c)
	return nil
}

// Watch reloads path whenever it is written or recreated, until ctx is done.
// The parent directory is watched so that editors which replace the file on
// save are picked up. A catalog that fails to parse is logged and ignored.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching prompt dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Reload(path); err != nil {
				s.logger.Warn("keeping previous prompt catalog", "path", path, "error", err)
				continue
			}
			s.logger.Info("reloaded prompt catalog", "path", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("prompt watcher error: %w", err)
		}
	}
}
