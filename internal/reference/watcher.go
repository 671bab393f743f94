package reference

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever the reference file is rewritten on disk.
// It returns after the watcher is installed; reload happens on a background
// goroutine that exits when ctx is cancelled. A reload failure keeps the
// previous table and is only logged.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create reference file watcher: %w", err)
	}

	// Watch the directory: editors and downloads replace the file with a
	// rename, which drops a watch installed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch reference directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to resolve reference path: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				eventPath, _ := filepath.Abs(event.Name)
				if eventPath != absPath {
					continue
				}
				slog.Info("Reference database changed, reloading", "path", path)
				if err := s.Load(path); err != nil {
					slog.Error("Failed to reload reference database", "path", path, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Reference file watcher error", "error", err)
			}
		}
	}()

	return nil
}
