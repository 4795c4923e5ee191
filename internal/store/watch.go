package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-applies migrations whenever a file changes under the
// migrations directory, for local development loops. Modeled on the
// teacher's FileWatcher.Start (cmd/bd/daemon_watcher.go): an fsnotify
// watcher run from a goroutine, torn down through context cancellation
// plus a WaitGroup drain.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Watch starts watching the store's migrations directory. Call Stop to
// release the fsnotify handle and stop the goroutine.
func (s *Store) Watch(ctx context.Context) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(s.migrations); err != nil {
		_ = fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{store: s, watcher: fw, cancel: cancel}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				slog.Info("migrations directory changed, re-applying", "file", event.Name)
				if err := s.Migrate(ctx); err != nil {
					slog.Warn("migration re-apply failed", "error", err)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				slog.Warn("migrations watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return w, nil
}

// Stop cancels the watcher goroutine and releases the fsnotify handle.
func (w *Watcher) Stop() {
	w.cancel()
	w.wg.Wait()
	_ = w.watcher.Close()
}
