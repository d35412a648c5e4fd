package directory

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notehub/internal/store"
)

const debounce = 200 * time.Millisecond

// Watch re-syncs the users file whenever it changes, until ctx is cancelled.
// It watches the file's parent directory so editors that replace the file via
// rename are handled. Bursts of events are debounced into one sync. onSync,
// if non-nil, is called after every successful sync.
func Watch(ctx context.Context, users store.Users, path string, logger *slog.Logger, onSync func(Result)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("directory watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("directory watcher: stopped")
			return nil

		case <-timerCh:
			timerCh = nil
			res, err := Sync(ctx, users, abs, logger)
			if err != nil {
				logger.Warn("directory watcher: sync failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("directory watcher: synced",
				slog.Int("added", res.Added),
				slog.Int("removed", res.Removed))
			if onSync != nil {
				onSync(res)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerCh = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("directory watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
