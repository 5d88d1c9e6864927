package localstore

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after a watched record was rewritten on disk.
type ChangeCallback func(name string)

// Watch observes the File store's directory and calls cb, debounced, whenever
// one of its records is replaced. Writes by this process are reported too; callers
// that only care about other writers compare against their own state.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, f *File, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.dir); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	records := map[string]string{
		filepath.Base(f.RecordPath(NotesRecord)):    NotesRecord,
		filepath.Base(f.RecordPath(SettingsRecord)): SettingsRecord,
	}

	logger.Info("watcher: started", slog.String("dir", f.dir))

	// Rename-into-place produces a burst of events per write; coalesce them.
	var timer *time.Timer
	var timerCh <-chan time.Time
	changed := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			timerCh = nil
			for name := range changed {
				logger.Debug("watcher: record changed", slog.String("record", name))
				if cb != nil {
					cb(name)
				}
			}
			clear(changed)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, tracked := records[filepath.Base(ev.Name)]
			if !tracked || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			changed[name] = struct{}{}
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
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
