package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/scx-power-sync/scx-power-sync/internal/logging"
	"github.com/scx-power-sync/scx-power-sync/internal/platform"
)

var configLog = logging.ForComponent(logging.CompConfig)

// Watch reports edits to the loaded configuration file until ctx is done.
// The mode table is never reloaded in place; a change only produces a
// warning that the daemon must be restarted. The parent directory is
// watched so that editors which replace the file by rename are seen.
// A watcher that cannot be set up is logged and Watch returns nil.
func Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		configLog.Warn("config_watch_unavailable", slog.String("error", err.Error()))
		return nil
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if warning := platform.CheckFsnotifySupport(target); warning != "" {
		configLog.Warn("config_watch_unreliable",
			slog.String("path", target),
			slog.String("reason", warning))
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		configLog.Warn("config_watch_unavailable",
			slog.String("path", target),
			slog.String("error", err.Error()))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			configLog.Warn("config_changed_restart_required",
				slog.String("path", target),
				slog.String("op", ev.Op.String()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			configLog.Warn("config_watch_error", slog.String("error", err.Error()))
		}
	}
}
