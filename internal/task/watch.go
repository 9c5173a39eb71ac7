package task

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dkotenko/taskflow/internal/eventbus"
)

// debounceInterval lets rapid event bursts (atomic write + rename) settle
// before reloading.
const debounceInterval = 100 * time.Millisecond

// startWatcher watches the workspace directory for external changes to the
// state file. Watching the parent directory instead of the file itself
// survives atomic replaces, which change the inode.
func (r *Registry) startWatcher() error {
	base, ok := r.storage.(interface{ BasePath() string })
	if !ok {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(base.BasePath()); err != nil {
		_ = watcher.Close()
		return err
	}
	r.watcher = watcher
	go r.watchLoop(watcher)
	return nil
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != r.stateName {
				continue
			}
			if event.Op&fsnotify.Remove != 0 {
				if r.saving.Load() {
					continue
				}
				r.clearFromDisk()
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if r.saving.Load() {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceInterval, r.reloadFromDisk)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("state file watcher error", "error", err)

		case <-r.stopCh:
			return
		}
	}
}

// reloadFromDisk replaces the collection with the state file contents after
// an external edit, then regenerates the markdown view.
func (r *Registry) reloadFromDisk() {
	if r.saving.Load() {
		return
	}
	ctx := context.Background()
	tasks, err := r.store.Load(ctx)
	if err != nil {
		slog.Warn("failed to reload task state", "error", err)
		return
	}
	r.mu.Lock()
	r.tasks = make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		r.tasks[t.ID] = t
	}
	r.writeMarkdownLocked(ctx)
	r.mu.Unlock()

	slog.Info("task state reloaded after external change", "tasks", len(tasks))
	r.bus.PublishNew(eventbus.TypeReloaded, "")
}

// clearFromDisk empties the collection when the state file is removed
// outside our control. Nothing is persisted; the removal was deliberate.
func (r *Registry) clearFromDisk() {
	r.mu.Lock()
	r.tasks = make(map[string]*Task)
	r.mu.Unlock()

	slog.Info("state file removed, collection cleared")
	r.bus.PublishNew(eventbus.TypeCleared, "")
}
