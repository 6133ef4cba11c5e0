package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quire/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the vault root and keeps the index in step
// with external edits until ctx is cancelled. cb (if non-nil) is called after
// each index mutation that actually changed something.
//
// New directories are added to the watch list as they appear. Rename events
// trigger a debounced reconciliation pass against the file system.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	wt := &watcher{db: db, store: store, root: root, logger: logger, cb: cb}

	if err := wt.addDirs(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var (
		reconcileTimer *time.Timer
		reconcileCh    <-chan time.Time
	)
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			wt.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			wt.handle(w, ev, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

func (wt *watcher) emit(kind, rel string) {
	if wt.cb != nil {
		wt.cb(kind, rel)
	}
}

func (wt *watcher) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(wt.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if wt.store.Ignored(rel) {
		return "", false
	}
	return rel, true
}

func (wt *watcher) handle(w *fsnotify.Watcher, ev fsnotify.Event, scheduleReconcile func()) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if rel, ok := wt.rel(ev.Name); !ok || wt.store.Ignored(rel+"/") {
				return
			}
			if err := wt.addDirs(w, ev.Name); err != nil {
				wt.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			wt.indexDir(ev.Name)
			return
		}
	}

	if !strings.HasSuffix(ev.Name, ".md") {
		return
	}
	rel, ok := wt.rel(ev.Name)
	if !ok {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind, changed, err := wt.index(rel)
		if err != nil {
			wt.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if changed {
			wt.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
			wt.emit(kind, rel)
		}

	case ev.Op&fsnotify.Remove != 0:
		if err := wt.db.DeleteNote(rel); err != nil {
			wt.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		wt.logger.Debug("watcher: deleted", slog.String("path", rel))
		wt.emit("deleted", rel)

	case ev.Op&fsnotify.Rename != 0:
		// Rename fires on the old path only; the new one arrives as Create
		// when it stays inside a watched directory.
		if err := wt.db.DeleteNote(rel); err != nil {
			wt.logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			wt.emit("deleted", rel)
		}
		scheduleReconcile()
	}
}

// index re-indexes rel when its content differs from the stored checksum.
func (wt *watcher) index(rel string) (kind string, changed bool, err error) {
	data, err := wt.store.Read(rel)
	if err != nil {
		return "", false, err
	}
	prev, err := wt.db.GetChecksum(rel)
	if err != nil {
		return "", false, err
	}
	if prev == Checksum(data) {
		return "", false, nil
	}
	var modTime time.Time
	if meta, statErr := wt.store.Stat(rel); statErr == nil {
		modTime = meta.UpdatedAt
	}
	if err := wt.db.IndexFile(rel, data, modTime); err != nil {
		return "", false, err
	}
	if prev == "" {
		return "created", true, nil
	}
	return "updated", true, nil
}

// reconcile removes index entries without a file on disk and indexes
// on-disk files the index has not seen.
func (wt *watcher) reconcile() {
	checksums, err := wt.db.AllChecksums()
	if err != nil {
		wt.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := wt.store.List("")
	if err != nil {
		wt.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := wt.db.DeleteNote(p); err == nil {
			wt.logger.Debug("reconcile: removed stale", slog.String("path", p))
			wt.emit("deleted", p)
		}
	}
	for p := range disk {
		if kind, changed, err := wt.index(p); err == nil && changed {
			wt.logger.Debug("reconcile: indexed", slog.String("path", p))
			wt.emit(kind, p)
		}
	}
}

// indexDir indexes the .md files already present in a newly created directory.
func (wt *watcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, ok := wt.rel(p)
		if !ok {
			return nil
		}
		if kind, changed, err := wt.index(rel); err == nil && changed {
			wt.logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			wt.emit(kind, rel)
		}
		return nil
	})
}

// addDirs adds root and all its non-ignored subdirectories to the watcher.
func (wt *watcher) addDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != wt.root {
			if rel, relErr := filepath.Rel(wt.root, p); relErr == nil && wt.store.Ignored(filepath.ToSlash(rel)+"/") {
				return fs.SkipDir
			}
		}
		return w.Add(p)
	})
}
