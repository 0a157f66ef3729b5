package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/ortholine/inlay/pkg/core"
)

// DebounceWindow is how long the watcher waits for a path to settle before
// emitting its event.
var DebounceWindow = 50 * time.Millisecond

// Watch reports changes to entries whose ID matches pattern. The channel is
// closed when ctx is cancelled or the watcher fails.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	w, err := newWatcher(r, pattern)
	if err != nil {
		return nil, err
	}

	events := make(chan core.Event, 100)
	r.setWatcherActive(true)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer r.setWatcherActive(false)
		defer w.fsw.Close()
		return w.run(ctx, events)
	}, lifecycle.WithErrorHandler(func(err error) {
		if r.config.ErrorHandler != nil {
			r.config.ErrorHandler(err)
			return
		}
		r.config.Logger.Error("watcher stopped", "error", err)
	}))
	return events, nil
}

type pendingEvent struct {
	event core.Event
	due   time.Time
}

type watcher struct {
	repo    *Repository
	pattern string
	fsw     *fsnotify.Watcher
	known   map[string]bool // relative paths present on disk
	pending map[string]pendingEvent
	order   []string
}

func newWatcher(r *Repository, pattern string) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &watcher{
		repo:    r,
		pattern: pattern,
		fsw:     fsw,
		known:   make(map[string]bool),
		pending: make(map[string]pendingEvent),
	}
	if _, err := w.addTree(r.Path); err != nil {
		fsw.Close()
		return nil, err
	}
	_ = fsw.Add(filepath.Join(r.Path, ".git"))
	return w, nil
}

// addTree watches dir and every directory below it, recording the entry
// files it finds. It returns the ones that were not known before.
func (w *watcher) addTree(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != w.repo.Path && (d.Name() == ".git" || d.Name() == w.repo.config.SystemDir) {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}
		if rel, ok := w.entryPath(path); ok && !w.known[rel] {
			w.known[rel] = true
			found = append(found, rel)
		}
		return nil
	})
	return found, err
}

// entryPath returns the vault-relative path of name if it is an entry file.
func (w *watcher) entryPath(name string) (string, bool) {
	if isTempFile(name) {
		return "", false
	}
	if _, ok := w.repo.serializer(filepath.Ext(name)); !ok {
		return "", false
	}
	rel, err := filepath.Rel(w.repo.Path, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	top := rel
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		top = rel[:i]
	}
	if top == ".git" || top == w.repo.config.SystemDir {
		return "", false
	}
	return rel, true
}

func isGitLock(name string) bool {
	return filepath.Base(name) == "index.lock" && filepath.Base(filepath.Dir(name)) == ".git"
}

func (w *watcher) run(ctx context.Context, out chan<- core.Event) (err error) {
	logger := w.repo.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()

	ticker := time.NewTicker(DebounceWindow / 2)
	defer ticker.Stop()
	gitLocked := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			logger.Debug("event received", "name", ev.Name, "op", ev.Op.String())

			if isGitLock(ev.Name) {
				switch {
				case ev.Has(fsnotify.Create):
					gitLocked = true
					logger.Debug("git operation detected, pausing watcher")
				case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
					gitLocked = false
					logger.Debug("git operation finished, reconciling")
					w.reconcile(ctx)
				}
				continue
			}
			if gitLocked {
				continue
			}
			w.handle(ev)

		case werr, ok := <-w.fsw.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", werr)
			if w.repo.config.ErrorHandler != nil {
				w.repo.config.ErrorHandler(werr)
			}

		case now := <-ticker.C:
			if !w.flush(ctx, now, out) {
				return nil
			}
		}
	}
}

// handle maps one fsnotify event onto the pending queue.
func (w *watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			found, err := w.addTree(ev.Name)
			if err != nil {
				w.repo.config.Logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
			// Files can land before the directory is watched.
			for _, rel := range found {
				w.emit(rel, core.EventCreate)
			}
			return
		}
	}

	rel, ok := w.entryPath(ev.Name)
	if !ok {
		return
	}

	var typ core.EventType
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if !w.known[rel] {
			return
		}
		delete(w.known, rel)
		typ = core.EventDelete
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		// Atomic writes land as a rename, so a create on a known path is a modification.
		typ = core.EventModify
		if !w.known[rel] {
			typ = core.EventCreate
		}
		w.known[rel] = true
	default:
		return
	}

	w.emit(rel, typ)
}

func (w *watcher) emit(rel string, typ core.EventType) {
	id := w.repo.idFor(rel)
	if ok, _ := doublestar.Match(w.pattern, id); !ok {
		return
	}
	w.enqueue(rel, core.Event{Type: typ, ID: id, Timestamp: time.Now().Unix()})
}

// enqueue merges e with any event already waiting for the same path.
func (w *watcher) enqueue(rel string, e core.Event) {
	prev, exists := w.pending[rel]
	if exists {
		switch {
		case prev.event.Type == core.EventCreate && e.Type == core.EventDelete:
			delete(w.pending, rel)
			return
		case prev.event.Type == core.EventCreate && e.Type == core.EventModify:
			e.Type = core.EventCreate
		case prev.event.Type == core.EventDelete && e.Type != core.EventDelete:
			e.Type = core.EventModify
		}
	} else {
		w.order = append(w.order, rel)
	}
	w.pending[rel] = pendingEvent{event: e, due: time.Now().Add(DebounceWindow)}
}

// flush emits settled events in arrival order. It returns false if ctx
// ended while sending.
func (w *watcher) flush(ctx context.Context, now time.Time, out chan<- core.Event) bool {
	remaining := w.order[:0]
	for i, rel := range w.order {
		p, ok := w.pending[rel]
		if !ok {
			continue
		}
		if p.due.After(now) {
			remaining = append(remaining, rel)
			continue
		}
		select {
		case out <- p.event:
			delete(w.pending, rel)
		case <-ctx.Done():
			w.order = append(remaining, w.order[i:]...)
			return false
		}
	}
	w.order = remaining
	return true
}

// reconcile catches up with changes made while Git held its index lock.
func (w *watcher) reconcile(ctx context.Context) {
	events, err := w.repo.Reconcile(ctx)
	if err != nil {
		w.repo.config.Logger.Error("reconcile failed", "error", err)
		if w.repo.config.ErrorHandler != nil {
			w.repo.config.ErrorHandler(fmt.Errorf("reconcile: %w", err))
		}
		return
	}
	for _, e := range events {
		relPath, _ := w.repo.locate(e.ID)
		if e.Type == core.EventDelete {
			delete(w.known, relPath)
		} else {
			w.known[relPath] = true
		}
		if ok, _ := doublestar.Match(w.pattern, e.ID); ok {
			w.enqueue(relPath, e)
		}
	}
}
