// Package fs stores entries as files in a directory tree, optionally
// versioned with Git. Each file is one entry; its path relative to the vault
// root, minus the default extension, is the entry ID.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ortholine/inlay/pkg/core"
	"github.com/ortholine/inlay/pkg/git"
)

// Repository implements core.Repository using the filesystem and Git.
type Repository struct {
	Path        string
	git         *git.Client
	cache       *cache
	config      Config
	serializers map[string]Serializer
	readOnly    bool

	mu            sync.RWMutex
	watcherActive bool
	lastReconcile *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	AutoInit  bool
	Gitless   bool
	MustExist bool
	ReadOnly  bool
	Logger    *slog.Logger
	SystemDir string // defaults to ".inlay"
	// DefaultExt is used for new entries whose ID carries no known extension.
	DefaultExt string
	// Serializers are merged over DefaultSerializers, keyed by extension.
	Serializers map[string]Serializer
	// ErrorHandler receives asynchronous watcher errors.
	ErrorHandler func(error)
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = ".inlay"
	}
	if config.DefaultExt == "" {
		config.DefaultExt = ".md"
	}
	if !strings.HasPrefix(config.DefaultExt, ".") {
		config.DefaultExt = "." + config.DefaultExt
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	serializers := DefaultSerializers()
	for ext, s := range config.Serializers {
		serializers[ext] = s
	}
	if _, ok := serializers[config.DefaultExt]; !ok {
		config.DefaultExt = ".md"
	}

	c := newCache(config.Path, config.SystemDir)
	c.readOnly = config.ReadOnly

	return &Repository{
		Path:        config.Path,
		git:         git.NewClient(config.Path, filepath.Join(config.SystemDir, "git.lock"), config.Logger),
		cache:       c,
		config:      config,
		serializers: serializers,
		readOnly:    config.ReadOnly,
	}
}

// RegisterSerializer adds or replaces the serializer for ext.
func (r *Repository) RegisterSerializer(ext string, s Serializer) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serializers[ext] = s
}

func (r *Repository) serializer(ext string) (Serializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.serializers[ext]
	return s, ok
}

func (r *Repository) extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.serializers))
	for ext := range r.serializers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.readOnly {
		return nil, fmt.Errorf("%w: cannot begin transaction", core.ErrReadOnly)
	}
	return NewTransaction(r), nil
}

// Initialize prepares the vault directory, the Git repository and the
// listing cache.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist || r.readOnly {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", r.Path)
		}
	} else if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	if err := r.cache.Load(); err != nil {
		r.config.Logger.Warn("cache load failed, rebuilding", "error", err)
	}

	if r.config.Gitless || r.readOnly {
		return nil
	}

	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	wasNewRepo := false
	if !r.git.IsRepo() {
		if !r.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", r.Path)
		}
		if err := r.git.Init(); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	mod, err := r.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if mod && wasNewRepo {
		if err := r.git.Add(".gitignore"); err != nil {
			return fmt.Errorf("failed to add .gitignore: %w", err)
		}
		if err := r.git.Commit(fmt.Sprintf("chore: configure %s ignore", r.config.SystemDir)); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore appends the system directory to .gitignore. It reports
// whether the file was modified.
func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	ignoreEntry := r.config.SystemDir + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// Sync synchronizes the repository with its remote.
func (r *Repository) Sync(ctx context.Context) error {
	if r.readOnly {
		return fmt.Errorf("%w: cannot sync", core.ErrReadOnly)
	}
	if r.config.Gitless {
		return fmt.Errorf("cannot sync in gitless mode: %w", core.ErrUnsupported)
	}
	if !r.git.IsRepo() {
		return fmt.Errorf("path is not a git repository: %s", r.Path)
	}

	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	return r.git.Sync()
}

// locate maps an ID to its file. IDs ending in a registered extension name
// the file directly; otherwise an existing file with any registered
// extension wins, falling back to DefaultExt for new entries.
func (r *Repository) locate(id string) (relPath, ext string) {
	if e := filepath.Ext(id); e != "" {
		if _, ok := r.serializer(e); ok {
			return id, e
		}
	}

	candidates := append([]string{r.config.DefaultExt}, r.extensions()...)
	for _, e := range candidates {
		if _, err := os.Stat(filepath.Join(r.Path, filepath.FromSlash(id+e))); err == nil {
			return id + e, e
		}
	}
	return id + r.config.DefaultExt, r.config.DefaultExt
}

// idFor is the inverse of locate for files found on disk.
func (r *Repository) idFor(relPath string) string {
	if ext := filepath.Ext(relPath); ext == r.config.DefaultExt {
		return strings.TrimSuffix(relPath, ext)
	}
	return relPath
}

func changeReason(ctx context.Context, fallback string) string {
	if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
		return val
	}
	return fallback
}

// commit stages add and rm and records one commit. It is a no-op in
// gitless mode.
func (r *Repository) commit(msg string, add, rm []string) error {
	if r.config.Gitless {
		return nil
	}
	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := r.git.Add(add...); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	if err := r.git.Rm(rm...); err != nil {
		return fmt.Errorf("failed to git rm: %w", err)
	}
	if err := r.git.Commit(msg); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

// write serializes e to disk and records it in the cache. It does not commit.
func (r *Repository) write(e core.Entry) (string, error) {
	if err := core.ValidateID(e.ID); err != nil {
		return "", err
	}
	relPath, ext := r.locate(e.ID)
	s, _ := r.serializer(ext)

	data, err := s.Serialize(e)
	if err != nil {
		return "", fmt.Errorf("failed to serialize entry %s: %w", e.ID, err)
	}

	fullPath := filepath.Join(r.Path, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}
	if err := writeFileAtomic(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if info, err := os.Stat(fullPath); err == nil {
		sum := e.Summarize()
		sum.ID = r.idFor(relPath)
		r.cache.Set(relPath, &indexEntry{Summary: sum, LastModified: info.ModTime()})
	}
	return relPath, nil
}

// Save persists an entry to the filesystem and commits it to Git.
func (r *Repository) Save(ctx context.Context, e core.Entry) error {
	if r.readOnly {
		return fmt.Errorf("%w: cannot save %s", core.ErrReadOnly, e.ID)
	}

	relPath, err := r.write(e)
	if err != nil {
		return err
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("cache save failed", "error", err)
	}
	if err := r.commit(changeReason(ctx, "update "+e.ID), []string{relPath}, nil); err != nil {
		return err
	}

	r.config.Logger.Debug("entry written", "id", e.ID, "path", relPath)
	return nil
}

func (r *Repository) read(relPath, ext string) (core.Entry, error) {
	s, ok := r.serializer(ext)
	if !ok {
		return core.Entry{}, fmt.Errorf("no serializer for %q", ext)
	}
	f, err := os.Open(filepath.Join(r.Path, filepath.FromSlash(relPath)))
	if err != nil {
		return core.Entry{}, err
	}
	defer f.Close()

	e, err := s.Parse(f)
	if err != nil {
		return core.Entry{}, fmt.Errorf("failed to parse %s: %w", relPath, err)
	}
	e.ID = r.idFor(relPath)
	return e, nil
}

// Get retrieves an entry from the filesystem.
func (r *Repository) Get(ctx context.Context, id string) (core.Entry, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Entry{}, err
	}
	relPath, ext := r.locate(id)
	e, err := r.read(relPath, ext)
	if errors.Is(err, os.ErrNotExist) {
		return core.Entry{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Entry{}, err
	}
	e.ID = id
	return e, nil
}

// walk visits every entry file under the vault, skipping Git metadata, the
// system directory and in-flight temp files.
func (r *Repository) walk(ctx context.Context, fn func(relPath, ext string, mtime time.Time) error) error {
	return filepath.WalkDir(r.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != r.Path && (d.Name() == ".git" || d.Name() == r.config.SystemDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if isTempFile(d.Name()) {
			return nil
		}
		ext := filepath.Ext(d.Name())
		if _, ok := r.serializer(ext); !ok {
			return nil
		}

		rel, err := filepath.Rel(r.Path, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		return fn(filepath.ToSlash(rel), ext, info.ModTime())
	})
}

// List parses every entry in the vault and refreshes the listing cache.
func (r *Repository) List(ctx context.Context) ([]core.Entry, error) {
	var entries []core.Entry
	seen := make(map[string]bool)

	err := r.walk(ctx, func(relPath, ext string, mtime time.Time) error {
		seen[relPath] = true
		e, err := r.read(relPath, ext)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable entry", "path", relPath, "error", err)
			return nil
		}
		r.cache.Set(relPath, &indexEntry{Summary: e.Summarize(), LastModified: mtime})
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Prune(seen)
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("cache save failed", "error", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Index returns listing summaries, parsing only files whose modification
// time differs from the cached one.
func (r *Repository) Index(ctx context.Context) ([]core.Summary, error) {
	var sums []core.Summary
	seen := make(map[string]bool)
	hits := 0

	err := r.walk(ctx, func(relPath, ext string, mtime time.Time) error {
		seen[relPath] = true
		if cached, ok := r.cache.Get(relPath, mtime); ok {
			hits++
			sums = append(sums, cached.Summary)
			return nil
		}
		e, err := r.read(relPath, ext)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable entry", "path", relPath, "error", err)
			return nil
		}
		sum := e.Summarize()
		r.cache.Set(relPath, &indexEntry{Summary: sum, LastModified: mtime})
		sums = append(sums, sum)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Prune(seen)
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("cache save failed", "error", err)
	}
	r.config.Logger.Debug("index built", "entries", len(sums), "cache_hits", hits)

	sort.Slice(sums, func(i, j int) bool { return sums[i].ID < sums[j].ID })
	return sums, nil
}

// Delete removes an entry.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.readOnly {
		return fmt.Errorf("%w: cannot delete %s", core.ErrReadOnly, id)
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}

	relPath, _ := r.locate(id)
	fullPath := filepath.Join(r.Path, filepath.FromSlash(relPath))
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	r.cache.Delete(relPath)
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("cache save failed", "error", err)
	}

	return r.commit(changeReason(ctx, "delete "+id), nil, []string{relPath})
}

// Reconcile compares the vault with the listing cache and returns the
// changes made while nothing was watching. The cache is updated to match.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	var events []core.Event
	seen := make(map[string]bool)
	now := time.Now().Unix()

	err := r.walk(ctx, func(relPath, ext string, mtime time.Time) error {
		seen[relPath] = true
		cached, known := r.cache.Lookup(relPath)
		if known && cached.LastModified.Equal(mtime) {
			return nil
		}
		e, err := r.read(relPath, ext)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable entry", "path", relPath, "error", err)
			return nil
		}
		r.cache.Set(relPath, &indexEntry{Summary: e.Summarize(), LastModified: mtime})

		typ := core.EventModify
		if !known {
			typ = core.EventCreate
		}
		events = append(events, core.Event{Type: typ, ID: e.ID, Timestamp: now})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, relPath := range r.cache.Paths() {
		if seen[relPath] {
			continue
		}
		if cached, ok := r.cache.Lookup(relPath); ok {
			events = append(events, core.Event{Type: core.EventDelete, ID: cached.Summary.ID, Timestamp: now})
		}
		r.cache.Delete(relPath)
	}

	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("cache save failed", "error", err)
	}
	r.recordReconcile()

	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

// IsGitInstalled checks if git is available in the system path.
func IsGitInstalled() bool {
	return git.IsInstalled()
}
