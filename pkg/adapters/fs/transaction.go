package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ortholine/inlay/pkg/core"
)

// ErrTransactionClosed is returned by operations on a committed or rolled
// back transaction.
var ErrTransactionClosed = errors.New("transaction closed")

// Transaction implements core.Transaction for the filesystem. Writes are
// staged in memory and applied on Commit with a single Git commit.
type Transaction struct {
	repo    *Repository
	staged  map[string]core.Entry
	deleted map[string]bool
	mu      sync.Mutex
	closed  bool
}

// NewTransaction creates a new transaction.
func NewTransaction(repo *Repository) *Transaction {
	return &Transaction{
		repo:    repo,
		staged:  make(map[string]core.Entry),
		deleted: make(map[string]bool),
	}
}

// Save stages an entry.
func (t *Transaction) Save(ctx context.Context, e core.Entry) error {
	if err := core.ValidateID(e.ID); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.staged[e.ID] = e
	delete(t.deleted, e.ID)
	return nil
}

// Get retrieves an entry, favoring staged changes.
func (t *Transaction) Get(ctx context.Context, id string) (core.Entry, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return core.Entry{}, ErrTransactionClosed
	}
	if t.deleted[id] {
		t.mu.Unlock()
		return core.Entry{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if e, ok := t.staged[id]; ok {
		t.mu.Unlock()
		return e, nil
	}
	t.mu.Unlock()

	return t.repo.Get(ctx, id)
}

// List returns committed entries overlaid with staged changes.
func (t *Transaction) List(ctx context.Context) ([]core.Entry, error) {
	base, err := t.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransactionClosed
	}

	byID := make(map[string]core.Entry, len(base)+len(t.staged))
	for _, e := range base {
		if !t.deleted[e.ID] {
			byID[e.ID] = e
		}
	}
	for id, e := range t.staged {
		byID[id] = e
	}

	out := make([]core.Entry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete stages an entry for removal.
func (t *Transaction) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.deleted[id] = true
	delete(t.staged, id)
	return nil
}

// Commit applies all staged changes and records them in one Git commit.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransactionClosed
	}
	if t.repo.readOnly {
		return fmt.Errorf("%w: cannot commit transaction", core.ErrReadOnly)
	}

	ids := make([]string, 0, len(t.staged))
	for id := range t.staged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var added, removed []string
	for _, id := range ids {
		relPath, err := t.repo.write(t.staged[id])
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", id, err)
		}
		added = append(added, relPath)
	}

	for id := range t.deleted {
		relPath, _ := t.repo.locate(id)
		err := os.Remove(filepath.Join(t.repo.Path, filepath.FromSlash(relPath)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", id, err)
		}
		t.repo.cache.Delete(relPath)
		removed = append(removed, relPath)
	}

	if err := t.repo.cache.Save(); err != nil {
		t.repo.config.Logger.Warn("cache save failed", "error", err)
	}

	msg := changeReason
	if msg == "" {
		msg = "batch transaction update"
	}
	if err := t.repo.commit(msg, added, removed); err != nil {
		return err
	}

	t.repo.config.Logger.Debug("transaction committed", "saved", len(added), "deleted", len(removed))
	t.closed = true
	return nil
}

// Rollback discards all staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.staged = nil
	t.deleted = nil
	t.closed = true
	return nil
}
