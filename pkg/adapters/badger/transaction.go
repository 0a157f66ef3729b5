package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ortholine/inlay/pkg/core"
)

// ErrTransactionClosed is returned by operations on a committed or rolled
// back transaction.
var ErrTransactionClosed = errors.New("transaction closed")

// Transaction wraps one read-write Badger transaction. Reads observe the
// transaction's own pending writes.
type Transaction struct {
	store  *Store
	txn    *badger.Txn
	mu     sync.Mutex
	closed bool
}

// Begin starts a read-write transaction.
func (s *Store) Begin(ctx context.Context) (core.Transaction, error) {
	if s.config.ReadOnly {
		return nil, fmt.Errorf("%w: cannot begin transaction", core.ErrReadOnly)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	return &Transaction{store: s, txn: s.store.Badger().NewTransaction(true)}, nil
}

func (t *Transaction) lock() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransactionClosed
	}
	return nil
}

func (t *Transaction) Save(ctx context.Context, e core.Entry) error {
	if err := core.ValidateID(e.ID); err != nil {
		return err
	}
	rec, err := toRecord(e)
	if err != nil {
		return err
	}
	if err := t.lock(); err != nil {
		return err
	}
	defer t.mu.Unlock()
	if err := t.store.store.TxUpsert(t.txn, e.ID, rec); err != nil {
		return fmt.Errorf("failed to stage entry %s: %w", e.ID, err)
	}
	return nil
}

func (t *Transaction) Get(ctx context.Context, id string) (core.Entry, error) {
	if err := t.lock(); err != nil {
		return core.Entry{}, err
	}
	defer t.mu.Unlock()
	var rec record
	if err := t.store.store.TxGet(t.txn, id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return core.Entry{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		return core.Entry{}, err
	}
	return rec.entry()
}

func (t *Transaction) List(ctx context.Context) ([]core.Entry, error) {
	if err := t.lock(); err != nil {
		return nil, err
	}
	defer t.mu.Unlock()
	var recs []record
	if err := t.store.store.TxFind(t.txn, &recs, nil); err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return entries(recs)
}

func (t *Transaction) Delete(ctx context.Context, id string) error {
	if err := t.lock(); err != nil {
		return err
	}
	defer t.mu.Unlock()
	if err := t.store.store.TxDelete(t.txn, id, &record{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		return fmt.Errorf("failed to stage delete %s: %w", id, err)
	}
	return nil
}

// Commit applies the staged writes. The change reason is only logged since
// Badger keeps no history.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	if err := t.lock(); err != nil {
		return err
	}
	defer t.mu.Unlock()
	t.closed = true
	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.store.config.Logger.Debug("transaction committed", "reason", changeReason)
	return nil
}

func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.txn.Discard()
	return nil
}
