package core

import "context"

// Repository defines the contract for storing and retrieving entries.
// Adhering to this interface allows the core to be independent of the
// underlying storage mechanism (Filesystem, Git, embedded KV, etc).
type Repository interface {
	// Save persists an entry. It creates if not exists, or updates if it does.
	Save(ctx context.Context, e Entry) error

	// Get retrieves an entry by its ID. Missing entries yield ErrNotFound.
	Get(ctx context.Context, id string) (Entry, error)

	// List returns all available entries.
	List(ctx context.Context) ([]Entry, error)

	// Delete removes an entry by its ID.
	Delete(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready (e.g., create directories, git init, open database).
	Initialize(ctx context.Context) error
}

// Syncable defines an interface for repositories that support synchronization with a remote.
type Syncable interface {
	// Sync synchronizes the local state with a remote source (e.g. git pull/push).
	Sync(ctx context.Context) error
}

// Indexer is implemented by repositories that keep a listing index and can
// return summaries without parsing every entry.
type Indexer interface {
	Index(ctx context.Context) ([]Summary, error)
}

// KindLister is implemented by repositories that can look up entries of
// one kind without scanning the whole store.
type KindLister interface {
	ListByKind(ctx context.Context, kind Kind) ([]Entry, error)
}

// Watchable is implemented by repositories that can report changes.
type Watchable interface {
	// Watch emits events for entries whose ID matches pattern (doublestar syntax).
	// The channel is closed when ctx is cancelled.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Reconciler is implemented by repositories that can report changes made
// while nothing was watching.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]Event, error)
}

type contextKey string

// ChangeReasonKey is the context key for passing specific change reasons (commit messages) during Save/Delete operations.
const ChangeReasonKey contextKey = "change_reason"

// Transaction defines the contract for a unit of work.
// Changes made within a transaction are atomic and isolated (depending on implementation).
type Transaction interface {
	// Save stages an entry for persistence.
	Save(ctx context.Context, e Entry) error

	// Get retrieves an entry, preferring the staged version if it exists in the transaction.
	Get(ctx context.Context, id string) (Entry, error)

	// List returns all available entries, including staged ones.
	List(ctx context.Context) ([]Entry, error)

	// Delete stages an entry for removal.
	Delete(ctx context.Context, id string) error

	// Commit applies all staged changes atomically.
	Commit(ctx context.Context, changeReason string) error

	// Rollback discards all staged changes.
	Rollback(ctx context.Context) error
}

// Transactional extends Repository to support transactions.
type Transactional interface {
	Repository

	// Begin starts a new transaction.
	Begin(ctx context.Context) (Transaction, error)
}
