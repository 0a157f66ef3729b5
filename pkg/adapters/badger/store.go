// Package badger stores entries in an embedded Badger database through
// badgerhold. It trades the fs adapter's readable files and Git history for
// indexed queries and transactional batches.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/ortholine/inlay/pkg/core"
)

// Config holds the configuration for the Badger store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	ReadOnly bool
	Logger   *slog.Logger
}

// record is the persisted form of an entry. Listing fields are kept as
// plain columns so they can be queried and indexed; the full entry lives in
// Payload.
type record struct {
	ID        string
	Kind      string `badgerhold:"index"`
	Status    string `badgerhold:"index"`
	Title     string
	Slug      string
	Tags      []string
	UpdatedAt time.Time
	Payload   []byte
}

func toRecord(e core.Entry) (record, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return record{}, fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
	}
	return record{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Status:    string(e.Status),
		Title:     e.Title,
		Slug:      e.Slug,
		Tags:      e.Tags,
		UpdatedAt: e.UpdatedAt,
		Payload:   payload,
	}, nil
}

func (r record) entry() (core.Entry, error) {
	var e core.Entry
	if err := json.Unmarshal(r.Payload, &e); err != nil {
		return core.Entry{}, fmt.Errorf("failed to decode entry %s: %w", r.ID, err)
	}
	e.ID = r.ID
	return e, nil
}

func (r record) summary() core.Summary {
	return core.Summary{
		ID:        r.ID,
		Kind:      core.Kind(r.Kind),
		Title:     r.Title,
		Slug:      r.Slug,
		Tags:      r.Tags,
		Status:    core.Status(r.Status),
		UpdatedAt: r.UpdatedAt,
	}
}

// Store implements core.Repository on top of badgerhold.
type Store struct {
	config Config
	store  *badgerhold.Store
}

// NewStore creates a store. The database is opened by Initialize.
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{config: config}
}

// Initialize opens the database, creating its directory if needed.
func (s *Store) Initialize(ctx context.Context) error {
	if s.store != nil {
		return nil
	}

	options := badgerhold.DefaultOptions
	options.Logger = nil
	options.ReadOnly = s.config.ReadOnly
	if s.config.InMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if s.config.Path == "" {
			return errors.New("badger store requires a path")
		}
		if !s.config.ReadOnly {
			if err := os.MkdirAll(s.config.Path, 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		options.Dir = s.config.Path
		options.ValueDir = s.config.Path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}
	s.store = store
	s.config.Logger.Debug("badger store opened", "path", s.config.Path, "in_memory", s.config.InMemory)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

func (s *Store) ready() error {
	if s.store == nil {
		return errors.New("badger store is not initialized")
	}
	return nil
}

// Save upserts an entry.
func (s *Store) Save(ctx context.Context, e core.Entry) error {
	if s.config.ReadOnly {
		return fmt.Errorf("%w: cannot save %s", core.ErrReadOnly, e.ID)
	}
	if err := core.ValidateID(e.ID); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	rec, err := toRecord(e)
	if err != nil {
		return err
	}
	if err := s.store.Upsert(e.ID, rec); err != nil {
		return fmt.Errorf("failed to save entry %s: %w", e.ID, err)
	}
	s.config.Logger.Debug("entry written", "id", e.ID)
	return nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(ctx context.Context, id string) (core.Entry, error) {
	if err := s.ready(); err != nil {
		return core.Entry{}, err
	}
	var rec record
	if err := s.store.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return core.Entry{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		return core.Entry{}, fmt.Errorf("failed to get entry %s: %w", id, err)
	}
	return rec.entry()
}

func (s *Store) find(query *badgerhold.Query) ([]record, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var recs []record
	if err := s.store.Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

func entries(recs []record) ([]core.Entry, error) {
	out := make([]core.Entry, 0, len(recs))
	for _, rec := range recs {
		e, err := rec.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// List returns every entry ordered by ID.
func (s *Store) List(ctx context.Context) ([]core.Entry, error) {
	recs, err := s.find(nil)
	if err != nil {
		return nil, err
	}
	return entries(recs)
}

// ListByKind returns the entries of one kind using the Kind index.
func (s *Store) ListByKind(ctx context.Context, kind core.Kind) ([]core.Entry, error) {
	recs, err := s.find(badgerhold.Where("Kind").Eq(string(kind)).Index("Kind"))
	if err != nil {
		return nil, err
	}
	return entries(recs)
}

// Index implements core.Indexer from the record columns, without decoding
// payloads.
func (s *Store) Index(ctx context.Context) ([]core.Summary, error) {
	recs, err := s.find(nil)
	if err != nil {
		return nil, err
	}
	sums := make([]core.Summary, 0, len(recs))
	for _, rec := range recs {
		sums = append(sums, rec.summary())
	}
	return sums, nil
}

// Delete removes an entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.config.ReadOnly {
		return fmt.Errorf("%w: cannot delete %s", core.ErrReadOnly, id)
	}
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.Delete(id, &record{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.store.Count(&record{}, nil)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var (
	_ core.Repository    = (*Store)(nil)
	_ core.Indexer       = (*Store)(nil)
	_ core.Transactional = (*Store)(nil)
	_ core.KindLister    = (*Store)(nil)
)
