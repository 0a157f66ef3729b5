// Package typed gives entries a typed view of their metadata. Courses,
// e-books and case studies each carry their own fields (price, duration,
// client...) in Entry.Metadata; EntryModel[T] decodes them into T.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ortholine/inlay/pkg/core"
)

// EntryModel is an entry whose metadata is decoded into Data.
// Entry.Metadata is ignored on save; Data replaces it.
type EntryModel[T any] struct {
	core.Entry
	Data  T
	Saver Saver[T] `json:"-"`
}

// Saver persists a model. Repository, Service and Transaction implement it.
type Saver[T any] interface {
	Save(ctx context.Context, m *EntryModel[T]) error
}

// Save persists the model using the saver it was loaded or saved through.
func (m *EntryModel[T]) Save(ctx context.Context) error {
	if m.Saver == nil {
		return fmt.Errorf("entry %s is detached (missing Saver)", m.ID)
	}
	return m.Saver.Save(ctx, m)
}

func toCore[T any](m *EntryModel[T]) (core.Entry, error) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return core.Entry{}, fmt.Errorf("failed to marshal typed data: %w", err)
	}
	var meta core.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return core.Entry{}, fmt.Errorf("typed data must encode as an object: %w", err)
	}
	e := m.Entry
	e.Metadata = meta
	return e, nil
}

func fromCore[T any](e core.Entry, saver Saver[T]) (*EntryModel[T], error) {
	data, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("metadata marshal failed: %w", err)
	}
	var v T
	if e.Metadata != nil {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal metadata of %s failed: %w", e.ID, err)
		}
	}
	return &EntryModel[T]{Entry: e, Data: v, Saver: saver}, nil
}

// Repository wraps a core.Repository. It stores entries as given, without
// the Service's save rules.
type Repository[T any] struct {
	repo core.Repository
}

// NewRepository creates a typed wrapper around repo.
func NewRepository[T any](repo core.Repository) *Repository[T] {
	return &Repository[T]{repo: repo}
}

func (r *Repository[T]) Save(ctx context.Context, m *EntryModel[T]) error {
	e, err := toCore(m)
	if err != nil {
		return err
	}
	if m.Saver == nil {
		m.Saver = r
	}
	return r.repo.Save(ctx, e)
}

func (r *Repository[T]) Get(ctx context.Context, id string) (*EntryModel[T], error) {
	e, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromCore(e, Saver[T](r))
}

// List returns every entry, decoded.
func (r *Repository[T]) List(ctx context.Context) ([]*EntryModel[T], error) {
	all, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return convert(all, Saver[T](r))
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}

func convert[T any](entries []core.Entry, saver Saver[T]) ([]*EntryModel[T], error) {
	out := make([]*EntryModel[T], 0, len(entries))
	for _, e := range entries {
		m, err := fromCore(e, saver)
		if err != nil {
			return nil, fmt.Errorf("failed to process entry %s: %w", e.ID, err)
		}
		out = append(out, m)
	}
	return out, nil
}
