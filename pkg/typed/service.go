package typed

import (
	"context"

	"github.com/ortholine/inlay/pkg/core"
)

// Service wraps a core.Service, so typed saves go through the same rules
// as untyped ones (ID assignment, defaults, rendering).
type Service[T any] struct {
	svc *core.Service
}

// NewService creates a typed service wrapper.
func NewService[T any](svc *core.Service) *Service[T] {
	return &Service[T]{svc: svc}
}

// Save stores the model and refreshes it with the stored entry, including
// the assigned ID and rendered HTML.
func (s *Service[T]) Save(ctx context.Context, m *EntryModel[T]) error {
	e, err := toCore(m)
	if err != nil {
		return err
	}
	saved, err := s.svc.SaveEntry(ctx, e)
	if err != nil {
		return err
	}
	saved.Metadata = e.Metadata
	m.Entry = saved
	if m.Saver == nil {
		m.Saver = s
	}
	return nil
}

func (s *Service[T]) Get(ctx context.Context, id string) (*EntryModel[T], error) {
	e, err := s.svc.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromCore(e, Saver[T](s))
}

// List returns the entries matching f, decoded.
func (s *Service[T]) List(ctx context.Context, f core.Filter) ([]*EntryModel[T], error) {
	all, err := s.svc.ListEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	return convert(all, Saver[T](s))
}

func (s *Service[T]) Delete(ctx context.Context, id string) error {
	return s.svc.DeleteEntry(ctx, id)
}

// Watch observes changes in the repository.
func (s *Service[T]) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	return s.svc.Watch(ctx, pattern)
}

// WithTransaction runs fn in a service transaction.
func (s *Service[T]) WithTransaction(ctx context.Context, fn func(tx *Transaction[T]) error) error {
	return s.svc.WithTransaction(ctx, func(coreTx core.Transaction) error {
		return fn(&Transaction[T]{tx: coreTx})
	})
}

// Transaction wraps a core.Transaction for typed operations.
type Transaction[T any] struct {
	tx core.Transaction
}

func (t *Transaction[T]) Save(ctx context.Context, m *EntryModel[T]) error {
	e, err := toCore(m)
	if err != nil {
		return err
	}
	if m.Saver == nil {
		m.Saver = t
	}
	return t.tx.Save(ctx, e)
}

func (t *Transaction[T]) Get(ctx context.Context, id string) (*EntryModel[T], error) {
	e, err := t.tx.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromCore(e, Saver[T](t))
}

func (t *Transaction[T]) Delete(ctx context.Context, id string) error {
	return t.tx.Delete(ctx, id)
}
