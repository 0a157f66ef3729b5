package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/ortholine/inlay/pkg/blocks"
)

// DefaultEventBuffer is the capacity of the channel returned by Service.Watch.
const DefaultEventBuffer = 100

// Service handles the business logic for entries.
type Service struct {
	repo            Repository
	renderer        *blocks.Renderer
	richImport      bool
	logger          *slog.Logger
	now             func() time.Time
	eventBufferSize int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRenderer sets the renderer used to produce Entry.HTML on save.
func WithRenderer(r *blocks.Renderer) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithRichImport makes HTML imports and editor bootstrapping use the
// structure-aware parser instead of the paragraph splitter.
func WithRichImport(enabled bool) ServiceOption {
	return func(s *Service) {
		s.richImport = enabled
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventBuffer sets the capacity of watch channels.
func WithEventBuffer(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.eventBufferSize = size
		}
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:            repo,
		renderer:        blocks.NewRenderer(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
		eventBufferSize: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Renderer returns the renderer the service saves with.
func (s *Service) Renderer() *blocks.Renderer {
	return s.renderer
}

// Repository returns the underlying repository.
func (s *Service) Repository() Repository {
	return s.repo
}

// ValidateID rejects IDs that would escape the store root or are not in
// canonical slash-separated form.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.Contains(id, `\`) || strings.HasPrefix(id, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	clean := path.Clean(id)
	if clean != id || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// prepare applies the save rules to e: identity, defaults and the
// rendered HTML.
func (s *Service) prepare(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if err := ValidateID(e.ID); err != nil {
		return Entry{}, err
	}

	if e.Kind == "" {
		e.Kind = KindPage
	}
	if !e.Kind.Valid() {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind)
	}
	if e.Status == "" {
		e.Status = StatusDraft
	}
	if e.Slug == "" {
		e.Slug = blocks.Slug(e.Title)
	}
	e.UpdatedAt = s.now().UTC()

	if e.Body.Blocks == nil {
		e.Body.Blocks = []blocks.Block{}
	}
	if !e.Body.IsEmpty() {
		if e.Body.Version == "" {
			e.Body.Version = blocks.DefaultVersion
		}
		if e.Body.Time == 0 {
			e.Body.Time = e.UpdatedAt.UnixMilli()
		}
		e.HTML = s.renderer.Render(e.Body)
	}
	return e, nil
}

// SaveEntry validates e, renders its block document to HTML and stores it.
// An empty ID is replaced by a random UUID. The stored entry is returned.
func (s *Service) SaveEntry(ctx context.Context, e Entry) (Entry, error) {
	prepared, err := s.prepare(e)
	if err != nil {
		return Entry{}, err
	}
	if err := s.repo.Save(ctx, prepared); err != nil {
		return Entry{}, err
	}
	s.logger.Debug("entry saved", "id", prepared.ID, "kind", prepared.Kind, "blocks", len(prepared.Body.Blocks))
	return prepared, nil
}

// GetEntry retrieves an entry.
func (s *Service) GetEntry(ctx context.Context, id string) (Entry, error) {
	if id == "" {
		return Entry{}, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	return s.repo.Get(ctx, id)
}

// Filter narrows entry listings. Zero values match everything.
type Filter struct {
	Kind    Kind
	Tag     string
	Status  Status
	Pattern string // doublestar glob matched against the ID
	Offset  int
	Limit   int
}

func (f Filter) validate() error {
	if f.Kind != "" && !f.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, f.Kind)
	}
	if f.Pattern != "" && !doublestar.ValidatePattern(f.Pattern) {
		return fmt.Errorf("invalid pattern %q: %w", f.Pattern, doublestar.ErrBadPattern)
	}
	return nil
}

// Match reports whether the summary passes the filter (ignoring paging).
func (f Filter) Match(sum Summary) bool {
	if f.Kind != "" && sum.Kind != f.Kind {
		return false
	}
	if f.Status != "" && sum.Status != f.Status {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range sum.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Pattern != "" {
		ok, err := doublestar.Match(f.Pattern, sum.ID)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ListEntries returns the entries matching f, most recently updated first.
func (s *Service) ListEntries(ctx context.Context, f Filter) ([]Entry, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	var all []Entry
	var err error
	if kl, ok := s.repo.(KindLister); ok && f.Kind != "" {
		all, err = kl.ListByKind(ctx, f.Kind)
	} else {
		all, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if f.Match(e.Summarize()) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Offset, f.Limit), nil
}

// ListSummaries is ListEntries for listings. Repositories implementing
// Indexer answer it without loading entry bodies.
func (s *Service) ListSummaries(ctx context.Context, f Filter) ([]Summary, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	var all []Summary
	if idx, ok := s.repo.(Indexer); ok {
		sums, err := idx.Index(ctx)
		if err != nil {
			return nil, err
		}
		all = sums
	} else {
		entries, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			all = append(all, e.Summarize())
		}
	}

	out := make([]Summary, 0, len(all))
	for _, sum := range all {
		if f.Match(sum) {
			out = append(out, sum)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Offset, f.Limit), nil
}

// DeleteEntry removes an entry.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("entry deleted", "id", id)
	return nil
}

// importHTML converts stored or pasted HTML into a block document.
func (s *Service) importHTML(src string) blocks.Document {
	if s.richImport {
		doc, err := blocks.ParseHTML(src)
		if err == nil {
			return doc
		}
		s.logger.Warn("structured html import failed, splitting paragraphs", "error", err)
	}
	return blocks.FromHTML(src)
}

// EditorDocument returns the block document to load into the editor for id.
// Entries that only carry HTML are bootstrapped from it.
func (s *Service) EditorDocument(ctx context.Context, id string) (blocks.Document, error) {
	e, err := s.GetEntry(ctx, id)
	if err != nil {
		return blocks.Document{}, err
	}
	if !e.Body.IsEmpty() {
		return e.Body, nil
	}
	return s.importHTML(e.HTML), nil
}

// ImportHTML replaces the body of entry id with blocks converted from src,
// creating the entry if it does not exist. A new entry without a title takes
// the first heading of the imported document.
func (s *Service) ImportHTML(ctx context.Context, id, src string) (Entry, error) {
	e := Entry{ID: id, Kind: KindPage}
	if id != "" {
		existing, err := s.repo.Get(ctx, id)
		switch {
		case err == nil:
			e = existing
		case errors.Is(err, ErrNotFound):
		default:
			return Entry{}, err
		}
	}

	e.Body = s.importHTML(src)
	if e.Title == "" {
		if hs := blocks.Outline(e.Body); len(hs) > 0 {
			e.Title = hs[0].Text
		}
	}
	return s.SaveEntry(ctx, e)
}

// Sync synchronizes the repository with its remote if supported.
func (s *Service) Sync(ctx context.Context) error {
	sy, ok := s.repo.(Syncable)
	if !ok {
		return fmt.Errorf("repository does not support sync: %w", ErrUnsupported)
	}
	return sy.Sync(ctx)
}

// Reconcile reports offline changes if the repository supports it.
func (s *Service) Reconcile(ctx context.Context) ([]Event, error) {
	rc, ok := s.repo.(Reconciler)
	if !ok {
		return nil, fmt.Errorf("repository does not support reconcile: %w", ErrUnsupported)
	}
	return rc.Reconcile(ctx)
}

// serviceTx applies the save rules to entries staged in a transaction.
type serviceTx struct {
	Transaction
	s *Service
}

func (t *serviceTx) Save(ctx context.Context, e Entry) error {
	prepared, err := t.s.prepare(e)
	if err != nil {
		return err
	}
	return t.Transaction.Save(ctx, prepared)
}

// WithTransaction executes a function within a transaction.
func (s *Service) WithTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	msg := "batch transaction"
	if val, ok := ctx.Value(ChangeReasonKey).(string); ok && val != "" {
		msg = val
	}
	return tx.Commit(ctx, msg)
}

// Begin initiates a transaction manually.
func (s *Service) Begin(ctx context.Context) (Transaction, error) {
	tr, ok := s.repo.(Transactional)
	if !ok {
		return nil, fmt.Errorf("repository does not support transactions: %w", ErrUnsupported)
	}
	tx, err := tr.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &serviceTx{Transaction: tx, s: s}, nil
}

// Watch observes changes in the repository if supported. Events are relayed
// through a buffered channel; when the consumer falls behind, events are
// dropped and logged instead of stalling the repository watcher.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, fmt.Errorf("repository does not support watching: %w", ErrUnsupported)
	}
	in, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, s.eventBufferSize)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-in:
				if !ok {
					return nil
				}
				select {
				case out <- e:
				default:
					s.logger.Warn("event buffer full, dropping event", "event", e.String())
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("event relay failed", "error", err)
	}))
	return out, nil
}

// Close releases the repository if it holds resources.
func (s *Service) Close() error {
	if c, ok := s.repo.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
