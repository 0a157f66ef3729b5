package core_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ortholine/inlay/pkg/blocks"
	"github.com/ortholine/inlay/pkg/core"
)

// MockRepository implements core.Repository in memory.
// It deliberately does NOT implement core.Transactional to test fallback/errors.
type MockRepository struct {
	mu      sync.Mutex
	entries map[string]core.Entry
}

func NewMockRepository() *MockRepository {
	return &MockRepository{entries: make(map[string]core.Entry)}
}

func (m *MockRepository) Save(ctx context.Context, e core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *MockRepository) Get(ctx context.Context, id string) (core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return core.Entry{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return e, nil
}

func (m *MockRepository) List(ctx context.Context) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Entry
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *MockRepository) Initialize(ctx context.Context) error { return nil }

// txRepository adds staged transactions and a manual event feed.
type txRepository struct {
	*MockRepository
	events chan core.Event
}

type mockTx struct {
	repo      *txRepository
	staged    []core.Entry
	committed bool
}

func (r *txRepository) Begin(ctx context.Context) (core.Transaction, error) {
	return &mockTx{repo: r}, nil
}

func (r *txRepository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	return r.events, nil
}

func (t *mockTx) Save(ctx context.Context, e core.Entry) error {
	t.staged = append(t.staged, e)
	return nil
}
func (t *mockTx) Get(ctx context.Context, id string) (core.Entry, error) {
	return t.repo.Get(ctx, id)
}
func (t *mockTx) List(ctx context.Context) ([]core.Entry, error) { return t.repo.List(ctx) }
func (t *mockTx) Delete(ctx context.Context, id string) error   { return nil }
func (t *mockTx) Commit(ctx context.Context, reason string) error {
	for _, e := range t.staged {
		if err := t.repo.Save(ctx, e); err != nil {
			return err
		}
	}
	t.committed = true
	return nil
}
func (t *mockTx) Rollback(ctx context.Context) error {
	t.staged = nil
	return nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(repo core.Repository, opts ...core.ServiceOption) *core.Service {
	opts = append([]core.ServiceOption{core.WithClock(func() time.Time { return fixedNow })}, opts...)
	return core.NewService(repo, opts...)
}

func body(bs ...blocks.Block) blocks.Document {
	d := blocks.New()
	d.Blocks = bs
	return d
}

func TestService_CRUD(t *testing.T) {
	repo := NewMockRepository()
	service := newService(repo)
	ctx := context.TODO()

	saved, err := service.SaveEntry(ctx, core.Entry{
		ID:    "blog/aligners",
		Kind:  core.KindBlog,
		Title: "Clear Aligners 101",
		Body:  body(blocks.NewParagraph("a", "Hello")),
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello</p>", saved.HTML)
	assert.Equal(t, "clear-aligners-101", saved.Slug)
	assert.Equal(t, core.StatusDraft, saved.Status)
	assert.Equal(t, fixedNow, saved.UpdatedAt)

	got, err := service.GetEntry(ctx, "blog/aligners")
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	_, err = service.SaveEntry(ctx, core.Entry{ID: "pages/about", Title: "About"})
	require.NoError(t, err)

	entries, err := service.ListEntries(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, service.DeleteEntry(ctx, "blog/aligners"))
	_, err = service.GetEntry(ctx, "blog/aligners")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_SaveEntry_Validation(t *testing.T) {
	service := newService(NewMockRepository())
	ctx := context.Background()

	_, err := service.SaveEntry(ctx, core.Entry{ID: "x", Kind: "podcast"})
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	for _, id := range []string{"../escape", "/abs", "a//b", `a\b`, "a/./b", "."} {
		_, err := service.SaveEntry(ctx, core.Entry{ID: id})
		assert.ErrorIs(t, err, core.ErrInvalidID, id)
	}

	e, err := service.SaveEntry(ctx, core.Entry{Title: "No ID"})
	require.NoError(t, err)
	assert.Len(t, e.ID, 36)
	assert.Equal(t, core.KindPage, e.Kind)

	_, err = service.GetEntry(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidID)
	assert.ErrorIs(t, service.DeleteEntry(ctx, ""), core.ErrInvalidID)
}

func TestService_SaveEntry_KeepsLegacyHTML(t *testing.T) {
	service := newService(NewMockRepository())

	e, err := service.SaveEntry(context.Background(), core.Entry{ID: "old", HTML: "<p>legacy</p>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>legacy</p>", e.HTML)
	assert.NotNil(t, e.Body.Blocks)
	assert.Empty(t, e.Body.Blocks)
}

func TestService_SaveEntry_Escaping(t *testing.T) {
	service := newService(NewMockRepository(), core.WithRenderer(blocks.NewRenderer(blocks.WithEscaping(true))))

	e, err := service.SaveEntry(context.Background(), core.Entry{
		ID:   "x",
		Body: body(blocks.NewParagraph("", "<b>x</b>")),
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>&lt;b&gt;x&lt;/b&gt;</p>", e.HTML)
}

func TestService_ListEntries_Filter(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()
	seed := []core.Entry{
		{ID: "blog/a", Kind: core.KindBlog, Tags: []string{"ortho"}, Status: core.StatusPublished},
		{ID: "blog/b", Kind: core.KindBlog, Tags: []string{"news"}},
		{ID: "ebooks/c", Kind: core.KindEbook, Tags: []string{"ortho"}},
	}
	for i, e := range seed {
		ts := fixedNow.Add(time.Duration(i) * time.Hour)
		_, err := core.NewService(repo, core.WithClock(func() time.Time { return ts })).SaveEntry(ctx, e)
		require.NoError(t, err)
	}
	service := newService(repo)

	ids := func(es []core.Entry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter core.Filter
		want   []string
	}{
		{"all, newest first", core.Filter{}, []string{"ebooks/c", "blog/b", "blog/a"}},
		{"kind", core.Filter{Kind: core.KindBlog}, []string{"blog/b", "blog/a"}},
		{"tag", core.Filter{Tag: "ortho"}, []string{"ebooks/c", "blog/a"}},
		{"status", core.Filter{Status: core.StatusPublished}, []string{"blog/a"}},
		{"pattern", core.Filter{Pattern: "blog/**"}, []string{"blog/b", "blog/a"}},
		{"paging", core.Filter{Offset: 1, Limit: 1}, []string{"blog/b"}},
		{"offset past end", core.Filter{Offset: 5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.ListEntries(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))

			sums, err := service.ListSummaries(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, sums, len(tt.want))
		})
	}

	_, err := service.ListEntries(ctx, core.Filter{Kind: "nope"})
	assert.ErrorIs(t, err, core.ErrInvalidKind)
	_, err = service.ListEntries(ctx, core.Filter{Pattern: "[a"})
	assert.Error(t, err)
}

// kindRepository answers kind queries itself and records that it did.
type kindRepository struct {
	*MockRepository
	kinds []core.Kind
}

func (r *kindRepository) ListByKind(ctx context.Context, kind core.Kind) ([]core.Entry, error) {
	r.kinds = append(r.kinds, kind)
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Entry
	for _, e := range all {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestService_ListEntries_UsesKindLister(t *testing.T) {
	repo := &kindRepository{MockRepository: NewMockRepository()}
	service := newService(repo)
	ctx := context.Background()

	for _, e := range []core.Entry{
		{ID: "courses/a", Kind: core.KindCourse, Tags: []string{"go"}},
		{ID: "courses/b", Kind: core.KindCourse},
		{ID: "blog/c", Kind: core.KindBlog, Tags: []string{"go"}},
	} {
		_, err := service.SaveEntry(ctx, e)
		require.NoError(t, err)
	}

	got, err := service.ListEntries(ctx, core.Filter{Kind: core.KindCourse, Tag: "go"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "courses/a", got[0].ID)
	assert.Equal(t, []core.Kind{core.KindCourse}, repo.kinds)

	_, err = service.ListEntries(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, repo.kinds, 1, "unfiltered listings scan the store")
}

func TestService_EditorDocument(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()
	service := newService(repo)

	_, err := service.SaveEntry(ctx, core.Entry{ID: "legacy", HTML: "<p>One</p><p>Two</p>"})
	require.NoError(t, err)

	doc, err := service.EditorDocument(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "block_1", doc.Blocks[0].ID)
	assert.Equal(t, blocks.Paragraph{Text: "One"}, doc.Blocks[0].Data)

	stored := body(blocks.Block{ID: "h", Type: blocks.TypeHeader, Data: blocks.Header{Level: 2, Text: "Kept"}})
	_, err = service.SaveEntry(ctx, core.Entry{ID: "modern", Body: stored})
	require.NoError(t, err)
	doc, err = service.EditorDocument(ctx, "modern")
	require.NoError(t, err)
	assert.Equal(t, stored.Blocks, doc.Blocks)

	_, err = service.EditorDocument(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_EditorDocument_RichImport(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()
	service := newService(repo, core.WithRichImport(true))

	_, err := service.SaveEntry(ctx, core.Entry{ID: "legacy", HTML: "<h2>Title</h2><ul><li>a</li></ul>"})
	require.NoError(t, err)

	doc, err := service.EditorDocument(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, blocks.Header{Level: 2, Text: "Title"}, doc.Blocks[0].Data)
	assert.Equal(t, blocks.List{Style: "unordered", Items: []string{"a"}}, doc.Blocks[1].Data)
}

func TestService_ImportHTML(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()
	service := newService(repo, core.WithRichImport(true))

	e, err := service.ImportHTML(ctx, "pages/faq", "<h1>FAQ</h1><p>Answer</p>")
	require.NoError(t, err)
	assert.Equal(t, "FAQ", e.Title)
	assert.Equal(t, "faq", e.Slug)
	assert.Equal(t, "<h1>FAQ</h1><p>Answer</p>", e.HTML)

	e.Title = "Questions"
	_, err = service.SaveEntry(ctx, e)
	require.NoError(t, err)

	e, err = service.ImportHTML(ctx, "pages/faq", "<p>Replaced</p>")
	require.NoError(t, err)
	assert.Equal(t, "Questions", e.Title)
	assert.Equal(t, "<p>Replaced</p>", e.HTML)
}

func TestService_Begin_Unsupported(t *testing.T) {
	service := newService(NewMockRepository())
	ctx := context.TODO()

	err := service.WithTransaction(ctx, func(tx core.Transaction) error {
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupported)
	assert.EqualError(t, err, "repository does not support transactions: operation not supported by repository")

	_, err = service.Watch(ctx, "**/*")
	assert.ErrorIs(t, err, core.ErrUnsupported)
	assert.ErrorIs(t, service.Sync(ctx), core.ErrUnsupported)
}

func TestService_WithTransaction(t *testing.T) {
	repo := &txRepository{MockRepository: NewMockRepository()}
	service := newService(repo)
	ctx := context.Background()

	err := service.WithTransaction(ctx, func(tx core.Transaction) error {
		return tx.Save(ctx, core.Entry{ID: "a", Title: "A", Body: body(blocks.NewParagraph("", "x"))})
	})
	require.NoError(t, err)

	e, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", e.HTML, "staged entries are rendered")
	assert.Equal(t, "a", e.Slug)

	boom := errors.New("boom")
	err = service.WithTransaction(ctx, func(tx core.Transaction) error {
		_ = tx.Save(ctx, core.Entry{ID: "b"})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = repo.Get(ctx, "b")
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = service.WithTransaction(ctx, func(tx core.Transaction) error {
		return tx.Save(ctx, core.Entry{ID: "c", Kind: "bogus"})
	})
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestService_Watch_DropsWhenFull(t *testing.T) {
	repo := &txRepository{MockRepository: NewMockRepository(), events: make(chan core.Event)}
	service := newService(repo, core.WithEventBuffer(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := service.Watch(ctx, "**/*")
	require.NoError(t, err)

	repo.events <- core.Event{Type: core.EventCreate, ID: "a"}
	repo.events <- core.Event{Type: core.EventModify, ID: "a"}

	select {
	case e := <-events:
		assert.Equal(t, "CREATE a", e.String())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestService_State(t *testing.T) {
	service := newService(NewMockRepository(), core.WithEventBuffer(7))
	state, ok := service.State().(core.ServiceState)
	require.True(t, ok)
	assert.Equal(t, 7, state.EventBufferSize)
	assert.Equal(t, "repository", state.RepositoryType)
	assert.Equal(t, "service", service.ComponentType())
}
