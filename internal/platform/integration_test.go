package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ortholine/inlay/internal/platform"
	"github.com/ortholine/inlay/pkg/blocks"
	"github.com/ortholine/inlay/pkg/core"
	"github.com/ortholine/inlay/pkg/git"
)

func setupService(t *testing.T, opts ...platform.Option) (*core.Service, string) {
	t.Helper()
	tmpDir := t.TempDir()
	service, err := platform.New(tmpDir, append([]platform.Option{platform.WithAutoInit(true)}, opts...)...)
	require.NoError(t, err)
	return service, tmpDir
}

func paragraphDoc(texts ...string) blocks.Document {
	doc := blocks.New()
	for i, text := range texts {
		doc.Blocks = append(doc.Blocks, blocks.NewParagraph("p"+string(rune('a'+i)), text))
	}
	return doc
}

func TestService_WriteCommit(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	service, tmpDir := setupService(t)
	ctx := context.Background()

	saved, err := service.SaveEntry(ctx, core.Entry{
		ID:    "blog/launch",
		Kind:  core.KindBlog,
		Title: "Launch",
		Tags:  []string{"news"},
		Body:  paragraphDoc("We are live."),
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>We are live.</p>", saved.HTML)

	_, err = os.Stat(filepath.Join(tmpDir, "blog", "launch.md"))
	require.NoError(t, err)

	status, err := git.NewClient(tmpDir, ".inlay/git.lock", nil).Status()
	require.NoError(t, err)
	assert.Empty(t, status, "save should leave a clean work tree")

	got, err := service.GetEntry(ctx, "blog/launch")
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Title)
	assert.Equal(t, "launch", got.Slug)
	assert.Equal(t, saved.HTML, got.HTML)
	require.Len(t, got.Body.Blocks, 1)
}

func TestService_DeleteList(t *testing.T) {
	service, tmpDir := setupService(t, platform.WithVersioning(false))
	ctx := context.Background()

	for _, id := range []string{"note1", "note2", "note3"} {
		_, err := service.SaveEntry(ctx, core.Entry{ID: id, Body: paragraphDoc(id)})
		require.NoError(t, err)
	}

	list, err := service.ListEntries(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, service.DeleteEntry(ctx, "note2"))
	_, err = os.Stat(filepath.Join(tmpDir, "note2.md"))
	assert.True(t, os.IsNotExist(err))

	sums, err := service.ListSummaries(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, sums, 2)
}

func TestService_Options(t *testing.T) {
	ctx := context.Background()
	service, _ := setupService(t,
		platform.WithVersioning(false),
		platform.WithEscaping(true),
		platform.WithRichImport(true),
		platform.WithEventBuffer(7),
	)

	state := service.State().(core.ServiceState)
	assert.True(t, state.EscapeHTML)
	assert.True(t, state.RichImport)
	assert.Equal(t, 7, state.EventBufferSize)
	assert.Equal(t, "fs-repository", state.RepositoryType)

	saved, err := service.SaveEntry(ctx, core.Entry{ID: "x", Body: paragraphDoc("<b>bold</b>")})
	require.NoError(t, err)
	assert.Equal(t, "<p>&lt;b&gt;bold&lt;/b&gt;</p>", saved.HTML)

	imported, err := service.ImportHTML(ctx, "imported", "<h2>Title</h2><ul><li>a</li></ul>")
	require.NoError(t, err)
	require.Len(t, imported.Body.Blocks, 2)
	assert.Equal(t, blocks.TypeHeader, imported.Body.Blocks[0].Type)
	assert.Equal(t, "Title", imported.Title)
}

func TestService_BadgerAdapter(t *testing.T) {
	ctx := context.Background()
	service, err := platform.New("", platform.WithAdapter(platform.AdapterBadger), platform.WithInMemory(true))
	require.NoError(t, err)
	defer service.Close()

	_, err = service.SaveEntry(ctx, core.Entry{ID: "ebooks/go", Kind: core.KindEbook, Title: "Go"})
	require.NoError(t, err)

	sums, err := service.ListSummaries(ctx, core.Filter{Kind: core.KindEbook})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "badger-store", service.State().(core.ServiceState).RepositoryType)
}

func TestService_MustExist(t *testing.T) {
	nonExistent := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := platform.New(nonExistent, platform.WithMustExist(true))
	assert.Error(t, err)
}
