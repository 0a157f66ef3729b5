package fs_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ortholine/inlay/pkg/adapters/fs"
	"github.com/ortholine/inlay/pkg/core"
)

func TestTransaction_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo, dir := newGitless(t)
	require.NoError(t, repo.Save(ctx, core.Entry{ID: "keep", Title: "Keep"}))
	require.NoError(t, repo.Save(ctx, core.Entry{ID: "drop", Title: "Drop"}))

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.Save(ctx, core.Entry{ID: "new", Title: "New"}))
	require.NoError(t, tx.Delete(ctx, "drop"))

	t.Run("Isolation Before Commit", func(t *testing.T) {
		_, err := os.Stat(filepath.Join(dir, "new.md"))
		assert.True(t, os.IsNotExist(err), "staged entry must not touch disk")

		got, err := tx.Get(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, "New", got.Title)

		_, err = tx.Get(ctx, "drop")
		assert.ErrorIs(t, err, core.ErrNotFound)

		list, err := tx.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, e := range list {
			ids = append(ids, e.ID)
		}
		assert.Equal(t, []string{"keep", "new"}, ids)
	})

	require.NoError(t, tx.Commit(ctx, "batch"))

	t.Run("Applied After Commit", func(t *testing.T) {
		_, err := repo.Get(ctx, "new")
		require.NoError(t, err)
		_, err = repo.Get(ctx, "drop")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Closed After Commit", func(t *testing.T) {
		assert.ErrorIs(t, tx.Save(ctx, core.Entry{ID: "late"}), fs.ErrTransactionClosed)
		assert.ErrorIs(t, tx.Commit(ctx, ""), fs.ErrTransactionClosed)
		assert.NoError(t, tx.Rollback(ctx))
	})
}

func TestTransaction_Rollback(t *testing.T) {
	ctx := context.Background()
	repo, dir := newGitless(t)

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Save(ctx, core.Entry{ID: "ghost", Title: "Ghost"}))
	require.NoError(t, tx.Rollback(ctx))

	_, err = os.Stat(filepath.Join(dir, "ghost.md"))
	assert.True(t, os.IsNotExist(err))
	_, err = tx.Get(ctx, "ghost")
	assert.ErrorIs(t, err, fs.ErrTransactionClosed)
}

func TestTransaction_InvalidID(t *testing.T) {
	ctx := context.Background()
	repo, _ := newGitless(t)
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, tx.Save(ctx, core.Entry{ID: "../x"}), core.ErrInvalidID)
}

func TestTransaction_SingleCommit(t *testing.T) {
	if !fs.IsGitInstalled() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	dir := t.TempDir()
	repo := fs.NewRepository(fs.Config{Path: dir, AutoInit: true})
	require.NoError(t, repo.Initialize(ctx))

	before := commitCount(t, dir)

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "nested/c"} {
		require.NoError(t, tx.Save(ctx, core.Entry{ID: id, Title: id}))
	}
	require.NoError(t, tx.Commit(ctx, "import three entries"))

	assert.Equal(t, before+1, commitCount(t, dir))
	out, err := exec.Command("git", "-C", dir, "log", "-1", "--format=%s").Output()
	require.NoError(t, err)
	assert.Equal(t, "import three entries", strings.TrimSpace(string(out)))
}

func commitCount(t *testing.T, dir string) int {
	t.Helper()
	out, err := exec.Command("git", "-C", dir, "rev-list", "--count", "HEAD").Output()
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	require.NoError(t, err)
	return n
}
