package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary builds the inlay binary into dir and returns its path.
func buildBinary(t *testing.T, dir string) string {
	t.Helper()
	bin := filepath.Join(dir, "inlay.exe")
	out, err := exec.Command("go", "build", "-o", bin, ".").CombinedOutput()
	require.NoError(t, err, "failed to build inlay: %s", out)
	return bin
}

// run executes the binary in dir and returns its stdout.
func run(t *testing.T, dir, stdin, bin string, args ...string) string {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Run(), "inlay %v failed: %s", args, stderr.String())
	return stdout.String()
}

const doc = `{"blocks":[
	{"id":"h","type":"header","data":{"text":"Intro","level":2}},
	{"id":"p","type":"paragraph","data":{"text":"Hello <b>there</b>"}}
]}`

func TestCLI_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binDir := t.TempDir()
	vault := t.TempDir()
	bin := buildBinary(t, binDir)
	v := []string{"--vault", vault, "--gitless"}

	out := run(t, vault, "", bin, append([]string{"init"}, v...)...)
	assert.Contains(t, out, "Initialized empty inlay vault")

	run(t, vault, doc, bin, append([]string{"write", "--id", "blog/hello", "--kind", "blog", "--title", "Hello", "--tag", "go", "--blocks", "-"}, v...)...)
	_, err := os.Stat(filepath.Join(vault, "blog", "hello.md"))
	require.NoError(t, err)

	t.Run("Read HTML", func(t *testing.T) {
		out := run(t, vault, "", bin, append([]string{"read", "blog/hello"}, v...)...)
		assert.Contains(t, out, "<h2>Intro</h2><p>Hello <b>there</b></p>")
	})

	t.Run("Read Markdown", func(t *testing.T) {
		out := run(t, vault, "", bin, append([]string{"read", "blog/hello", "--format", "markdown"}, v...)...)
		assert.Contains(t, out, "## Intro")
		assert.Contains(t, out, "**there**")
	})

	t.Run("Update Keeps Unset Fields", func(t *testing.T) {
		run(t, vault, "", bin, append([]string{"write", "--id", "blog/hello", "--status", "published"}, v...)...)
		out := run(t, vault, "", bin, append([]string{"read", "blog/hello", "--format", "json"}, v...)...)
		assert.Contains(t, out, `"title": "Hello"`)
		assert.Contains(t, out, `"status": "published"`)
	})

	t.Run("Legacy HTML", func(t *testing.T) {
		run(t, vault, "", bin, append([]string{"write", "--id", "about", "--html", "<p>Old</p><p>Site</p>"}, v...)...)
		out := run(t, vault, "", bin, append([]string{"read", "about", "--format", "editor"}, v...)...)
		assert.Contains(t, out, `"id": "block_1"`)
		assert.Contains(t, out, `"text": "Site"`)
	})

	t.Run("List", func(t *testing.T) {
		out := run(t, vault, "", bin, append([]string{"list", "--kind", "blog"}, v...)...)
		assert.Contains(t, out, "blog/hello")
		assert.NotContains(t, out, "about")

		out = run(t, vault, "", bin, append([]string{"list", "--json"}, v...)...)
		assert.Contains(t, out, `"id": "about"`)
	})

	t.Run("Delete", func(t *testing.T) {
		run(t, vault, "", bin, append([]string{"delete", "about"}, v...)...)
		_, err := os.Stat(filepath.Join(vault, "about.md"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestCLI_Converter(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	dir := t.TempDir()
	bin := buildBinary(t, dir)

	out := run(t, dir, doc, bin, "render", "--escape")
	assert.Equal(t, "<h2>Intro</h2><p>Hello &lt;b&gt;there&lt;/b&gt;</p>\n", out)

	out = run(t, dir, "<h3>Title</h3><ul><li>a</li></ul>", bin, "import", "--rich")
	assert.Contains(t, out, `"type": "header"`)
	assert.Contains(t, out, `"type": "list"`)

	out = run(t, dir, "# Title\n\nText\n", bin, "import", "--markdown")
	assert.Contains(t, out, `"type": "header"`)

	out = run(t, dir, `{"blocks":[{"type":"table","data":{"content":[["a","b"],["c"]]}}]}`, bin, "validate")
	assert.Contains(t, out, "row 1 has 1 cells")

	out = run(t, dir, "", bin, "version")
	assert.True(t, strings.HasPrefix(out, "inlay version "))
}

func TestCommitMessage(t *testing.T) {
	defer func() { changeReason, writeType, writeScope = "", "", "" }()

	assert.Equal(t, "docs(content): update blog/a\n\nPowered-by: inlay", commitMessage("blog/a", "update"))

	writeScope = "blog"
	assert.Equal(t, "docs(blog): delete blog/a\n\nPowered-by: inlay", commitMessage("blog/a", "delete"))

	writeType, changeReason = "feat", "publish launch post"
	assert.Equal(t, "feat(blog): publish launch post\n\nPowered-by: inlay", commitMessage("blog/a", "update"))

	writeType, writeScope, changeReason = "", "", "manual fix"
	assert.Equal(t, "manual fix\n\nPowered-by: inlay", commitMessage("blog/a", "update"))
}
