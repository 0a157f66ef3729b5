package blocks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ortholine/inlay/pkg/blocks"
)

func paragraphs(t *testing.T, d blocks.Document) []string {
	t.Helper()
	out := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		require.Equal(t, blocks.TypeParagraph, b.Type)
		p, ok := b.Data.(blocks.Paragraph)
		require.True(t, ok, "block %s is %T", b.ID, b.Data)
		out = append(out, p.Text)
	}
	return out
}

func TestFromHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace", " \n\t ", []string{}},
		{"p and div", "<p>Hello</p><div>World</div>", []string{"Hello", "World"}},
		{"residual tags stripped", "<p>Hello <b>bold</b> text</p>", []string{"Hello bold text"}},
		{"br splits", "one<br>two<br/>three<br />four", []string{"one", "two", "three", "four"}},
		{"case insensitive", "<P>A</P><DIV class=\"x\">B</DIV><BR>C", []string{"A", "B", "C"}},
		{"plain text", "just text", []string{"just text"}},
		{"pre is not p", "<pre>code</pre>", []string{"code"}},
		{"only tags", "<p></p><div><span> </span></div>", []string{}},
		{"malformed", "<p>open <b>never closed", []string{"open never closed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := blocks.FromHTML(tt.in)
			assert.Equal(t, blocks.DefaultVersion, d.Version)
			assert.NotZero(t, d.Time)
			assert.Equal(t, tt.want, paragraphs(t, d))
		})
	}
}

func TestFromHTML_IDsUsePreFilterIndex(t *testing.T) {
	d := blocks.FromHTML("<p>Hello</p><div>World</div>")
	require.Len(t, d.Blocks, 2)
	// split yields ["", "Hello", "", "World", ""]
	assert.Equal(t, "block_1", d.Blocks[0].ID)
	assert.Equal(t, "block_3", d.Blocks[1].ID)
}

func TestFromHTML_Repeatable(t *testing.T) {
	in := "<h1>Title</h1><p>Body <i>text</i></p><div>more</div>"
	a := blocks.FromHTML(in)
	b := blocks.FromHTML(in)
	a.Time, b.Time = 0, 0
	assert.Equal(t, a, b)
}

func TestFromHTML_RoundTripIsLossy(t *testing.T) {
	in := "<h1>Title</h1><p>Body</p>"
	out := blocks.Render(blocks.FromHTML(in))
	assert.Equal(t, "<p>Title</p><p>Body</p>", out)
	assert.NotEqual(t, in, out)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "a b", blocks.StripTags(" <i>a</i> <b>b</b> "))
}
