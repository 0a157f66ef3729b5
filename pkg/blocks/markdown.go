package blocks

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdownEngine = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ToMarkdown renders doc and converts the HTML to CommonMark.
func ToMarkdown(doc Document) (string, error) {
	if doc.IsEmpty() {
		return "", nil
	}
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(Render(doc))
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// FromMarkdown converts GitHub-flavoured Markdown into typed blocks.
func FromMarkdown(src []byte) (Document, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert(src, &buf); err != nil {
		return Document{}, fmt.Errorf("markdown to html: %w", err)
	}
	return ParseHTML(buf.String())
}
