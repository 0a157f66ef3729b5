package blocks

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Renderer turns documents into HTML fragments. The zero value is ready to use
// and matches the editor's reference output byte for byte.
type Renderer struct {
	escape bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEscaping HTML-escapes interpolated text and attribute values.
//
// Block text produced by the editor already contains inline markup (<b>, <a>,
// ...), so escaping changes the output of otherwise valid documents. Enable it
// for content from untrusted authors only.
func WithEscaping(enabled bool) Option {
	return func(r *Renderer) {
		r.escape = enabled
	}
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRenderer = NewRenderer()

// Render converts doc with the default, non-escaping renderer.
func Render(doc Document) string {
	return defaultRenderer.Render(doc)
}

// Render concatenates the fragment of every block in document order.
func (r *Renderer) Render(doc Document) string {
	var sb strings.Builder
	for _, b := range doc.Blocks {
		sb.WriteString(r.RenderBlock(b))
	}
	return sb.String()
}

// RenderBlock returns the fragment for a single block.
func (r *Renderer) RenderBlock(b Block) string {
	if b.Data == nil {
		return ""
	}
	return b.Data.render(r)
}

// Escaping reports whether r escapes interpolated values.
func (r *Renderer) Escaping() bool {
	return r.escape
}

func (r *Renderer) text(s string) string {
	if r.escape {
		return html.EscapeString(s)
	}
	return s
}

func (h Header) render(r *Renderer) string {
	level := h.Level
	if level == 0 {
		level = 2
	}
	tag := "h" + strconv.Itoa(level)
	return "<" + tag + ">" + r.text(h.Text) + "</" + tag + ">"
}

func (p Paragraph) render(r *Renderer) string {
	return "<p>" + r.text(p.Text) + "</p>"
}

func (l List) render(r *Renderer) string {
	if l.Items == nil {
		return ""
	}
	tag := "ul"
	if l.Style == "ordered" {
		tag = "ol"
	}
	var sb strings.Builder
	sb.WriteString("<" + tag + ">")
	for _, item := range l.Items {
		sb.WriteString("<li>" + r.text(item) + "</li>")
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}

func (img Image) render(r *Renderer) string {
	if img.File.URL == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(`<figure><img src="` + r.text(img.File.URL) + `" alt="` + r.text(img.Caption) + `" />`)
	if img.Caption != "" {
		sb.WriteString("<figcaption>" + r.text(img.Caption) + "</figcaption>")
	}
	sb.WriteString("</figure>")
	return sb.String()
}

func (q Quote) render(r *Renderer) string {
	cite := ""
	if q.Caption != "" {
		cite = "<cite>" + r.text(q.Caption) + "</cite>"
	}
	return "<blockquote>" + r.text(q.Text) + cite + "</blockquote>"
}

func (Delimiter) render(*Renderer) string {
	return "<hr />"
}

func (t Table) render(r *Renderer) string {
	if t.Content == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<table><tbody>")
	for i, row := range t.Content {
		cell := "td"
		if i == 0 && t.WithHeadings {
			cell = "th"
		}
		sb.WriteString("<tr>")
		for _, c := range row {
			sb.WriteString("<" + cell + ">" + r.text(c) + "</" + cell + ">")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
	return sb.String()
}

func (c Code) render(r *Renderer) string {
	return "<pre><code>" + r.text(c.Code) + "</code></pre>"
}

func (l LinkTool) render(r *Renderer) string {
	if l.Link == "" {
		return ""
	}
	label := l.Meta.Title
	if label == "" {
		label = l.Link
	}
	return `<a href="` + r.text(l.Link) + `" target="_blank" rel="noopener noreferrer">` + r.text(label) + "</a>"
}

func (o Other) render(r *Renderer) string {
	text, ok := o.Text()
	if !ok || text == "" {
		return ""
	}
	return "<p>" + r.text(text) + "</p>"
}
