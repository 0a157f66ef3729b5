// Package blocks converts editor block documents to HTML and back.
//
// A Document is the JSON value produced by the block editor used in the admin
// panel: an ordered list of typed blocks plus a timestamp and a format version.
// Render turns it into an HTML fragment for the public site; FromHTML builds a
// paragraph-only Document from legacy HTML so the editor never opens blank.
//
// Rendering never fails. Blocks that lack optional fields fall back to defaults
// and blocks that lack required fields render as an empty fragment; use
// Validate to find out which blocks degraded.
package blocks

import (
	"strconv"
	"time"
)

// DefaultVersion is the format version stamped on documents created by this package.
const DefaultVersion = "2.28.2"

// Block types understood by the renderer.
const (
	TypeHeader    = "header"
	TypeParagraph = "paragraph"
	TypeList      = "list"
	TypeImage     = "image"
	TypeQuote     = "quote"
	TypeDelimiter = "delimiter"
	TypeTable     = "table"
	TypeCode      = "code"
	TypeLinkTool  = "linkTool"
)

// Document is an ordered sequence of blocks plus metadata.
type Document struct {
	Time    int64   `json:"time"`
	Blocks  []Block `json:"blocks"`
	Version string  `json:"version"`
}

// Block is one content unit. Type selects the concrete Data payload.
type Block struct {
	ID   string
	Type string
	Data Payload
}

// Payload is implemented by every block variant.
type Payload interface {
	render(r *Renderer) string
}

// New returns an empty document stamped with the current time.
func New() Document {
	return Document{
		Time:    time.Now().UnixMilli(),
		Blocks:  []Block{},
		Version: DefaultVersion,
	}
}

// IsEmpty reports whether the document has no blocks.
func (d Document) IsEmpty() bool {
	return len(d.Blocks) == 0
}

// Header is a heading block.
type Header struct {
	Level int    `json:"level,omitempty"`
	Text  string `json:"text"`
}

// Paragraph is a plain text block.
type Paragraph struct {
	Text string `json:"text"`
}

// List is an ordered or unordered list. Items is nil when the editor sent none.
type List struct {
	Style string   `json:"style,omitempty"`
	Items []string `json:"items"`
}

// ImageFile holds the already uploaded file reference.
type ImageFile struct {
	URL string `json:"url"`
}

// Image is a figure with an optional caption.
type Image struct {
	File    ImageFile `json:"file"`
	Caption string    `json:"caption,omitempty"`
}

// Quote is a blockquote with an optional citation.
type Quote struct {
	Text    string `json:"text"`
	Caption string `json:"caption,omitempty"`
}

// Delimiter is a horizontal rule.
type Delimiter struct{}

// Table is a grid of cell strings. The first row is a heading row iff WithHeadings.
type Table struct {
	WithHeadings bool       `json:"withHeadings"`
	Content      [][]string `json:"content"`
}

// Code is a preformatted code sample.
type Code struct {
	Code string `json:"code"`
}

// LinkMeta is the preview metadata fetched by the link tool.
type LinkMeta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// LinkTool is an external link card.
type LinkTool struct {
	Link string   `json:"link"`
	Meta LinkMeta `json:"meta"`
}

// Other keeps the raw payload of block types this package does not know.
type Other map[string]any

// Text returns data.text as a string. Numbers and true are formatted the
// way a template would print them; false, null and composite values count as
// no text.
func (o Other) Text() (string, bool) {
	switch v := o["text"].(type) {
	case string:
		return v, true
	case float64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	default:
		return "", false
	}
}

// Known reports whether typ is one of the block types with a typed payload.
func Known(typ string) bool {
	switch typ {
	case TypeHeader, TypeParagraph, TypeList, TypeImage, TypeQuote,
		TypeDelimiter, TypeTable, TypeCode, TypeLinkTool:
		return true
	}
	return false
}

// NewParagraph is a shorthand used by the importers.
func NewParagraph(id, text string) Block {
	return Block{ID: id, Type: TypeParagraph, Data: Paragraph{Text: text}}
}
