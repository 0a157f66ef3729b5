package blocks

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// blockTagRe matches opening, closing and self-closing p, div and br tags.
	blockTagRe = regexp.MustCompile(`(?i)<\s*/?\s*(?:p|div|br)\b[^>]*>`)
	anyTagRe   = regexp.MustCompile(`<[^>]*>`)
)

// FromHTML builds a paragraph-only document from raw HTML.
//
// The result is an approximation meant to seed the editor when an entry has no
// block data yet. Every p, div and br boundary starts a new paragraph, other
// tags are dropped and empty fragments are skipped. Paragraph ids are
// block_{n}, where n is the fragment's position before empty ones were removed.
func FromHTML(src string) Document {
	doc := New()
	if strings.TrimSpace(src) == "" {
		return doc
	}

	for i, fragment := range blockTagRe.Split(src, -1) {
		text := strings.TrimSpace(anyTagRe.ReplaceAllString(fragment, ""))
		if text == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, NewParagraph("block_"+strconv.Itoa(i), text))
	}
	return doc
}

// StripTags removes every tag from s and trims the result.
func StripTags(s string) string {
	return strings.TrimSpace(anyTagRe.ReplaceAllString(s, ""))
}
