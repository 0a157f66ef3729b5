package blocks

import (
	"strconv"
	"strings"
	"unicode"
)

// Heading is one entry of a document outline.
type Heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
}

// Outline lists the header blocks of doc in order. Duplicate anchors get a
// numeric suffix.
func Outline(doc Document) []Heading {
	var out []Heading
	seen := make(map[string]int)
	for _, b := range doc.Blocks {
		h, ok := b.Data.(Header)
		if !ok {
			continue
		}
		level := h.Level
		if level == 0 {
			level = 2
		}
		text := StripTags(h.Text)
		base := Slug(text)
		anchor := base
		for n := seen[base]; seen[anchor] > 0; n++ {
			anchor = base + "-" + strconv.Itoa(n)
			seen[base] = n + 1
		}
		seen[anchor]++
		out = append(out, Heading{Level: level, Text: text, Anchor: anchor})
	}
	return out
}

// PlainText returns the visible text of doc, one block per line.
func PlainText(doc Document) string {
	var lines []string
	for _, b := range doc.Blocks {
		switch d := b.Data.(type) {
		case Header:
			lines = append(lines, StripTags(d.Text))
		case Paragraph:
			lines = append(lines, StripTags(d.Text))
		case List:
			for _, it := range d.Items {
				lines = append(lines, StripTags(it))
			}
		case Quote:
			lines = append(lines, StripTags(d.Text))
		case Image:
			lines = append(lines, StripTags(d.Caption))
		case Table:
			for _, row := range d.Content {
				cells := make([]string, 0, len(row))
				for _, c := range row {
					cells = append(cells, StripTags(c))
				}
				lines = append(lines, strings.Join(cells, " "))
			}
		case Code:
			lines = append(lines, d.Code)
		case LinkTool:
			lines = append(lines, d.Meta.Title)
		case Other:
			if t, ok := d.Text(); ok {
				lines = append(lines, StripTags(t))
			}
		}
	}

	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// WordCount counts whitespace separated words in the plain text of doc.
func WordCount(doc Document) int {
	return len(strings.Fields(PlainText(doc)))
}

// Slug lowercases s and joins its letters and digits with single dashes.
func Slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return sb.String()
}
