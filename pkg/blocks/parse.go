package blocks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseHTML imports HTML into typed blocks.
//
// Unlike FromHTML it keeps structure: headings, lists, figures, quotes, rules,
// tables, code and top-level links become their own block types, and inline
// markup inside text is preserved. Container elements (div, section, article,
// ...) are flattened. Text that sits directly between blocks is collected into
// paragraphs.
func ParseHTML(src string) (Document, error) {
	out := New()
	if strings.TrimSpace(src) == "" {
		return out, nil
	}

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	p := &htmlImporter{}
	p.walk(dom.Find("body").First())
	p.flush()
	out.Blocks = append(out.Blocks, p.blocks...)
	return out, nil
}

type htmlImporter struct {
	blocks []Block
	inline strings.Builder
}

func (p *htmlImporter) add(typ string, data Payload) {
	p.blocks = append(p.blocks, Block{
		ID:   "block_" + strconv.Itoa(len(p.blocks)),
		Type: typ,
		Data: data,
	})
}

// flush turns pending inline content into a paragraph.
func (p *htmlImporter) flush() {
	text := strings.TrimSpace(p.inline.String())
	p.inline.Reset()
	if text != "" {
		p.add(TypeParagraph, Paragraph{Text: text})
	}
}

func (p *htmlImporter) walk(parent *goquery.Selection) {
	parent.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch node.Type {
		case html.TextNode:
			p.inline.WriteString(html.EscapeString(node.Data))
			return
		case html.ElementNode:
		default:
			return
		}

		switch name := goquery.NodeName(s); name {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			p.flush()
			level, _ := strconv.Atoi(name[1:])
			p.add(TypeHeader, Header{Level: level, Text: innerHTML(s)})
		case "p":
			p.flush()
			p.inline.WriteString(innerHTML(s))
			p.flush()
		case "ul", "ol":
			p.flush()
			style := "unordered"
			if name == "ol" {
				style = "ordered"
			}
			items := []string{}
			s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
				items = append(items, innerHTML(li))
			})
			p.add(TypeList, List{Style: style, Items: items})
		case "figure", "img":
			p.flush()
			p.image(s)
		case "blockquote":
			p.flush()
			p.quote(s)
		case "hr":
			p.flush()
			p.add(TypeDelimiter, Delimiter{})
		case "table":
			p.flush()
			p.table(s)
		case "pre":
			p.flush()
			p.add(TypeCode, Code{Code: s.Text()})
		case "a":
			href, ok := s.Attr("href")
			if !ok || strings.TrimSpace(p.inline.String()) != "" {
				p.inline.WriteString(outerHTML(s))
				return
			}
			p.add(TypeLinkTool, LinkTool{Link: href, Meta: LinkMeta{Title: strings.TrimSpace(s.Text())}})
		case "br":
			p.flush()
		case "div", "section", "article", "main", "header", "footer", "aside", "nav", "body":
			p.flush()
			p.walk(s)
			p.flush()
		case "script", "style", "template", "noscript":
		default:
			p.inline.WriteString(outerHTML(s))
		}
	})
}

func (p *htmlImporter) image(s *goquery.Selection) {
	img := s
	if goquery.NodeName(s) != "img" {
		img = s.Find("img").First()
	}
	src, _ := img.Attr("src")
	if src == "" {
		return
	}
	caption := strings.TrimSpace(s.Find("figcaption").First().Text())
	if caption == "" {
		caption, _ = img.Attr("alt")
	}
	p.add(TypeImage, Image{File: ImageFile{URL: src}, Caption: caption})
}

func (p *htmlImporter) quote(s *goquery.Selection) {
	body := s.Clone()
	cite := body.Find("cite")
	caption := strings.TrimSpace(cite.First().Text())
	cite.Remove()
	p.add(TypeQuote, Quote{Text: innerHTML(body), Caption: caption})
}

func (p *htmlImporter) table(s *goquery.Selection) {
	content := [][]string{}
	withHeadings := false
	s.Find("tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td, th")
		if i == 0 && cells.Length() > 0 && cells.Filter("th").Length() == cells.Length() {
			withHeadings = true
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			row = append(row, innerHTML(c))
		})
		content = append(content, row)
	})
	p.add(TypeTable, Table{WithHeadings: withHeadings, Content: content})
}

func innerHTML(s *goquery.Selection) string {
	h, err := s.Html()
	if err != nil {
		return strings.TrimSpace(s.Text())
	}
	return strings.TrimSpace(h)
}

func outerHTML(s *goquery.Selection) string {
	h, err := goquery.OuterHtml(s)
	if err != nil {
		return s.Text()
	}
	return h
}
