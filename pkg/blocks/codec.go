package blocks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// wireBlock is the editor JSON shape of a single block.
type wireBlock struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON encodes the block in editor format.
func (b Block) MarshalJSON() ([]byte, error) {
	var data any = b.Data
	if b.Data == nil {
		data = struct{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s block: %w", b.Type, err)
	}
	return json.Marshal(wireBlock{ID: b.ID, Type: b.Type, Data: raw})
}

// UnmarshalJSON decodes a block in editor format. Unknown types keep their
// payload as Other. A known type whose payload does not fit its Go type is
// kept as Other too, so one bad block never fails the whole document;
// Validate reports it as malformed.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		var fields map[string]any
		if json.Unmarshal(data, &fields) != nil {
			return err
		}
		id, _ := fields["id"].(string)
		typ, _ := fields["type"].(string)
		*b = Block{ID: id, Type: typ, Data: otherOf(fields["data"])}
		return nil
	}
	payload, err := decodePayload(w.Type, w.Data)
	if err != nil {
		var v any
		if len(bytes.TrimSpace(w.Data)) > 0 {
			_ = json.Unmarshal(w.Data, &v)
		}
		payload = otherOf(v)
	}
	*b = Block{ID: w.ID, Type: w.Type, Data: payload}
	return nil
}

// otherOf keeps an arbitrary decoded payload as Other. Non-object payloads
// are stored under a single key so nothing is lost.
func otherOf(v any) Other {
	switch t := v.(type) {
	case map[string]any:
		return Other(t)
	case nil:
		return Other{}
	default:
		return Other{"value": t}
	}
}

func decodePayload(typ string, raw json.RawMessage) (Payload, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage("{}")
	}

	switch typ {
	case TypeHeader:
		var aux struct {
			Level flexInt `json:"level"`
			Text  string  `json:"text"`
		}
		if err := json.Unmarshal(raw, &aux); err != nil {
			return nil, err
		}
		return Header{Level: int(aux.Level), Text: aux.Text}, nil

	case TypeParagraph:
		var p Paragraph
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case TypeList:
		var aux struct {
			Style string            `json:"style"`
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(raw, &aux); err != nil {
			return nil, err
		}
		l := List{Style: aux.Style}
		if aux.Items != nil {
			l.Items = make([]string, 0, len(aux.Items))
			for _, it := range aux.Items {
				s, err := decodeListItem(it)
				if err != nil {
					return nil, err
				}
				l.Items = append(l.Items, s)
			}
		}
		return l, nil

	case TypeImage:
		var img Image
		if err := json.Unmarshal(raw, &img); err != nil {
			return nil, err
		}
		return img, nil

	case TypeQuote:
		var q Quote
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		return q, nil

	case TypeDelimiter:
		return Delimiter{}, nil

	case TypeTable:
		var t Table
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		return t, nil

	case TypeCode:
		var c Code
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil

	case TypeLinkTool:
		var l LinkTool
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, err
		}
		return l, nil

	default:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return otherOf(v), nil
	}
}

// decodeListItem accepts plain strings and nested-list objects ({"content": "..."}).
func decodeListItem(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var nested struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(trimmed, &nested); err != nil {
			return "", err
		}
		return nested.Content, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", fmt.Errorf("list item: %w", err)
	}
	return s, nil
}

// flexInt decodes numbers, numeric strings and null.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("level %q is not a number", s)
	}
	*f = flexInt(n)
	return nil
}

// Decode reads one editor JSON document from r.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("invalid block document: %w", err)
	}
	if doc.Blocks == nil {
		doc.Blocks = []Block{}
	}
	return doc, nil
}

// DecodeString is Decode over a string.
func DecodeString(s string) (Document, error) {
	return Decode(strings.NewReader(s))
}

// Encode writes doc to w as indented editor JSON.
func Encode(w io.Writer, doc Document) error {
	if doc.Blocks == nil {
		doc.Blocks = []Block{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
