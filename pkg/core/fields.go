package core

import (
	"encoding/json"
	"fmt"

	"github.com/ortholine/inlay/pkg/blocks"
)

// Fields flattens e into a generic map for frontmatter-style serializers.
// ID and HTML are left out: the ID is the storage key and the HTML is the
// document body.
func (e Entry) Fields() (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry %s: %w", e.ID, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to convert entry %s to map: %w", e.ID, err)
	}
	delete(fields, "id")
	delete(fields, "html")
	if e.Body.IsEmpty() {
		delete(fields, "body")
	}
	return fields, nil
}

// EntryFromFields is the inverse of Entry.Fields.
func EntryFromFields(id string, fields map[string]any, html string) (Entry, error) {
	data, err := json.Marshal(normalize(fields))
	if err != nil {
		return Entry{}, fmt.Errorf("metadata marshal failed: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("unmarshal entry %s failed: %w", id, err)
	}
	e.ID = id
	e.HTML = html
	if e.Body.Blocks == nil {
		e.Body.Blocks = []blocks.Block{}
	}
	return e, nil
}

// normalize converts map[any]any values (produced by some YAML decoders) into
// map[string]any so they can be re-encoded as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case Metadata:
		return normalize(map[string]any(t))
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
