package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ortholine/inlay/pkg/core"
)

// Serializer defines how to read and write a specific file format.
// The repository owns the entry ID (it is derived from the file path), so
// serializers neither write nor read it.
type Serializer interface {
	// Parse reads an entry from r.
	Parse(r io.Reader) (core.Entry, error)
	// Serialize converts the entry to file contents.
	Serialize(e core.Entry) ([]byte, error)
}

// htmlKey holds the rendered HTML in formats without a separate body section.
const htmlKey = "html"

// DefaultSerializers returns the standard set of serializers.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".md":   MarkdownSerializer{},
		".json": JSONSerializer{},
		".yaml": YAMLSerializer{},
		".yml":  YAMLSerializer{},
	}
}

func fieldsWithHTML(e core.Entry) (map[string]any, error) {
	fields, err := e.Fields()
	if err != nil {
		return nil, err
	}
	if e.HTML != "" {
		fields[htmlKey] = e.HTML
	}
	return fields, nil
}

func entryFromPayload(payload map[string]any) (core.Entry, error) {
	html, _ := payload[htmlKey].(string)
	delete(payload, htmlKey)
	return core.EntryFromFields("", payload, html)
}

// JSONSerializer stores the whole entry as one JSON object.
type JSONSerializer struct{}

func (JSONSerializer) Parse(r io.Reader) (core.Entry, error) {
	var payload map[string]any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return core.Entry{}, fmt.Errorf("invalid json: %w", err)
	}
	return entryFromPayload(payload)
}

func (JSONSerializer) Serialize(e core.Entry) ([]byte, error) {
	fields, err := fieldsWithHTML(e)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(fields, "", "  ")
}

// YAMLSerializer stores the whole entry as one YAML mapping.
type YAMLSerializer struct{}

func (YAMLSerializer) Parse(r io.Reader) (core.Entry, error) {
	var payload map[string]any
	if err := yaml.NewDecoder(r).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return core.Entry{}, fmt.Errorf("invalid yaml: %w", err)
	}
	return entryFromPayload(payload)
}

func (YAMLSerializer) Serialize(e core.Entry) ([]byte, error) {
	fields, err := fieldsWithHTML(e)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarkdownSerializer writes YAML frontmatter followed by the rendered HTML,
// which Markdown tooling passes through untouched. Files without
// frontmatter are read as legacy HTML-only entries.
type MarkdownSerializer struct{}

func (MarkdownSerializer) Parse(r io.Reader) (core.Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Entry{}, err
	}

	front, content, err := splitFrontmatter(data)
	if err != nil {
		return core.Entry{}, err
	}

	fields := map[string]any{}
	if len(front) > 0 {
		if err := yaml.Unmarshal(front, &fields); err != nil {
			return core.Entry{}, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}
	return core.EntryFromFields("", fields, string(content))
}

func (MarkdownSerializer) Serialize(e core.Entry) ([]byte, error) {
	fields, err := e.Fields()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(e.HTML)
	return buf.Bytes(), nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// rest of the file.
func splitFrontmatter(data []byte) (front, content []byte, err error) {
	var rest []byte
	switch {
	case bytes.HasPrefix(data, []byte("---\n")):
		rest = data[4:]
	case bytes.HasPrefix(data, []byte("---\r\n")):
		rest = data[5:]
	default:
		return nil, data, nil
	}

	for offset := 0; offset <= len(rest); {
		line := rest[offset:]
		end := bytes.IndexByte(line, '\n')
		if end >= 0 {
			line = line[:end]
		}
		if strings.TrimRight(string(line), "\r") == "---" {
			front = rest[:offset]
			if end < 0 {
				return front, nil, nil
			}
			return front, rest[offset+end+1:], nil
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return nil, nil, errors.New("frontmatter started but no closing delimiter found")
}
