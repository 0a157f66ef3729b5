package blocks

import "fmt"

// WarningKind categorizes validation warnings.
type WarningKind string

const (
	WarningUnknownBlock   WarningKind = "unknown_block"
	WarningMissingField   WarningKind = "missing_field"
	WarningInvalidLevel   WarningKind = "invalid_level"
	WarningRaggedTable    WarningKind = "ragged_table"
	WarningEmptyText      WarningKind = "empty_text"
	// WarningMalformedBlock marks a known block type whose payload could not
	// be decoded; it renders like an unknown block.
	WarningMalformedBlock WarningKind = "malformed_block"
)

// Warning describes a block whose rendered output is degraded or suspicious.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Index     int         `json:"index"`
	BlockID   string      `json:"blockId,omitempty"`
	BlockType string      `json:"blockType"`
	Message   string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("block %d (%s): %s", w.Index, w.BlockType, w.Message)
}

// Validate reports blocks that Render will degrade. It never changes what
// Render produces; an empty result means every block rendered in full.
func Validate(doc Document) []Warning {
	var warnings []Warning
	for i, b := range doc.Blocks {
		add := func(kind WarningKind, format string, args ...any) {
			warnings = append(warnings, Warning{
				Kind:      kind,
				Index:     i,
				BlockID:   b.ID,
				BlockType: b.Type,
				Message:   fmt.Sprintf(format, args...),
			})
		}

		switch d := b.Data.(type) {
		case nil:
			add(WarningMissingField, "block has no data")
		case Header:
			if d.Level != 0 && (d.Level < 1 || d.Level > 6) {
				add(WarningInvalidLevel, "header level %d outside 1-6", d.Level)
			}
			if d.Text == "" {
				add(WarningEmptyText, "header has no text")
			}
		case Paragraph:
			if d.Text == "" {
				add(WarningEmptyText, "paragraph has no text")
			}
		case List:
			if d.Items == nil {
				add(WarningMissingField, "list has no items; rendered empty")
			}
		case Image:
			if d.File.URL == "" {
				add(WarningMissingField, "image has no file.url; rendered empty")
			}
		case Table:
			if d.Content == nil {
				add(WarningMissingField, "table has no content; rendered empty")
				break
			}
			for r, row := range d.Content {
				if len(row) != len(d.Content[0]) {
					add(WarningRaggedTable, "row %d has %d cells, first row has %d", r, len(row), len(d.Content[0]))
				}
			}
		case LinkTool:
			if d.Link == "" {
				add(WarningMissingField, "linkTool has no link; rendered empty")
			}
		case Other:
			if Known(b.Type) {
				add(WarningMalformedBlock, "%s payload does not match its type; rendered as unknown block", b.Type)
				break
			}
			if text, ok := d.Text(); ok && text != "" {
				add(WarningUnknownBlock, "unknown type %q rendered as paragraph", b.Type)
			} else {
				add(WarningUnknownBlock, "unknown type %q has no text; rendered empty", b.Type)
			}
		}
	}
	return warnings
}
