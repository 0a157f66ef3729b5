package blocks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ortholine/inlay/pkg/blocks"
)

func TestValidate_CleanDocument(t *testing.T) {
	d, err := blocks.DecodeString(editorJSON)
	require.NoError(t, err)
	d.Blocks = d.Blocks[:9] // drop the unknown "warning" block

	assert.Empty(t, blocks.Validate(d))
}

func TestValidate_Warnings(t *testing.T) {
	d := doc(
		blocks.Block{ID: "a", Type: blocks.TypeList, Data: blocks.List{}},
		blocks.Block{ID: "b", Type: blocks.TypeHeader, Data: blocks.Header{Level: 9, Text: "x"}},
		blocks.Block{ID: "c", Type: blocks.TypeTable, Data: blocks.Table{Content: [][]string{{"a", "b"}, {"c"}}}},
		blocks.Block{ID: "d", Type: "embed", Data: blocks.Other{}},
		blocks.Block{ID: "e", Type: blocks.TypeImage, Data: blocks.Image{}},
		blocks.Block{ID: "f", Type: blocks.TypeParagraph},
	)

	warnings := blocks.Validate(d)
	require.Len(t, warnings, 6)

	kinds := make(map[string]blocks.WarningKind)
	for _, w := range warnings {
		kinds[w.BlockID] = w.Kind
	}
	assert.Equal(t, blocks.WarningMissingField, kinds["a"])
	assert.Equal(t, blocks.WarningInvalidLevel, kinds["b"])
	assert.Equal(t, blocks.WarningRaggedTable, kinds["c"])
	assert.Equal(t, blocks.WarningUnknownBlock, kinds["d"])
	assert.Equal(t, blocks.WarningMissingField, kinds["e"])
	assert.Equal(t, blocks.WarningMissingField, kinds["f"])

	assert.Equal(t, 2, warnings[2].Index)
	assert.Contains(t, warnings[1].String(), "header level 9")
}

func TestValidate_DoesNotChangeRender(t *testing.T) {
	d := doc(blocks.Block{Type: blocks.TypeHeader, Data: blocks.Header{Level: 7, Text: "x"}})
	before := blocks.Render(d)
	_ = blocks.Validate(d)
	assert.Equal(t, before, blocks.Render(d))
	assert.Equal(t, "<h7>x</h7>", before)
}
