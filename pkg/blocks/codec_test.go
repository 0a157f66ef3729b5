package blocks_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ortholine/inlay/pkg/blocks"
)

const editorJSON = `{
  "time": 1700000000000,
  "version": "2.28.2",
  "blocks": [
    {"id": "h1", "type": "header", "data": {"text": "Invisalign FAQ", "level": 1}},
    {"id": "p1", "type": "paragraph", "data": {"text": "Clear <b>aligners</b>."}},
    {"id": "l1", "type": "list", "data": {"style": "ordered", "items": ["Scan", {"content": "Plan", "items": []}]}},
    {"id": "i1", "type": "image", "data": {"file": {"url": "/uploads/a.png"}, "caption": "Before"}},
    {"id": "q1", "type": "quote", "data": {"text": "Great", "caption": "Patient"}},
    {"id": "d1", "type": "delimiter", "data": {}},
    {"id": "t1", "type": "table", "data": {"withHeadings": true, "content": [["Week", "Step"], ["1", "Fit"]]}},
    {"id": "c1", "type": "code", "data": {"code": "fmt.Println(1)"}},
    {"id": "k1", "type": "linkTool", "data": {"link": "https://example.com", "meta": {"title": "Example"}}},
    {"id": "x1", "type": "warning", "data": {"title": "Note", "message": "Careful"}}
  ]
}`

func TestDecode_EditorDocument(t *testing.T) {
	d, err := blocks.DecodeString(editorJSON)
	require.NoError(t, err)

	assert.Equal(t, int64(1700000000000), d.Time)
	assert.Equal(t, "2.28.2", d.Version)
	require.Len(t, d.Blocks, 10)

	assert.Equal(t, blocks.Header{Level: 1, Text: "Invisalign FAQ"}, d.Blocks[0].Data)
	assert.Equal(t, blocks.List{Style: "ordered", Items: []string{"Scan", "Plan"}}, d.Blocks[2].Data)
	assert.Equal(t, blocks.Delimiter{}, d.Blocks[5].Data)
	assert.Equal(t, "Example", d.Blocks[8].Data.(blocks.LinkTool).Meta.Title)

	other, ok := d.Blocks[9].Data.(blocks.Other)
	require.True(t, ok)
	assert.Equal(t, "warning", d.Blocks[9].Type)
	assert.Equal(t, "Careful", other["message"])
	assert.Equal(t, "x1", d.Blocks[9].ID)
}

func TestDecode_RenderEditorDocument(t *testing.T) {
	d, err := blocks.DecodeString(editorJSON)
	require.NoError(t, err)

	want := "<h1>Invisalign FAQ</h1>" +
		"<p>Clear <b>aligners</b>.</p>" +
		"<ol><li>Scan</li><li>Plan</li></ol>" +
		`<figure><img src="/uploads/a.png" alt="Before" /><figcaption>Before</figcaption></figure>` +
		"<blockquote>Great<cite>Patient</cite></blockquote>" +
		"<hr />" +
		"<table><tbody><tr><th>Week</th><th>Step</th></tr><tr><td>1</td><td>Fit</td></tr></tbody></table>" +
		"<pre><code>fmt.Println(1)</code></pre>" +
		`<a href="https://example.com" target="_blank" rel="noopener noreferrer">Example</a>`
	assert.Equal(t, want, blocks.Render(d))
}

func TestDecode_Leniency(t *testing.T) {
	d, err := blocks.DecodeString(`{"blocks": [
		{"type": "header", "data": {"text": "A", "level": "3"}},
		{"type": "header", "data": {"text": "B", "level": null}},
		{"type": "list"},
		{"type": "paragraph", "data": null},
		{"type": "custom", "data": "scalar"}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, blocks.Header{Level: 3, Text: "A"}, d.Blocks[0].Data)
	assert.Equal(t, blocks.Header{Text: "B"}, d.Blocks[1].Data)
	assert.Nil(t, d.Blocks[2].Data.(blocks.List).Items)
	assert.Equal(t, blocks.Paragraph{}, d.Blocks[3].Data)
	assert.Equal(t, blocks.Other{"value": "scalar"}, d.Blocks[4].Data)

	assert.Equal(t, "<h3>A</h3><h2>B</h2><p></p>", blocks.Render(d))
}

func TestDecode_Errors(t *testing.T) {
	_, err := blocks.DecodeString(`{"blocks": [`)
	assert.Error(t, err)

	_, err = blocks.DecodeString(`{"blocks": {}}`)
	assert.Error(t, err)
}

func TestDecode_MalformedBlockKeepsDocument(t *testing.T) {
	d, err := blocks.DecodeString(`{"blocks": [
    {"type": "paragraph", "data": {"text": "keep me"}},
    {"id": "h", "type": "header", "data": {"text": "Big", "level": "big"}},
    {"type": "header", "data": {"level": true}},
    {"type": "paragraph", "data": {"text": 42}},
    {"type": "list", "data": {"items": [1]}},
    {"type": 7, "data": {"text": "typeless"}}
  ]}`)
	require.NoError(t, err)
	require.Len(t, d.Blocks, 6)

	assert.Equal(t, blocks.Paragraph{Text: "keep me"}, d.Blocks[0].Data)
	assert.Equal(t, "h", d.Blocks[1].ID)
	assert.Equal(t, blocks.TypeHeader, d.Blocks[1].Type)
	assert.Equal(t, blocks.Other{"text": "Big", "level": "big"}, d.Blocks[1].Data)
	assert.Equal(t, blocks.Other{"text": float64(42)}, d.Blocks[3].Data)
	assert.Equal(t, "", d.Blocks[5].Type)

	assert.Equal(t, "<p>keep me</p><p>Big</p><p>42</p><p>typeless</p>", blocks.Render(d))

	var kinds []blocks.WarningKind
	for _, w := range blocks.Validate(d) {
		kinds = append(kinds, w.Kind)
	}
	assert.Equal(t, []blocks.WarningKind{
		blocks.WarningMalformedBlock,
		blocks.WarningMalformedBlock,
		blocks.WarningMalformedBlock,
		blocks.WarningMalformedBlock,
		blocks.WarningUnknownBlock,
	}, kinds)
}

func TestEncode_MalformedBlockRoundTrips(t *testing.T) {
	in := `{"blocks": [{"type": "header", "data": {"text": "Big", "level": "big"}}]}`
	d, err := blocks.DecodeString(in)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, blocks.Encode(&buf, d))
	assert.Contains(t, buf.String(), `"level": "big"`)
	assert.Contains(t, buf.String(), `"type": "header"`)
}

func TestDecode_NoBlocks(t *testing.T) {
	d, err := blocks.DecodeString(`{"time": 5}`)
	require.NoError(t, err)
	assert.NotNil(t, d.Blocks)
	assert.Empty(t, d.Blocks)
	assert.Equal(t, "", blocks.Render(d))
}

func TestEncode_PreservesUnknownPayload(t *testing.T) {
	d, err := blocks.DecodeString(editorJSON)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, blocks.Encode(&buf, d))

	again, err := blocks.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, d.Blocks[9], again.Blocks[9])
	assert.Equal(t, blocks.Render(d), blocks.Render(again))
}

func TestBlock_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(blocks.Block{ID: "d", Type: blocks.TypeDelimiter, Data: blocks.Delimiter{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"d","type":"delimiter","data":{}}`, string(raw))

	raw, err = json.Marshal(blocks.Block{Type: "empty"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"empty","data":{}}`, string(raw))
}
