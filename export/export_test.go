package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astei/hytaleregion/internal/chunk"
	"github.com/astei/hytaleregion/internal/document"
	"github.com/astei/hytaleregion/internal/section"
	"github.com/astei/hytaleregion/region"
)

func byteSectionWithOneRareVoxel(t *testing.T, ySection int, rareLinear int) *section.ChunkSection {
	t.Helper()
	palette := []section.PaletteEntry{{Name: "Common"}, {Name: "Rare"}}
	var buf bytes.Buffer
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(0) // migration version
	buf.WriteByte(2) // Byte palette type
	buf.WriteByte(0)
	buf.WriteByte(byte(len(palette)))
	for _, p := range palette {
		buf.WriteByte(p.InternalID)
		nameLen := len(p.Name)
		buf.WriteByte(byte(nameLen >> 8))
		buf.WriteByte(byte(nameLen))
		buf.WriteString(p.Name)
		buf.WriteByte(0)
		buf.WriteByte(0)
	}
	indices := make([]byte, section.VoxelCount)
	indices[rareLinear] = 1
	buf.Write(indices)

	sec, err := section.Decode(hexEncode(buf.Bytes()), ySection)
	require.NoError(t, err)
	return sec
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0F]
	}
	return string(out)
}

func TestToDocumentIncludesNonDefaultVoxel(t *testing.T) {
	sec := byteSectionWithOneRareVoxel(t, 0, 42)
	pc := &chunk.ParsedChunk{ChunkX: 0, ChunkZ: 0, Sections: []*section.ChunkSection{sec}}
	summary := &region.Summary{RegionX: 0, RegionZ: 0, ChunkCount: 1}

	doc := ToDocument(summary, []*chunk.ParsedChunk{pc}, true)

	x, y, z := section.InverseLinearIndex(42)
	key := worldKey(int32(x), int32(y), int32(z))
	rec, ok := doc.Voxels[key]
	require.True(t, ok)
	require.Equal(t, "Rare", rec.Name)
}

func TestToDocumentMergesComponentIntoExistingVoxel(t *testing.T) {
	sec := byteSectionWithOneRareVoxel(t, 0, 42)
	x, y, z := section.InverseLinearIndex(42)

	tree := &document.Node{Kind: document.KindDocument, Doc: document.NewDocument()}
	tree.Doc.Set("container", &document.Node{Kind: document.KindDocument, Doc: document.NewDocument()})

	pc := &chunk.ParsedChunk{
		ChunkX:   0,
		ChunkZ:   0,
		Sections: []*section.ChunkSection{sec},
		BlockComponents: []chunk.BlockComponent{
			{SectionIndex: 0, X: x, Y: y, Z: z, WorldX: int32(x), WorldY: int32(y), WorldZ: int32(z), ComponentTree: tree},
		},
	}
	summary := &region.Summary{RegionX: 0, RegionZ: 0, ChunkCount: 1}

	doc := ToDocument(summary, []*chunk.ParsedChunk{pc}, true)
	key := worldKey(int32(x), int32(y), int32(z))
	rec, ok := doc.Voxels[key]
	require.True(t, ok)
	require.Equal(t, "Rare", rec.Name)
	require.NotNil(t, rec.Components)
}

func TestToDocumentExcludesTerrainWhenDisabled(t *testing.T) {
	sec := byteSectionWithOneRareVoxel(t, 0, 42)
	x, y, z := section.InverseLinearIndex(42)

	tree := &document.Node{Kind: document.KindDocument, Doc: document.NewDocument()}
	tree.Doc.Set("container", &document.Node{Kind: document.KindDocument, Doc: document.NewDocument()})

	componentX, componentY, componentZ := section.InverseLinearIndex(1)
	pc := &chunk.ParsedChunk{
		ChunkX:   0,
		ChunkZ:   0,
		Sections: []*section.ChunkSection{sec},
		BlockComponents: []chunk.BlockComponent{
			{SectionIndex: 0, X: componentX, Y: componentY, Z: componentZ, WorldX: int32(componentX), WorldY: int32(componentY), WorldZ: int32(componentZ), ComponentTree: tree},
		},
	}
	summary := &region.Summary{RegionX: 0, RegionZ: 0, ChunkCount: 1}

	doc := ToDocument(summary, []*chunk.ParsedChunk{pc}, false)

	terrainKey := worldKey(int32(x), int32(y), int32(z))
	_, ok := doc.Voxels[terrainKey]
	require.False(t, ok, "terrain-only voxel must be excluded when includeTerrainBlocks is false")

	componentKey := worldKey(int32(componentX), int32(componentY), int32(componentZ))
	rec, ok := doc.Voxels[componentKey]
	require.True(t, ok, "block-component position must still be present")
	require.NotNil(t, rec.Components)
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	doc := &Document{
		RegionX: 0, RegionZ: 0, ChunkCount: 1,
		Voxels: map[string]VoxelRecord{
			"1,2,3": {Name: "Rock_Stone"},
		},
	}
	require.NoError(t, Validate(doc))
}

func TestValidateRejectsMalformedKey(t *testing.T) {
	doc := &Document{
		Voxels: map[string]VoxelRecord{
			"not-a-position": {Name: "Rock_Stone"},
		},
	}
	require.Error(t, Validate(doc))
}

func TestWriteJSONCompactVsIndented(t *testing.T) {
	doc := &Document{Voxels: map[string]VoxelRecord{"0,0,0": {Name: "Air"}}}

	var compact bytes.Buffer
	require.NoError(t, WriteJSON(&compact, doc, true))

	var indented bytes.Buffer
	require.NoError(t, WriteJSON(&indented, doc, false))

	require.True(t, len(indented.Bytes()) > len(compact.Bytes()))

	var roundTrip Document
	require.NoError(t, json.Unmarshal(compact.Bytes(), &roundTrip))
	require.Equal(t, "Air", roundTrip.Voxels["0,0,0"].Name)
}
