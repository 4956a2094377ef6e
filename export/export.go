// Package export serializes parsed chunks to the textual output format
// spec.md §6 describes: world-coordinate keys of the form "x,y,z"
// mapped to {name, components} records, validated against an embedded
// JSON Schema before being written.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/astei/hytaleregion/internal/chunk"
	"github.com/astei/hytaleregion/internal/document"
	"github.com/astei/hytaleregion/internal/section"
	"github.com/astei/hytaleregion/region"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "hytaleregion://voxel-export.schema.json"

// VoxelRecord is the per-position record the output document maps
// "x,y,z" keys to.
type VoxelRecord struct {
	Name       string      `json:"name,omitempty"`
	Components interface{} `json:"components,omitempty"`
}

// Document is the full exported region: the voxel map plus the
// region-level summary that produced it.
type Document struct {
	RegionX     int32                  `json:"region_x"`
	RegionZ     int32                  `json:"region_z"`
	ChunkCount  int                    `json:"chunk_count"`
	BlockCounts map[string]int64       `json:"block_counts,omitempty"`
	Voxels      map[string]VoxelRecord `json:"voxels"`
}

// ToDocument builds the exported Document from a region summary and
// the parsed chunks it was computed over. Per spec.md §6, a key is
// written for every voxel whose palette entry is non-default and for
// every position that has a block component; positions that are both
// get one merged record. includeTerrainBlocks mirrors the
// distillation's original `--no-blocks`/`include_all_blocks` switch
// (original_source/src/hytale_region_parser/cli.py): when false, the
// terrain voxel sweep below is skipped entirely and the document keeps
// only block-component/container positions.
func ToDocument(summary *region.Summary, chunks []*chunk.ParsedChunk, includeTerrainBlocks bool) *Document {
	doc := &Document{
		RegionX:     summary.RegionX,
		RegionZ:     summary.RegionZ,
		ChunkCount:  summary.ChunkCount,
		BlockCounts: summary.BlockCounts,
		Voxels:      make(map[string]VoxelRecord),
	}

	for _, pc := range chunks {
		if includeTerrainBlocks {
			for _, sec := range pc.Sections {
				nd := sec.NonDefaultPositions()
				if nd == nil {
					continue
				}
				for lin := 0; lin < section.VoxelCount; lin++ {
					if !nd.Test(uint(lin)) {
						continue
					}
					x, y, z := section.InverseLinearIndex(lin)
					name, err := sec.BlockAt(x, y, z)
					if err != nil {
						continue
					}
					key := worldKey(pc.ChunkX*32+int32(x), int32(sec.YSection)*32+int32(y), pc.ChunkZ*32+int32(z))
					doc.Voxels[key] = VoxelRecord{Name: name}
				}
			}
		}

		for _, bc := range pc.BlockComponents {
			key := worldKey(bc.WorldX, bc.WorldY, bc.WorldZ)
			rec := doc.Voxels[key]
			if rec.Name == "" {
				if name, ok := blockNameAt(pc, bc); ok {
					rec.Name = name
				}
			}
			rec.Components = nodeToJSON(bc.ComponentTree)
			doc.Voxels[key] = rec
		}
	}

	return doc
}

func worldKey(x, y, z int32) string {
	return fmt.Sprintf("%d,%d,%d", x, y, z)
}

func blockNameAt(pc *chunk.ParsedChunk, bc chunk.BlockComponent) (string, bool) {
	for _, sec := range pc.Sections {
		if sec.YSection == bc.SectionIndex {
			name, err := sec.BlockAt(bc.X, bc.Y, bc.Z)
			return name, err == nil
		}
	}
	return "", false
}

// nodeToJSON converts a document.Node into a plain Go value suitable
// for encoding/json, so pass-through component trees serialize as
// ordinary JSON objects/arrays instead of leaking the dialect's
// internal node shape.
func nodeToJSON(n *document.Node) interface{} {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case document.KindDouble:
		return n.Double
	case document.KindString:
		return n.Str
	case document.KindBool:
		return n.Bool
	case document.KindNull:
		return nil
	case document.KindInt32:
		return n.Int32
	case document.KindInt64:
		return n.Int64
	case document.KindBinary:
		return n.Binary
	case document.KindArray:
		out := make([]interface{}, len(n.Arr))
		for i, el := range n.Arr {
			out[i] = nodeToJSON(el)
		}
		return out
	case document.KindDocument:
		out := make(map[string]interface{})
		for _, k := range n.Doc.Keys() {
			v, _ := n.Doc.Get(k)
			out[k] = nodeToJSON(v)
		}
		return out
	default:
		return nil
	}
}

// Validate checks doc's JSON representation against the embedded
// schema, catching a malformed key or missing required field at this
// boundary rather than downstream in whatever consumes the output.
func Validate(doc *Document) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("export: loading schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("export: compiling schema: %w", err)
	}

	raw, err := json.Marshal(doc.Voxels)
	if err != nil {
		return fmt.Errorf("export: marshaling for validation: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("export: unmarshaling for validation: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("export: schema validation: %w", err)
	}
	return nil
}

// WriteJSON encodes doc to w, indenting when compact is false.
func WriteJSON(w io.Writer, doc *Document, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}
