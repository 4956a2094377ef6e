// Package chunk assembles a decoded document tree for one region slot
// into a ParsedChunk: sections, block components, containers, entities,
// and the set of distinct block names.
package chunk

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/astei/hytaleregion/internal/document"
	"github.com/astei/hytaleregion/internal/intern"
	"github.com/astei/hytaleregion/internal/section"
)

// itemIDs interns item ID strings across every container decoded in
// the process, for the same reason section interns palette names: a
// small vocabulary repeats across every slot in a region.
var itemIDs = intern.New(intern.DefaultCapacity)

// SectionsPerColumn bounds the vertical sections a chunk column may
// declare; the Sections array may be shorter.
const SectionsPerColumn = 10

// ParsedChunk is the aggregate produced for one non-empty region slot.
type ParsedChunk struct {
	ChunkX, ChunkZ int32
	Version        int64

	Sections        []*section.ChunkSection
	BlockComponents []BlockComponent
	Containers      []*ItemContainer
	Entities        []Entity
	BlockNames      []string

	// RawComponents is the Components document verbatim, for callers
	// that need data this assembler does not interpret.
	RawComponents *document.Node
}

// BlockComponent is a per-voxel side record attached to a single voxel.
type BlockComponent struct {
	SectionIndex      int
	PositionInSection int
	X, Y, Z           int // local to the section, each in [0,32)
	WorldX            int32
	WorldY            int32
	WorldZ            int32
	ComponentTree     *document.Node
}

// Item is an opaque item record; only Id and Quantity are lifted out
// when present, everything else stays in Raw.
type Item struct {
	Raw      *document.Node
	ID       string
	Quantity int64
}

// ItemContainer is derived from a BlockComponent whose component tree
// contains a "container" subdocument.
type ItemContainer struct {
	WorldX, WorldY, WorldZ int32
	Capacity               uint32
	Items                  []Item
	CustomName             *string
	AllowViewing           *bool
	WhoPlacedUuid          *string
	PlacedByInteraction    bool
}

// Entity is a pass-through record from Components.EntityChunk.Entities;
// the source notes an unresolved issue parsing entity names, so the raw
// subtree is preserved without any fabricated name field.
type Entity struct {
	Raw *document.Node
}

// Assemble builds a ParsedChunk from a chunk slot's decoded root
// document, following the producer's field layout for
// Components.ChunkColumn.Sections, Components.BlockComponentChunk.BlockComponents,
// and Components.EntityChunk.Entities.
func Assemble(root *document.Node, chunkX, chunkZ int32) (*ParsedChunk, error) {
	if root == nil || root.Kind != document.KindDocument {
		return nil, fmt.Errorf("%w: root is not a document", ErrUnexpectedShape)
	}

	var version int64
	if v, ok := root.Field("Version"); ok {
		version, _ = v.AsInt64()
	}

	componentsNode, ok := root.Field("Components")
	if !ok || componentsNode.Kind != document.KindDocument {
		return nil, ErrMissingComponents
	}

	pc := &ParsedChunk{
		ChunkX:        chunkX,
		ChunkZ:        chunkZ,
		Version:       version,
		RawComponents: componentsNode,
	}

	sections, err := assembleSections(componentsNode)
	if err != nil {
		return nil, err
	}
	pc.Sections = sections

	components, containers, err := assembleBlockComponents(componentsNode, chunkX, chunkZ)
	if err != nil {
		return nil, err
	}
	pc.BlockComponents = components
	pc.Containers = containers

	pc.Entities = assembleEntities(componentsNode)
	pc.BlockNames = collectBlockNames(sections)

	return pc, nil
}

func assembleSections(components *document.Node) ([]*section.ChunkSection, error) {
	chunkColumn, ok := components.Field("ChunkColumn")
	if !ok {
		return nil, nil
	}
	sectionsArr, ok := chunkColumn.Field("Sections")
	if !ok {
		return nil, nil
	}
	elems := sectionsArr.AsArray()
	if len(elems) > SectionsPerColumn {
		return nil, fmt.Errorf("%w: %d sections exceeds the %d-section column limit", ErrUnexpectedShape, len(elems), SectionsPerColumn)
	}

	out := make([]*section.ChunkSection, len(elems))
	for i, elem := range elems {
		blockNode, ok := elem.Field("Block")
		if !ok {
			out[i] = section.Empty(i)
			continue
		}
		dataNode, ok := blockNode.Field("Data")
		if !ok {
			out[i] = section.Empty(i)
			continue
		}
		hexPayload, ok := dataNode.AsString()
		if !ok {
			return nil, fmt.Errorf("%w: section %d Block.Data is not a string", ErrUnexpectedShape, i)
		}
		sec, err := section.Decode(hexPayload, i)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		out[i] = sec
	}
	return out, nil
}

func assembleBlockComponents(components *document.Node, chunkX, chunkZ int32) ([]BlockComponent, []*ItemContainer, error) {
	bcChunk, ok := components.Field("BlockComponentChunk")
	if !ok {
		return nil, nil, nil
	}
	bcDoc, ok := bcChunk.Field("BlockComponents")
	if !ok || bcDoc.Kind != document.KindDocument {
		return nil, nil, nil
	}

	var comps []BlockComponent
	var containers []*ItemContainer
	for _, key := range bcDoc.Doc.Keys() {
		packed, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: key %q", ErrBadComponentKey, key)
		}
		sectionIndex := int(packed / section.VoxelCount)
		localLinear := int(packed % section.VoxelCount)
		x, y, z := section.InverseLinearIndex(localLinear)

		worldX := chunkX*32 + int32(x)
		worldY := int32(sectionIndex)*32 + int32(y)
		worldZ := chunkZ*32 + int32(z)

		tree, _ := bcDoc.Field(key)
		bc := BlockComponent{
			SectionIndex:      sectionIndex,
			PositionInSection: localLinear,
			X:                 x,
			Y:                 y,
			Z:                 z,
			WorldX:            worldX,
			WorldY:            worldY,
			WorldZ:            worldZ,
			ComponentTree:     tree,
		}
		comps = append(comps, bc)

		if containerNode, ok := tree.Field("container"); ok {
			containers = append(containers, buildContainer(containerNode, worldX, worldY, worldZ))
		}
	}
	return comps, containers, nil
}

func buildContainer(containerNode *document.Node, worldX, worldY, worldZ int32) *ItemContainer {
	ic := &ItemContainer{WorldX: worldX, WorldY: worldY, WorldZ: worldZ}

	if cap, ok := containerNode.Field("Capacity"); ok {
		if v, ok := cap.AsInt64(); ok {
			ic.Capacity = uint32(v)
		}
	}
	if itemsNode, ok := containerNode.Field("Items"); ok {
		for _, itemNode := range itemsNode.AsArray() {
			item := Item{Raw: itemNode}
			if idNode, ok := itemNode.Field("Id"); ok {
				if id, ok := idNode.AsString(); ok {
					item.ID = itemIDs.InternString(id)
				}
			}
			if qtyNode, ok := itemNode.Field("Quantity"); ok {
				item.Quantity, _ = qtyNode.AsInt64()
			}
			ic.Items = append(ic.Items, item)
		}
	}
	if nameNode, ok := containerNode.Field("Custom_Name"); ok && nameNode.Kind != document.KindNull {
		if s, ok := nameNode.AsString(); ok {
			ic.CustomName = &s
		}
	}
	if viewNode, ok := containerNode.Field("AllowViewing"); ok {
		if b, ok := viewNode.AsBool(); ok {
			ic.AllowViewing = &b
		}
	}
	if uuidNode, ok := containerNode.Field("WhoPlacedUuid"); ok && uuidNode.Kind != document.KindNull {
		if s, ok := uuidNode.AsString(); ok {
			ic.WhoPlacedUuid = &s
		}
	}
	if interactionNode, ok := containerNode.Field("PlacedByInteraction"); ok {
		if b, ok := interactionNode.AsBool(); ok {
			ic.PlacedByInteraction = b
		}
	}
	return ic
}

func assembleEntities(components *document.Node) []Entity {
	entityChunk, ok := components.Field("EntityChunk")
	if !ok {
		return nil
	}
	entitiesNode, ok := entityChunk.Field("Entities")
	if !ok {
		return nil
	}
	elems := entitiesNode.AsArray()
	out := make([]Entity, len(elems))
	for i, e := range elems {
		out[i] = Entity{Raw: e}
	}
	return out
}

func collectBlockNames(sections []*section.ChunkSection) []string {
	seen := make(map[string]struct{})
	for _, sec := range sections {
		for _, entry := range sec.Palette {
			seen[entry.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
