package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astei/hytaleregion/internal/document"
	"github.com/astei/hytaleregion/internal/section"
)

func str(s string) *document.Node  { return &document.Node{Kind: document.KindString, Str: s} }
func i32(v int32) *document.Node   { return &document.Node{Kind: document.KindInt32, Int32: v} }
func i64(v int64) *document.Node   { return &document.Node{Kind: document.KindInt64, Int64: v} }
func boolNode(b bool) *document.Node { return &document.Node{Kind: document.KindBool, Bool: b} }

func docNode(fields map[string]*document.Node, order []string) *document.Node {
	d := document.NewDocument()
	for _, k := range order {
		d.Set(k, fields[k])
	}
	return &document.Node{Kind: document.KindDocument, Doc: d}
}

func arrNode(elems ...*document.Node) *document.Node {
	return &document.Node{Kind: document.KindArray, Arr: elems}
}

func TestAssembleRequiresComponents(t *testing.T) {
	root := docNode(map[string]*document.Node{"Version": i32(1)}, []string{"Version"})
	_, err := Assemble(root, 0, 0)
	require.ErrorIs(t, err, ErrMissingComponents)
}

func TestAssembleEmptyChunkColumn(t *testing.T) {
	components := docNode(nil, nil)
	root := docNode(map[string]*document.Node{
		"Version":    i32(2),
		"Components": components,
	}, []string{"Version", "Components"})

	pc, err := Assemble(root, 5, -3)
	require.NoError(t, err)
	require.EqualValues(t, 2, pc.Version)
	require.Equal(t, int32(5), pc.ChunkX)
	require.Equal(t, int32(-3), pc.ChunkZ)
	require.Empty(t, pc.Sections)
	require.Empty(t, pc.BlockComponents)
}

func TestAssembleContainerExtraction(t *testing.T) {
	// BlockComponent at packed key "65" => section 0, local position 65
	// => (x=1, y=0, z=2), matching the spec's worked example.
	item := docNode(map[string]*document.Node{
		"Id":       str("Ore_Copper"),
		"Quantity": i64(4),
	}, []string{"Id", "Quantity"})

	container := docNode(map[string]*document.Node{
		"Capacity": i32(18),
		"Items":    arrNode(item),
	}, []string{"Capacity", "Items"})

	componentTree := docNode(map[string]*document.Node{
		"container": container,
	}, []string{"container"})

	blockComponents := docNode(map[string]*document.Node{
		"65": componentTree,
	}, []string{"65"})

	blockComponentChunk := docNode(map[string]*document.Node{
		"BlockComponents": blockComponents,
	}, []string{"BlockComponents"})

	components := docNode(map[string]*document.Node{
		"BlockComponentChunk": blockComponentChunk,
	}, []string{"BlockComponentChunk"})

	root := docNode(map[string]*document.Node{
		"Version":    i32(1),
		"Components": components,
	}, []string{"Version", "Components"})

	pc, err := Assemble(root, 2, -3)
	require.NoError(t, err)
	require.Len(t, pc.BlockComponents, 1)
	bc := pc.BlockComponents[0]
	require.Equal(t, 0, bc.SectionIndex)
	require.Equal(t, 1, bc.X)
	require.Equal(t, 0, bc.Y)
	require.Equal(t, 2, bc.Z)
	require.Equal(t, int32(65), bc.WorldX)
	require.Equal(t, int32(0), bc.WorldY)
	require.Equal(t, int32(-94), bc.WorldZ)

	require.Len(t, pc.Containers, 1)
	ic := pc.Containers[0]
	require.EqualValues(t, 18, ic.Capacity)
	require.Equal(t, int32(65), ic.WorldX)
	require.Equal(t, int32(0), ic.WorldY)
	require.Equal(t, int32(-94), ic.WorldZ)
	require.Len(t, ic.Items, 1)
	require.Equal(t, "Ore_Copper", ic.Items[0].ID)
	require.EqualValues(t, 4, ic.Items[0].Quantity)
}

func TestAssembleEntitiesPassThroughVerbatim(t *testing.T) {
	entity := docNode(map[string]*document.Node{"Type": str("Chicken")}, []string{"Type"})
	entityChunk := docNode(map[string]*document.Node{
		"Entities": arrNode(entity),
	}, []string{"Entities"})
	components := docNode(map[string]*document.Node{
		"EntityChunk": entityChunk,
	}, []string{"EntityChunk"})
	root := docNode(map[string]*document.Node{
		"Version":    i32(1),
		"Components": components,
	}, []string{"Version", "Components"})

	pc, err := Assemble(root, 0, 0)
	require.NoError(t, err)
	require.Len(t, pc.Entities, 1)
	typeNode, ok := pc.Entities[0].Raw.Field("Type")
	require.True(t, ok)
	name, ok := typeNode.AsString()
	require.True(t, ok)
	require.Equal(t, "Chicken", name)
}

func TestInverseLinearIndexRoundTrip(t *testing.T) {
	for x := 0; x < 32; x += 7 {
		for y := 0; y < 32; y += 5 {
			for z := 0; z < 32; z += 3 {
				lin := x + z*32 + y*1024
				gx, gy, gz := section.InverseLinearIndex(lin)
				require.Equal(t, x, gx)
				require.Equal(t, y, gy)
				require.Equal(t, z, gz)
			}
		}
	}
}

func TestAssembleRejectsNonStringBlockData(t *testing.T) {
	blockNode := docNode(map[string]*document.Node{"Data": boolNode(true)}, []string{"Data"})
	sectionElem := docNode(map[string]*document.Node{"Block": blockNode}, []string{"Block"})
	chunkColumn := docNode(map[string]*document.Node{
		"Sections": arrNode(sectionElem),
	}, []string{"Sections"})
	components := docNode(map[string]*document.Node{
		"ChunkColumn": chunkColumn,
	}, []string{"ChunkColumn"})
	root := docNode(map[string]*document.Node{
		"Version":    i32(1),
		"Components": components,
	}, []string{"Version", "Components"})

	_, err := Assemble(root, 0, 0)
	require.Error(t, err)
}
