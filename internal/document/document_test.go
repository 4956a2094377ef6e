package document

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseScalarTypes(t *testing.T) {
	src := NewDocument()
	src.Set("d", &Node{Kind: KindDouble, Double: 3.5})
	src.Set("s", &Node{Kind: KindString, Str: "hi"})
	src.Set("b", &Node{Kind: KindBool, Bool: true})
	src.Set("n", &Node{Kind: KindNull})
	src.Set("i32", &Node{Kind: KindInt32, Int32: -7})
	src.Set("i64", &Node{Kind: KindInt64, Int64: 1 << 40})
	src.Set("bin", &Node{Kind: KindBinary, Binary: []byte{1, 2, 3}, SubType: 9})

	root := &Node{Kind: KindDocument, Doc: src}
	encoded, err := Encode(root)
	require.NoError(t, err)

	decoded, err := Parse(encoded)
	require.NoError(t, err)

	require.Equal(t, []string{"d", "s", "b", "n", "i32", "i64", "bin"}, decoded.Doc.Keys())

	if diff := cmp.Diff(root, decoded, cmp.AllowUnexported(Document{})); diff != "" {
		t.Fatalf("round-trip mismatch:\n%s", diff)
	}
}

func TestParseNestedDocumentAndArray(t *testing.T) {
	inner := NewDocument()
	inner.Set("x", &Node{Kind: KindInt32, Int32: 1})

	arr := []*Node{
		{Kind: KindInt32, Int32: 10},
		{Kind: KindInt32, Int32: 20},
		{Kind: KindInt32, Int32: 30},
	}

	root := NewDocument()
	root.Set("nested", &Node{Kind: KindDocument, Doc: inner})
	root.Set("list", &Node{Kind: KindArray, Arr: arr})

	encoded, err := Encode(&Node{Kind: KindDocument, Doc: root})
	require.NoError(t, err)

	decoded, err := Parse(encoded)
	require.NoError(t, err)

	nested, ok := decoded.Field("nested")
	require.True(t, ok)
	xNode, ok := nested.Field("x")
	require.True(t, ok)
	require.EqualValues(t, 1, xNode.Int32)

	list, ok := decoded.Field("list")
	require.True(t, ok)
	require.Len(t, list.AsArray(), 3)
	require.EqualValues(t, 20, list.AsArray()[1].Int32)
}

func TestUnknownTag(t *testing.T) {
	// The size prefix value is irrelevant here: parseValue fails on the
	// unrecognized tag before the declared-size check ever runs.
	data := []byte{
		0x07, 0x00, 0x00, 0x00,
		0x7F, 'x', 0x00,
	}
	_, err := Parse(data)
	require.Error(t, err)
	var tagErr *UnknownTagError
	require.ErrorAs(t, err, &tagErr)
	require.Equal(t, byte(0x7F), tagErr.Tag)
}

func TestDocumentSizeMismatch(t *testing.T) {
	// Declare a size far larger than what follows.
	data := []byte{0xFF, 0x00, 0x00, 0x00, 0x00}
	_, err := Parse(data)
	require.Error(t, err)
}

func TestStringEncodingIncludesTrailingNul(t *testing.T) {
	doc := NewDocument()
	doc.Set("name", &Node{Kind: KindString, Str: "Rock_Stone"})
	encoded, err := Encode(&Node{Kind: KindDocument, Doc: doc})
	require.NoError(t, err)

	decoded, err := Parse(encoded)
	require.NoError(t, err)
	s, ok := decoded.Field("name")
	require.True(t, ok)
	val, ok := s.AsString()
	require.True(t, ok)
	require.Equal(t, "Rock_Stone", val)
}

func TestEmptyDocumentRoundTrip(t *testing.T) {
	encoded, err := Encode(&Node{Kind: KindDocument, Doc: NewDocument()})
	require.NoError(t, err)
	require.Len(t, encoded, 5) // 4-byte size + end tag
	decoded, err := Parse(encoded)
	require.NoError(t, err)
	require.Equal(t, 0, decoded.Doc.Len())
}
