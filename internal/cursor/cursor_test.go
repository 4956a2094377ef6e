package cursor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFixedWidth(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0xFF}
	c := New(buf)

	v16, err := c.ReadU16BE()
	require.NoError(t, err)
	require.Equal(t, uint16(1), v16)

	v32, err := c.ReadU32BE()
	require.NoError(t, err)
	require.Equal(t, uint32(2), v32)

	v8, err := c.ReadU8()
	require.NoError(t, err)
	require.Equal(t, uint8(0xFF), v8)

	require.Equal(t, 0, c.Remaining())
}

func TestReadLittleEndian(t *testing.T) {
	buf := []byte{0x2A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	c := New(buf)
	v, err := c.ReadI64LE()
	require.NoError(t, err)
	require.EqualValues(t, 42, v)
}

func TestTruncated(t *testing.T) {
	c := New([]byte{0x01})
	_, err := c.ReadU32BE()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTruncated))
}

func TestReadCString(t *testing.T) {
	c := New([]byte{'h', 'i', 0x00, 'x'})
	s, err := c.ReadCString()
	require.NoError(t, err)
	require.Equal(t, "hi", s)
	require.Equal(t, 1, c.Remaining())
}

func TestReadCStringUnterminated(t *testing.T) {
	c := New([]byte{'h', 'i'})
	_, err := c.ReadCString()
	require.Error(t, err)
}

func TestSubCursor(t *testing.T) {
	c := New([]byte{1, 2, 3, 4, 5})
	sub, err := c.SubCursor(3)
	require.NoError(t, err)
	require.Equal(t, 3, sub.Len())
	require.Equal(t, 2, c.Remaining())

	b, err := sub.ReadBytes(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, b)
}

func TestSeekRelative(t *testing.T) {
	c := New([]byte{1, 2, 3, 4})
	require.NoError(t, c.SeekRelative(2))
	require.Equal(t, 2, c.Pos())
	require.NoError(t, c.SeekRelative(-1))
	require.Equal(t, 1, c.Pos())
	require.Error(t, c.SeekRelative(10))
}

func TestLengthPrefixedString(t *testing.T) {
	buf := []byte{3, 0, 0, 0, 'f', 'o', 'o'}
	c := New(buf)
	s, err := c.ReadLengthPrefixedString(LengthPrefixI32LE)
	require.NoError(t, err)
	require.Equal(t, "foo", s)
}
