// Package cursor provides a stateful, allocation-free reader over a byte
// slice, with per-call endianness so callers that mix big-endian outer
// framing and little-endian inner payloads don't need two reader types.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTruncated is returned (wrapped) whenever a read would cross the end
// of the underlying buffer.
var ErrTruncated = errors.New("cursor: truncated read")

// Cursor reads fixed- and variable-width values from a byte slice. The
// zero value is not usable; construct with New. A Cursor does not copy
// its backing slice and must not be used concurrently.
type Cursor struct {
	buf []byte
	pos int
}

// New wraps buf for sequential reading starting at offset 0.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

func (c *Cursor) require(n int) error {
	if n < 0 || c.pos+n > len(c.buf) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, c.pos, c.Remaining())
	}
	return nil
}

// SeekRelative advances (or rewinds, with a negative delta) the read
// position by delta bytes. It fails if the result would fall outside
// [0, Len()].
func (c *Cursor) SeekRelative(delta int) error {
	next := c.pos + delta
	if next < 0 || next > len(c.buf) {
		return fmt.Errorf("%w: seek to %d out of bounds [0,%d]", ErrTruncated, next, len(c.buf))
	}
	c.pos = next
	return nil
}

// ReadU8 reads one unsigned byte.
func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.require(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

// ReadU16BE reads a big-endian uint16.
func (c *Cursor) ReadU16BE() (uint16, error) {
	if err := c.require(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

// ReadU32BE reads a big-endian uint32.
func (c *Cursor) ReadU32BE() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadI16BE reads a big-endian int16.
func (c *Cursor) ReadI16BE() (int16, error) {
	v, err := c.ReadU16BE()
	return int16(v), err
}

// ReadI32BE reads a big-endian int32.
func (c *Cursor) ReadI32BE() (int32, error) {
	v, err := c.ReadU32BE()
	return int32(v), err
}

// ReadU32LE reads a little-endian uint32.
func (c *Cursor) ReadU32LE() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadI32LE reads a little-endian int32.
func (c *Cursor) ReadI32LE() (int32, error) {
	v, err := c.ReadU32LE()
	return int32(v), err
}

// ReadU16LE reads a little-endian uint16.
func (c *Cursor) ReadU16LE() (uint16, error) {
	if err := c.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

// ReadI64LE reads a little-endian int64.
func (c *Cursor) ReadI64LE() (int64, error) {
	if err := c.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return int64(v), nil
}

// ReadF64LE reads a little-endian IEEE-754 double.
func (c *Cursor) ReadF64LE() (float64, error) {
	if err := c.require(8); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return math.Float64frombits(bits), nil
}

// ReadBytes returns the next n bytes as a slice of the underlying buffer
// (not a copy — callers that retain it beyond the Cursor's lifetime must
// copy it themselves).
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadCString reads a NUL-terminated UTF-8 string, consuming the
// terminator but not including it in the returned value.
func (c *Cursor) ReadCString() (string, error) {
	end := c.pos
	for end < len(c.buf) && c.buf[end] != 0 {
		end++
	}
	if end >= len(c.buf) {
		return "", fmt.Errorf("%w: unterminated cstring starting at offset %d", ErrTruncated, c.pos)
	}
	s := string(c.buf[c.pos:end])
	c.pos = end + 1
	return s, nil
}

// LengthPrefix names the integer encoding used by ReadLengthPrefixedString.
type LengthPrefix int

const (
	// LengthPrefixI32LE is a little-endian 4-byte signed length prefix.
	LengthPrefixI32LE LengthPrefix = iota
)

// ReadLengthPrefixedString reads a string whose byte length is given by a
// prefix of the given encoding. The returned string excludes the prefix
// itself; it does not assume or strip any trailing NUL — callers that
// need NUL-inclusive semantics (as the document dialect's string tag
// does) handle that at the call site.
func (c *Cursor) ReadLengthPrefixedString(prefix LengthPrefix) (string, error) {
	var n int32
	switch prefix {
	case LengthPrefixI32LE:
		v, err := c.ReadI32LE()
		if err != nil {
			return "", err
		}
		n = v
	default:
		return "", fmt.Errorf("cursor: unknown length prefix kind %d", prefix)
	}
	if n < 0 {
		return "", fmt.Errorf("%w: negative length prefix %d", ErrTruncated, n)
	}
	b, err := c.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SubCursor returns a new Cursor over the next n bytes, advancing this
// Cursor past them. The sub-cursor shares the backing array.
func (c *Cursor) SubCursor(n int) (*Cursor, error) {
	b, err := c.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}
