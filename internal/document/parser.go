package document

import (
	"fmt"

	"github.com/astei/hytaleregion/internal/cursor"
)

// Type tags, per spec §4.4.
const (
	tagEnd      = 0x00
	tagDouble   = 0x01
	tagString   = 0x02
	tagDocument = 0x03
	tagArray    = 0x04
	tagBinary   = 0x05
	tagBool     = 0x08
	tagNull     = 0x0A
	tagInt32    = 0x10
	tagInt64    = 0x12
)

// Parse decodes a single root document from data and returns it as a
// Document-kind Node.
func Parse(data []byte) (*Node, error) {
	c := cursor.New(data)
	doc, err := parseDocument(c)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindDocument, Doc: doc}, nil
}

// parseDocument reads the 4-byte little-endian size prefix, then the
// (tag, key, value) stream up to the end sentinel, and verifies the
// declared size accounts for exactly the bytes consumed — including
// the size field and the terminating 0x00 — matching BSON's own
// self-describing document framing.
func parseDocument(c *cursor.Cursor) (*Document, error) {
	start := c.Pos()
	size, err := c.ReadI32LE()
	if err != nil {
		return nil, err
	}
	if size < 4 {
		return nil, fmt.Errorf("%w: declared size %d is smaller than the size field itself", ErrSizeMismatch, size)
	}

	doc := NewDocument()
	for {
		tag, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		if tag == tagEnd {
			break
		}
		key, err := c.ReadCString()
		if err != nil {
			return nil, err
		}
		val, err := parseValue(c, tag)
		if err != nil {
			return nil, err
		}
		doc.Set(key, val)
	}

	consumed := c.Pos() - start
	if consumed != int(size) {
		return nil, fmt.Errorf("%w: declared %d bytes, consumed %d", ErrSizeMismatch, size, consumed)
	}
	return doc, nil
}

func parseValue(c *cursor.Cursor, tag byte) (*Node, error) {
	switch tag {
	case tagDouble:
		v, err := c.ReadF64LE()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindDouble, Double: v}, nil

	case tagString:
		s, err := parseString(c)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindString, Str: s}, nil

	case tagDocument:
		doc, err := parseDocument(c)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindDocument, Doc: doc}, nil

	case tagArray:
		doc, err := parseDocument(c)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindArray, Arr: doc.Values()}, nil

	case tagBinary:
		length, err := c.ReadI32LE()
		if err != nil {
			return nil, err
		}
		if length < 0 {
			return nil, fmt.Errorf("%w: negative binary length %d", ErrSizeMismatch, length)
		}
		subtype, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		data, err := c.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindBinary, Binary: append([]byte(nil), data...), SubType: subtype}, nil

	case tagBool:
		b, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindBool, Bool: b != 0}, nil

	case tagNull:
		return &Node{Kind: KindNull}, nil

	case tagInt32:
		v, err := c.ReadI32LE()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindInt32, Int32: v}, nil

	case tagInt64:
		v, err := c.ReadI64LE()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindInt64, Int64: v}, nil

	default:
		return nil, &UnknownTagError{Tag: tag}
	}
}

// parseString reads the dialect's string encoding: an i32 LE length
// that counts the payload bytes *and* the trailing NUL, followed by
// that many bytes whose last byte must be the NUL terminator.
func parseString(c *cursor.Cursor) (string, error) {
	length, err := c.ReadI32LE()
	if err != nil {
		return "", err
	}
	if length < 1 {
		return "", fmt.Errorf("%w: invalid string length %d", ErrSizeMismatch, length)
	}
	raw, err := c.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	if raw[len(raw)-1] != 0 {
		return "", fmt.Errorf("%w: string not NUL-terminated", ErrSizeMismatch)
	}
	return string(raw[:len(raw)-1]), nil
}
