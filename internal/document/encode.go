package document

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode re-emits a Node tree using the same tag-length-value rules
// Parse decodes, for the round-trip property spec §8 requires ("a byte
// sequence of exactly the length declared by its size prefix"). It is
// not a general-purpose writer for producing new region files — the
// core is read-only per spec §1 — only enough of one to verify the
// dialect is self-consistent.
func Encode(n *Node) ([]byte, error) {
	if n == nil || n.Kind != KindDocument {
		return nil, fmt.Errorf("%w: Encode requires a document-kind node", ErrUnexpectedShape)
	}
	return encodeDocument(n.Doc)
}

func encodeDocument(doc *Document) ([]byte, error) {
	var body bytes.Buffer
	for _, key := range doc.Keys() {
		val, _ := doc.Get(key)
		if err := encodeEntry(&body, key, val); err != nil {
			return nil, err
		}
	}
	body.WriteByte(tagEnd)

	total := 4 + body.Len()
	out := make([]byte, 4, total)
	binary.LittleEndian.PutUint32(out, uint32(total))
	out = append(out, body.Bytes()...)
	return out, nil
}

func encodeEntry(w *bytes.Buffer, key string, v *Node) error {
	tag, err := tagForKind(v.Kind)
	if err != nil {
		return err
	}
	w.WriteByte(tag)
	w.WriteString(key)
	w.WriteByte(0)
	return encodeValue(w, v)
}

func tagForKind(k Kind) (byte, error) {
	switch k {
	case KindDouble:
		return tagDouble, nil
	case KindString:
		return tagString, nil
	case KindDocument:
		return tagDocument, nil
	case KindArray:
		return tagArray, nil
	case KindBinary:
		return tagBinary, nil
	case KindBool:
		return tagBool, nil
	case KindNull:
		return tagNull, nil
	case KindInt32:
		return tagInt32, nil
	case KindInt64:
		return tagInt64, nil
	default:
		return 0, fmt.Errorf("%w: cannot encode kind %s", ErrUnexpectedShape, k)
	}
}

func encodeValue(w *bytes.Buffer, v *Node) error {
	switch v.Kind {
	case KindDouble:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.Double))
		w.Write(tmp[:])

	case KindString:
		payload := append([]byte(v.Str), 0)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		w.Write(lenBuf[:])
		w.Write(payload)

	case KindDocument:
		encoded, err := encodeDocument(v.Doc)
		if err != nil {
			return err
		}
		w.Write(encoded)

	case KindArray:
		arrDoc := NewDocument()
		for i, el := range v.Arr {
			arrDoc.Set(fmt.Sprintf("%d", i), el)
		}
		encoded, err := encodeDocument(arrDoc)
		if err != nil {
			return err
		}
		w.Write(encoded)

	case KindBinary:
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v.Binary)))
		w.Write(lenBuf[:])
		w.WriteByte(v.SubType)
		w.Write(v.Binary)

	case KindBool:
		if v.Bool {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}

	case KindNull:
		// no payload

	case KindInt32:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(v.Int32))
		w.Write(tmp[:])

	case KindInt64:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v.Int64))
		w.Write(tmp[:])

	default:
		return fmt.Errorf("%w: cannot encode kind %s", ErrUnexpectedShape, v.Kind)
	}
	return nil
}
