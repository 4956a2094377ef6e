// Package storage implements the IndexedStorageReader layer: the outer
// container format a Hytale .region.bin file uses to pack up to
// blob_count independently-compressed chunk payloads behind a sparse
// slot index table.
//
// This is a direct descendant of the teacher's Anvil sector-table reader
// (32x32 chunk grid, sparse index table, per-slot compressed payload) —
// same shape, retargeted to Hytale's header, big-endian slot table, and
// blob framing instead of Minecraft's packed sector/length/compression
// byte.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/astei/hytaleregion/internal/cursor"
)

const (
	magicString  = "HytaleIndexedStorage"
	magicLength  = 20
	headerLength = 32 // magic(20) + version(4) + blob_count(4) + segment_size(4)
	blobHeaderLen = 8 // source_length(4) + compressed_length(4)
)

// Header is the validated, fixed-size prefix of a region file.
type Header struct {
	Version     uint32
	BlobCount   uint32
	SegmentSize uint32
}

// Reader opens a region file, validates its header, and loads the slot
// index table. It is not safe for concurrent use; a caller that wants to
// process several region files in parallel should open one Reader per
// file per goroutine (see spec §5).
type Reader struct {
	path      string
	source    io.ReaderAt
	closer    io.Closer
	header    Header
	slotIndex []uint32
}

// Open opens the region file at path and reads its header and slot
// index table.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	r, err := newReader(path, f, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// OpenReaderAt builds a Reader over an arbitrary io.ReaderAt (e.g. a
// bytes.Reader in tests), identified by name for error messages. The
// returned Reader's Close calls closer.Close; closer may be nil.
func OpenReaderAt(name string, source io.ReaderAt, closer io.Closer) (*Reader, error) {
	return newReader(name, source, closer)
}

func newReader(path string, source io.ReaderAt, closer io.Closer) (*Reader, error) {
	r := &Reader{path: path, source: source, closer: closer}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	if err := r.readSlotIndex(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) readAt(n int, offset int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := r.source.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && read == n) {
		return nil, fileErr(r.path, -1, offset, fmt.Errorf("%w: %v", ErrTruncated, err))
	}
	if read != n {
		return nil, fileErr(r.path, -1, offset, fmt.Errorf("%w: read %d of %d bytes", ErrTruncated, read, n))
	}
	return buf, nil
}

func (r *Reader) readHeader() error {
	raw, err := r.readAt(headerLength, 0)
	if err != nil {
		return err
	}

	if string(raw[:magicLength]) != magicString {
		return fileErr(r.path, -1, 0, ErrBadMagic)
	}

	c := cursor.New(raw[magicLength:])
	version, err := c.ReadU32BE()
	if err != nil {
		return fileErr(r.path, -1, magicLength, err)
	}
	if version > 1 {
		return fileErr(r.path, -1, magicLength, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, version))
	}
	blobCount, err := c.ReadU32BE()
	if err != nil {
		return fileErr(r.path, -1, magicLength+4, err)
	}
	segmentSize, err := c.ReadU32BE()
	if err != nil {
		return fileErr(r.path, -1, magicLength+8, err)
	}

	r.header = Header{Version: version, BlobCount: blobCount, SegmentSize: segmentSize}
	return nil
}

func (r *Reader) readSlotIndex() error {
	n := int(r.header.BlobCount)
	raw, err := r.readAt(n*4, headerLength)
	if err != nil {
		return err
	}
	c := cursor.New(raw)
	slots := make([]uint32, n)
	for i := 0; i < n; i++ {
		v, err := c.ReadU32BE()
		if err != nil {
			return fileErr(r.path, i, int64(headerLength+i*4), err)
		}
		slots[i] = v
	}
	r.slotIndex = slots
	return nil
}

// Header returns the validated file header.
func (r *Reader) Header() Header { return r.header }

// Path returns the name the Reader was opened with (a real filesystem
// path for Open, or the identifier passed to OpenReaderAt).
func (r *Reader) Path() string { return r.path }

// segmentsBase is the file offset where the segment area begins, right
// after the header and the slot index table.
func (r *Reader) segmentsBase() int64 {
	return int64(headerLength) + int64(r.header.BlobCount)*4
}

// segmentPosition mirrors the producer's slot-index-to-offset mapping
// bit-exactly: this is spec §4.2's "opaque u32-to-offset" mapping, and
// per §9 must never be reinterpreted, only mirrored.
func (r *Reader) segmentPosition(segmentIndex uint32) (int64, error) {
	if segmentIndex == 0 {
		return 0, fmt.Errorf("%w: segment index 0 is reserved for empty slots", ErrBadSegmentPointer)
	}
	offset := int64(segmentIndex-1) * int64(r.header.SegmentSize)
	return offset + r.segmentsBase(), nil
}

// SlotPayload returns the compressed bytes for slot i along with the
// decompressed size the producer recorded, or ok=false if the slot is
// empty (slot_index[i] == 0).
func (r *Reader) SlotPayload(i int) (compressed []byte, sourceLength uint32, ok bool, err error) {
	if i < 0 || i >= len(r.slotIndex) {
		return nil, 0, false, fileErr(r.path, i, -1, fmt.Errorf("storage: slot %d out of range [0,%d)", i, len(r.slotIndex)))
	}
	segIdx := r.slotIndex[i]
	if segIdx == 0 {
		return nil, 0, false, nil
	}

	pos, err := r.segmentPosition(segIdx)
	if err != nil {
		return nil, 0, false, fileErr(r.path, i, -1, err)
	}

	blobHeader, err := r.readAt(blobHeaderLen, pos)
	if err != nil {
		return nil, 0, false, fileErr(r.path, i, pos, ErrBadSegmentPointer)
	}
	hc := cursor.New(blobHeader)
	srcLen, err := hc.ReadU32BE()
	if err != nil {
		return nil, 0, false, fileErr(r.path, i, pos, err)
	}
	compLen, err := hc.ReadU32BE()
	if err != nil {
		return nil, 0, false, fileErr(r.path, i, pos+4, err)
	}

	body, err := r.readAt(int(compLen), pos+int64(blobHeaderLen))
	if err != nil {
		return nil, 0, false, fileErr(r.path, i, pos+int64(blobHeaderLen), ErrTruncated)
	}
	return body, srcLen, true, nil
}

// NonEmptySlots returns the ascending list of slot indices whose index
// table entry is non-zero.
func (r *Reader) NonEmptySlots() []int {
	var out []int
	for i, v := range r.slotIndex {
		if v != 0 {
			out = append(out, i)
		}
	}
	return out
}

// SlotCount returns blob_count, the total number of slots (empty or
// not) in the region grid.
func (r *Reader) SlotCount() int { return len(r.slotIndex) }

// Close releases the underlying file handle, if any.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

var regionFilenamePattern = regexp.MustCompile(`^(-?\d+)\.(-?\d+)\.region\.bin$`)

// ParseRegionCoordinates extracts (region_x, region_z) from a region
// file name of the form "<x>.<z>.region.bin", x and z being signed
// decimal integers.
func ParseRegionCoordinates(path string) (regionX, regionZ int32, err error) {
	name := filepath.Base(path)
	m := regionFilenamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	x, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrBadFilename, name, err)
	}
	z, err := strconv.ParseInt(m[2], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrBadFilename, name, err)
	}
	return int32(x), int32(z), nil
}
