// Package section decodes the per-section palette and bit-packed block
// index array embedded as a hex string inside a chunk's document tree.
// The palette container here plays the same role as a generic bit-width
// palette would, simplified to the four concrete widths the dialect
// actually uses.
package section

import (
	"encoding/hex"
	"fmt"

	"github.com/willf/bitset"

	"github.com/astei/hytaleregion/internal/cursor"
	"github.com/astei/hytaleregion/internal/intern"
)

// names interns palette entry names across every section decoded in
// the process, since the same few hundred block names repeat across a
// region's 1024 slots.
var names = intern.New(intern.DefaultCapacity)

// PaletteType selects the bit width of the block index array.
type PaletteType uint8

const (
	PaletteEmpty PaletteType = iota
	PaletteHalfByte
	PaletteByte
	PaletteShort
)

func (t PaletteType) String() string {
	switch t {
	case PaletteEmpty:
		return "Empty"
	case PaletteHalfByte:
		return "HalfByte"
	case PaletteByte:
		return "Byte"
	case PaletteShort:
		return "Short"
	default:
		return fmt.Sprintf("PaletteType(%d)", uint8(t))
	}
}

// VoxelCount is the number of voxels in one 32x32x32 section.
const VoxelCount = 32 * 32 * 32

// PaletteEntry is one row of a section's palette table. Count is
// recorded by the producer but treated as advisory; BlockCounts on
// ChunkSection is always derived from the real index array. Count is
// read as an unsigned 16-bit value so a full-section count of 32768
// is represented as such.
type PaletteEntry struct {
	InternalID uint8
	Name       string
	Count      uint16
}

// ChunkSection is one decoded vertical slab of a chunk column.
type ChunkSection struct {
	YSection         int
	MigrationVersion uint32
	PaletteType      PaletteType
	Palette          []PaletteEntry
	BlockCounts      map[string]int64

	raw        []byte // index array bytes, format depends on PaletteType; nil for Empty
	nonDefault *bitset.BitSet
}

// LinearIndex computes the within-section linear position for local
// coordinates in [0,32), matching the producer's layout.
func LinearIndex(x, y, z int) int {
	return x + z*32 + y*1024
}

// InverseLinearIndex recovers local (x, y, z) coordinates from a
// linear position, the inverse of LinearIndex.
func InverseLinearIndex(lin int) (x, y, z int) {
	y = lin / 1024
	rem := lin % 1024
	z = rem / 32
	x = rem % 32
	return
}

// Decode parses a hex-encoded section payload (as found in a
// Components.Block.Data document leaf) into a ChunkSection.
func Decode(hexPayload string, ySection int) (*ChunkSection, error) {
	raw, err := hex.DecodeString(hexPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}

	c := cursor.New(raw)
	migrationVersion, err := c.ReadU32BE()
	if err != nil {
		return nil, err
	}
	paletteTypeByte, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	if paletteTypeByte > uint8(PaletteShort) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPaletteType, paletteTypeByte)
	}
	paletteType := PaletteType(paletteTypeByte)

	entryCount, err := c.ReadU16BE()
	if err != nil {
		return nil, err
	}
	palette := make([]PaletteEntry, entryCount)
	for i := range palette {
		internalID, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		nameLen, err := c.ReadU16BE()
		if err != nil {
			return nil, err
		}
		nameBytes, err := c.ReadBytes(int(nameLen))
		if err != nil {
			return nil, err
		}
		count, err := c.ReadU16BE()
		if err != nil {
			return nil, err
		}
		palette[i] = PaletteEntry{InternalID: internalID, Name: names.Intern(nameBytes), Count: count}
	}

	sec := &ChunkSection{
		YSection:         ySection,
		MigrationVersion: migrationVersion,
		PaletteType:      paletteType,
		Palette:          palette,
	}

	var indexArrayLen int
	switch paletteType {
	case PaletteEmpty:
		indexArrayLen = 0
	case PaletteHalfByte:
		indexArrayLen = VoxelCount / 2
	case PaletteByte:
		indexArrayLen = VoxelCount
	case PaletteShort:
		indexArrayLen = VoxelCount * 2
	}
	if indexArrayLen > 0 {
		indices, err := c.ReadBytes(indexArrayLen)
		if err != nil {
			return nil, err
		}
		sec.raw = append([]byte(nil), indices...)
	}

	if err := sec.computeHistogram(); err != nil {
		return nil, err
	}
	return sec, nil
}

// indexAt returns the raw palette index for linear position lin,
// decoding from the stored buffer without materializing the full array.
func (s *ChunkSection) indexAt(lin int) int {
	switch s.PaletteType {
	case PaletteEmpty:
		return 0
	case PaletteHalfByte:
		b := s.raw[lin/2]
		if lin%2 == 0 {
			return int(b >> 4)
		}
		return int(b & 0x0F)
	case PaletteByte:
		return int(s.raw[lin])
	case PaletteShort:
		off := lin * 2
		return int(s.raw[off])<<8 | int(s.raw[off+1])
	default:
		return 0
	}
}

// computeHistogram walks every voxel position once, validating index
// bounds, building the name histogram, and recording which positions
// hold the section's most common entry so NonDefaultPositions can be
// built afterward.
func (s *ChunkSection) computeHistogram() error {
	s.BlockCounts = make(map[string]int64)

	if s.PaletteType == PaletteEmpty {
		if len(s.Palette) == 1 {
			s.BlockCounts[s.Palette[0].Name] = int64(VoxelCount)
		}
		s.nonDefault = bitset.New(uint(VoxelCount))
		return nil
	}

	p := len(s.Palette)
	counts := make([]int64, p)
	indexByPosition := make([]int32, VoxelCount)
	for lin := 0; lin < VoxelCount; lin++ {
		idx := s.indexAt(lin)
		if idx < 0 || idx >= p {
			return fmt.Errorf("%w: index %d at position %d, palette size %d", ErrPaletteIndexOutOfRange, idx, lin, p)
		}
		counts[idx]++
		indexByPosition[lin] = int32(idx)
	}

	defaultIndex := 0
	for i := 1; i < p; i++ {
		if counts[i] > counts[defaultIndex] {
			defaultIndex = i
		}
	}

	for i, n := range counts {
		if n == 0 {
			continue
		}
		s.BlockCounts[s.Palette[i].Name] += n
	}

	nd := bitset.New(uint(VoxelCount))
	for lin, idx := range indexByPosition {
		if int(idx) != defaultIndex {
			nd.Set(uint(lin))
		}
	}
	s.nonDefault = nd
	return nil
}

// BlockAt returns the palette entry name for local coordinates in
// [0,32), decoding the index on demand rather than from a precomputed
// array.
func (s *ChunkSection) BlockAt(x, y, z int) (string, error) {
	lin := LinearIndex(x, y, z)
	if s.PaletteType == PaletteEmpty {
		if len(s.Palette) == 1 {
			return s.Palette[0].Name, nil
		}
		return "", nil
	}
	idx := s.indexAt(lin)
	if idx < 0 || idx >= len(s.Palette) {
		return "", fmt.Errorf("%w: index %d at position %d, palette size %d", ErrPaletteIndexOutOfRange, idx, lin, len(s.Palette))
	}
	return s.Palette[idx].Name, nil
}

// NonDefaultPositions reports, as a bit per linear position, which
// voxels hold a palette entry other than the section's most common one.
func (s *ChunkSection) NonDefaultPositions() *bitset.BitSet {
	return s.nonDefault
}

// Empty returns the section used when a chunk column's Sections array
// has no Block.Data entry at a given vertical index.
func Empty(ySection int) *ChunkSection {
	return &ChunkSection{
		YSection:    ySection,
		PaletteType: PaletteEmpty,
		BlockCounts: map[string]int64{},
		nonDefault:  bitset.New(uint(VoxelCount)),
	}
}
