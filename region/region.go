// Package region drives the storage, decompression, document, and
// chunk layers to yield a lazy sequence of parsed chunks from one
// region file.
package region

import (
	"context"
	"fmt"
	"io"

	"github.com/astei/hytaleregion/internal/chunk"
	"github.com/astei/hytaleregion/internal/document"
	"github.com/astei/hytaleregion/internal/storage"
	"github.com/astei/hytaleregion/internal/zstdblob"
)

// Mode selects how the Iterator handles a per-chunk decoding failure.
type Mode int

const (
	// Strict surfaces per-chunk errors from Next. This is the default.
	Strict Mode = iota
	// Lenient yields a *FailedChunk sentinel in place of a failed
	// chunk and continues with the next slot.
	Lenient
)

// FailedChunk is the sentinel a Lenient iterator yields in place of a
// chunk it could not decode.
type FailedChunk struct {
	SlotIndex int
	Err       error
}

func (f *FailedChunk) Error() string {
	return fmt.Sprintf("region: slot %d: %v", f.SlotIndex, f.Err)
}

func (f *FailedChunk) Unwrap() error { return f.Err }

// Result is what Next produces for one non-empty slot: exactly one of
// Chunk or Failed is set.
type Result struct {
	Chunk  *chunk.ParsedChunk
	Failed *FailedChunk
}

// Summary is the region-level aggregate produced by Iterator.Summary.
type Summary struct {
	RegionX, RegionZ int32
	ChunkCount       int
	BlockCounts      map[string]int64
	ContainerCount   int
	FailedSlots      []int
}

// Iterator is a pull-based, single-use cursor over one region file's
// non-empty slots, in ascending slot-index order. It is not safe for
// concurrent use — exactly like the teacher's own AnvilReader, callers
// needing concurrent access must guard it themselves.
type Iterator struct {
	reader    *storage.Reader
	mode      Mode
	regionX   int32
	regionZ   int32
	slots     []int
	pos       int
	cached    *Summary
	exhausted bool
}

// Open opens path and prepares an Iterator over its non-empty slots.
// Region coordinates are parsed from the filename per spec.
func Open(path string, mode Mode) (*Iterator, error) {
	reader, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	regionX, regionZ, err := storage.ParseRegionCoordinates(path)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}
	return &Iterator{
		reader:  reader,
		mode:    mode,
		regionX: regionX,
		regionZ: regionZ,
		slots:   reader.NonEmptySlots(),
	}, nil
}

// RegionCoordinates returns the (region_x, region_z) parsed from the
// file name.
func (it *Iterator) RegionCoordinates() (int32, int32) {
	return it.regionX, it.regionZ
}

// Close releases the iterator's file handle. Safe to call more than
// once.
func (it *Iterator) Close() error {
	return it.reader.Close()
}

// Next produces the next non-empty slot's decoding result, or io.EOF
// once every slot has been visited. In Strict mode a per-chunk error is
// returned directly; in Lenient mode it comes back as Result.Failed and
// err is nil so the caller can keep calling Next.
func (it *Iterator) Next(ctx context.Context) (*Result, error) {
	if it.pos >= len(it.slots) {
		it.exhausted = true
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slotIndex := it.slots[it.pos]
	it.pos++

	pc, err := it.decodeSlot(ctx, slotIndex)
	if err != nil {
		if it.mode == Lenient {
			return &Result{Failed: &FailedChunk{SlotIndex: slotIndex, Err: err}}, nil
		}
		return nil, fmt.Errorf("region: slot %d: %w", slotIndex, err)
	}
	return &Result{Chunk: pc}, nil
}

func (it *Iterator) decodeSlot(ctx context.Context, slotIndex int) (*chunk.ParsedChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compressed, sourceLength, ok, err := it.reader.SlotPayload(slotIndex)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("region: slot %d unexpectedly empty", slotIndex)
	}

	decompressed, err := zstdblob.Decompress(compressed, int(sourceLength))
	if err != nil {
		return nil, err
	}

	root, err := document.Parse(decompressed)
	if err != nil {
		return nil, err
	}

	localX := slotIndex % 32
	localZ := slotIndex / 32
	chunkX := it.regionX*32 + int32(localX)
	chunkZ := it.regionZ*32 + int32(localZ)

	return chunk.Assemble(root, chunkX, chunkZ)
}

// Summary aggregates block-name counts across every chunk in the
// region without retaining per-section detail. It decodes every
// non-empty slot independently of Next's own cursor position, so it
// may be called before, during, or after a streaming pass over the
// same Iterator; the result is cached after the first call.
func (it *Iterator) Summary(ctx context.Context) (*Summary, error) {
	if it.cached != nil {
		return it.cached, nil
	}

	summary := &Summary{
		RegionX:     it.regionX,
		RegionZ:     it.regionZ,
		BlockCounts: make(map[string]int64),
	}

	for _, slotIndex := range it.slots {
		pc, err := it.decodeSlot(ctx, slotIndex)
		if err != nil {
			summary.FailedSlots = append(summary.FailedSlots, slotIndex)
			continue
		}

		summary.ChunkCount++
		summary.ContainerCount += len(pc.Containers)
		for _, sec := range pc.Sections {
			for name, count := range sec.BlockCounts {
				summary.BlockCounts[name] += count
			}
		}
	}

	it.cached = summary
	return summary, nil
}
