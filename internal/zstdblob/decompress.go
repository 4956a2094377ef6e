// Package zstdblob is the Decompressor adapter over the Zstandard frame
// format: a stateless function from a length-prefixed compressed byte
// range to a freshly allocated decompressed buffer. This is the same
// library the teacher uses for its own (write-side) Slime output, and
// the same one arloliu-mebo and hellsoul86-voxelcraft.ai both lean on
// for blob/section compression.
package zstdblob

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrDecompressSizeMismatch is returned when the decompressed size
	// differs from the producer-declared expected size.
	ErrDecompressSizeMismatch = fmt.Errorf("zstdblob: decompressed size mismatch")
	// ErrDecompressCorrupt is returned when the Zstandard decoder
	// reports a framing error.
	ErrDecompressCorrupt = fmt.Errorf("zstdblob: corrupt zstd frame")
)

var decoder *zstd.Decoder

func init() {
	d, err := zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("zstdblob: failed to initialize shared decoder: %v", err))
	}
	decoder = d
}

// Decompress decompresses a single Zstandard frame and verifies the
// output is exactly expectedSize bytes, per spec §4.3.
func Decompress(compressed []byte, expectedSize int) ([]byte, error) {
	out, err := decoder.DecodeAll(compressed, make([]byte, 0, expectedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressCorrupt, err)
	}
	if len(out) != expectedSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrDecompressSizeMismatch, len(out), expectedSize)
	}
	return out, nil
}
