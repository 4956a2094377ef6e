package section

import "fmt"

var (
	// ErrUnknownPaletteType is returned for a palette type byte outside
	// {0,1,2,3}.
	ErrUnknownPaletteType = fmt.Errorf("section: unknown palette type")
	// ErrPaletteIndexOutOfRange is returned when a decoded block index
	// is not strictly less than the palette size.
	ErrPaletteIndexOutOfRange = fmt.Errorf("section: palette index out of range")
	// ErrInvalidHex is returned when the section payload string is not
	// valid hex. Per spec §9 this is a DocumentSizeMismatch-class
	// failure at the layer above; SectionDecoder itself just reports it
	// as a decode error and lets ChunkAssembler classify it as
	// per-chunk fatal alongside the other section-level errors.
	ErrInvalidHex = fmt.Errorf("section: invalid hex payload")
)
