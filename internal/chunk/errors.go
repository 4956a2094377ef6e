package chunk

import "fmt"

var (
	// ErrMissingComponents is returned when a chunk's root document has
	// no top-level Components field.
	ErrMissingComponents = fmt.Errorf("chunk: missing Components document")
	// ErrUnexpectedShape is returned when a field expected to be one
	// document Kind turns out to be another.
	ErrUnexpectedShape = fmt.Errorf("chunk: unexpected field shape")
	// ErrBadComponentKey is returned when a BlockComponents key is not
	// a decimal packed position.
	ErrBadComponentKey = fmt.Errorf("chunk: malformed block component key")
)
