package bitfield

import "fmt"

// FormatError is returned when a bit stream is truncated or contains a
// symbol outside the alphabet.
type FormatError struct {
	Offset int // symbol offset into the source string
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bitfield: offset %d: %s", e.Offset, e.Msg)
}

// RangeError signals a value that cannot be encoded, e.g. a long tail value
// below its minimum. It is raised with panic as it is a programming error.
type RangeError struct {
	What  string
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("bitfield: %s out of range: %d", e.What, e.Value)
}
