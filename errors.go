package beepbox

import "fmt"

// FormatError is returned when a serialized song cannot be decoded: an
// unsupported version, an unknown tag or a malformed bit field. Offset is
// the index of the offending symbol in the input, or -1 when unknown.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return "beepbox: " + e.Msg
	}
	return fmt.Sprintf("beepbox: offset %d: %s", e.Offset, e.Msg)
}

// RangeError reports a value that refers to nothing: an instrument, drum or
// wave index outside its table.
type RangeError struct {
	What  string
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("beepbox: %s %d out of range", e.What, e.Value)
}
