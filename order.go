package beepbox

// Sequence is the pattern order of a channel: one entry per bar, 0 meaning a
// silent bar and n > 0 the n:th pattern of the channel. Get returns 0 for
// bars out of range, so a short sequence is just silent at the end.
type Sequence []int

// Get returns the value at index; or 0 if the index is out of range
func (s Sequence) Get(index int) int {
	if index < 0 || index >= len(s) {
		return 0
	}
	return s[index]
}

func (s Sequence) Copy() Sequence {
	if s == nil {
		return nil
	}
	ret := make(Sequence, len(s))
	copy(ret, s)
	return ret
}
