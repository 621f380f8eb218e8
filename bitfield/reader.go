package bitfield

// Reader reads bits MSB-first from a range of alphabet symbols.
type Reader struct {
	bits     []bool
	readPos  int
	startOff int
	err      error
}

// NewReader decodes source[start:stop] into a bit stream. Symbols outside
// the alphabet are treated as zero and recorded as an error.
func NewReader(source string, start, stop int) *Reader {
	r := &Reader{startOff: start}
	if start < 0 {
		start = 0
	}
	if stop > len(source) {
		r.err = &FormatError{Offset: len(source), Msg: "bit field extends past end of input"}
		stop = len(source)
	}
	if stop < start {
		stop = start
	}
	r.bits = make([]bool, 0, (stop-start)*6)
	for i := start; i < stop; i++ {
		v, ok := SymbolValue(source[i])
		if !ok && r.err == nil {
			r.err = &FormatError{Offset: i, Msg: "invalid symbol " + string(source[i])}
		}
		for b := 5; b >= 0; b-- {
			r.bits = append(r.bits, (v>>b)&1 == 1)
		}
	}
	return r
}

// Err returns the first error encountered: an invalid symbol or a read past
// the end of the stream. Reads past the end return zero bits.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	if r.readPos >= len(r.bits) {
		return 0
	}
	return len(r.bits) - r.readPos
}

func (r *Reader) bit() int {
	if r.readPos >= len(r.bits) {
		if r.err == nil {
			r.err = &FormatError{Offset: r.startOff + r.readPos/6, Msg: "unexpected end of bit field"}
		}
		r.readPos++
		return 0
	}
	b := r.bits[r.readPos]
	r.readPos++
	if b {
		return 1
	}
	return 0
}

// Read consumes n bits and returns them as an unsigned integer.
func (r *Reader) Read(n int) int {
	result := 0
	for ; n > 0; n-- {
		result = result<<1 | r.bit()
	}
	return result
}

// ReadLongTail decodes a value written with Writer.WriteLongTail.
func (r *Reader) ReadLongTail(minValue, minBits int) int {
	result := minValue
	numBits := minBits
	for r.bit() == 1 {
		result += 1 << numBits
		numBits++
		if numBits > 62 {
			// a run of ones this long only comes from garbage input
			if r.err == nil {
				r.err = &FormatError{Offset: r.startOff + r.readPos/6, Msg: "long tail value overflows"}
			}
			return result
		}
	}
	for numBits > 0 {
		numBits--
		if r.bit() == 1 {
			result += 1 << numBits
		}
	}
	return result
}

func (r *Reader) ReadPartDuration() int {
	return r.ReadLongTail(1, 2)
}

func (r *Reader) ReadPinCount() int {
	return r.ReadLongTail(1, 0)
}

func (r *Reader) ReadPitchInterval() int {
	if r.Read(1) == 1 {
		return -r.ReadLongTail(1, 3)
	}
	return r.ReadLongTail(1, 3)
}
