package bitfield

// Writer accumulates bits MSB-first and encodes them into alphabet symbols.
type Writer struct {
	bits []bool
}

// Write appends the lowest n bits of value.
func (w *Writer) Write(n int, value int) {
	for n--; n >= 0; n-- {
		w.bits = append(w.bits, (value>>n)&1 == 1)
	}
}

// WriteLongTail appends value using a unary continuation prefix followed by
// a correction term. The value must not be smaller than minValue.
func (w *Writer) WriteLongTail(minValue, minBits, value int) {
	if value < minValue {
		panic(&RangeError{What: "long tail value", Value: value})
	}
	value -= minValue
	numBits := minBits
	for value >= 1<<numBits {
		w.bits = append(w.bits, true)
		value -= 1 << numBits
		numBits++
	}
	w.bits = append(w.bits, false)
	for numBits > 0 {
		numBits--
		w.bits = append(w.bits, (value>>numBits)&1 == 1)
	}
}

func (w *Writer) WritePartDuration(value int) {
	w.WriteLongTail(1, 2, value)
}

func (w *Writer) WritePinCount(value int) {
	w.WriteLongTail(1, 0, value)
}

// WritePitchInterval writes a sign bit followed by the magnitude, which is
// at least one. A zero interval panics with a RangeError.
func (w *Writer) WritePitchInterval(value int) {
	if value < 0 {
		w.Write(1, 1)
		w.WriteLongTail(1, 3, -value)
	} else {
		w.Write(1, 0)
		w.WriteLongTail(1, 3, value)
	}
}

// Concat appends all bits of other.
func (w *Writer) Concat(other *Writer) {
	w.bits = append(w.bits, other.bits...)
}

// Len returns the number of bits written.
func (w *Writer) Len() int {
	return len(w.bits)
}

// LengthBase64 returns the number of symbols EncodeBase64 produces.
func (w *Writer) LengthBase64() int {
	return (len(w.bits) + 5) / 6
}

// EncodeBase64 packs the bits six at a time into alphabet symbols. A partial
// final group is padded with zeros.
func (w *Writer) EncodeBase64() []byte {
	out := make([]byte, 0, w.LengthBase64())
	for i := 0; i < len(w.bits); i += 6 {
		v := 0
		for j := 0; j < 6; j++ {
			v <<= 1
			if i+j < len(w.bits) && w.bits[i+j] {
				v |= 1
			}
		}
		out = append(out, Alphabet[v])
	}
	return out
}

// String returns the written bits as a string of '0' and '1', e.g. for using
// a bit pattern as a map key.
func (w *Writer) String() string {
	b := make([]byte, len(w.bits))
	for i, v := range w.bits {
		if v {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
