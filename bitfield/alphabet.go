package bitfield

// Alphabet maps 6-bit values to the symbols used by compact song strings.
// The order is fixed: songs shared years ago must still decode.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-_"

var symbolValues [128]int8

func init() {
	for i := range symbolValues {
		symbolValues[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		symbolValues[Alphabet[i]] = int8(i)
	}
}

// SymbolValue returns the 6-bit value of an alphabet symbol.
func SymbolValue(c byte) (int, bool) {
	if c >= 128 || symbolValues[c] < 0 {
		return 0, false
	}
	return int(symbolValues[c]), true
}

// Symbol returns the alphabet symbol for v, which must be in [0, 64).
func Symbol(v int) byte {
	if v < 0 || v >= len(Alphabet) {
		panic(&RangeError{What: "base64 symbol", Value: v})
	}
	return Alphabet[v]
}
