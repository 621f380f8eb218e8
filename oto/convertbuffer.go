package oto

import (
	"encoding/binary"
	"math"
)

// FloatBufferTo16BitLE interleaves the left and right channels into 16-bit
// little-endian stereo frames appended to dst. Samples outside [-1, 1] are
// clipped.
func FloatBufferTo16BitLE(left, right []float32, dst []byte) []byte {
	n := min(len(left), len(right))
	for i := 0; i < n; i++ {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(toInt16(left[i])))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(toInt16(right[i])))
	}
	return dst
}

func toInt16(v float32) int16 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v <= -1:
		return -math.MaxInt16
	case v >= 1:
		return math.MaxInt16
	}
	return int16(math.Round(float64(v) * math.MaxInt16))
}
