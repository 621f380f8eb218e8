package waves

import (
	"fmt"
	"math"

	"github.com/chiptrack/beepbox"
	"github.com/viterin/vek/vek32"
)

const maxTransformLength = 1 << 16

// InverseRealFourierTransform transforms a real spectrum into a real signal
// in place. The spectrum is in halfcomplex order: a[0] is the DC term,
// a[i] and a[N-i] are the real and imaginary parts of bin i, and a[N/2] is
// the Nyquist term. The result is not normalized; use ScaleArray with
// 1/sqrt(N) to get unit gain.
//
// The length must be a power of two between 4 and 65536.
func InverseRealFourierTransform(a []float32) error {
	n := len(a)
	if n < 4 || n > maxTransformLength || n&(n-1) != 0 {
		return &beepbox.FormatError{Offset: -1, Msg: fmt.Sprintf("transform length %d is not a power of two in [4, %d]", n, maxTransformLength)}
	}
	totalPasses := 0
	for 1<<totalPasses < n {
		totalPasses++
	}
	// decimation in frequency, one radix-2 pass at a time
	for pass := totalPasses - 1; pass >= 2; pass-- {
		sub := 1 << pass
		mid := sub >> 1
		stride := sub << 1
		radians := 2 * math.Pi / float64(stride)
		cosIncrement := math.Cos(radians)
		sinIncrement := math.Sin(radians)
		oscillatorMultiplier := 2 * cosIncrement
		for start := 0; start < n; start += stride {
			startA := start
			midA := startA + mid
			startB := startA + sub
			midB := startB + mid
			stop := startB + sub
			realStartA := a[startA]
			imagStartB := a[startB]
			a[startA] = realStartA + imagStartB
			a[midA] *= 2
			a[startB] = realStartA - imagStartB
			a[midB] *= 2
			c, s := cosIncrement, -sinIncrement
			cPrev, sPrev := 1.0, 0.0
			for index := 1; index < mid; index++ {
				indexA0 := startA + index
				indexA1 := startB - index
				indexB0 := startB + index
				indexB1 := stop - index
				real0 := float64(a[indexA0])
				real1 := float64(a[indexA1])
				imag0 := float64(a[indexB0])
				imag1 := float64(a[indexB1])
				tempA := real0 - real1
				tempB := imag0 + imag1
				a[indexA0] = float32(real0 + real1)
				a[indexA1] = float32(imag1 - imag0)
				a[indexB0] = float32(tempA*c - tempB*s)
				a[indexB1] = float32(tempB*c + tempA*s)
				cTemp := oscillatorMultiplier*c - cPrev
				sTemp := oscillatorMultiplier*s - sPrev
				cPrev, sPrev = c, s
				c, s = cTemp, sTemp
			}
		}
	}
	// the last two passes combined, on groups of four
	for index := 0; index < n; index += 4 {
		real0 := a[index]
		real1 := a[index+1] * 2
		imag2 := a[index+2]
		imag3 := a[index+3] * 2
		tempA := real0 + imag2
		tempB := real0 - imag2
		a[index] = tempA + real1
		a[index+1] = tempA - real1
		a[index+2] = tempB + imag3
		a[index+3] = tempB - imag3
	}
	tmp := make([]float32, n)
	vek32.Gather_Into(tmp, a, bitReversal(n))
	copy(a, tmp)
	return nil
}

// bitReversal returns the bit-reversal permutation of 0..n-1.
func bitReversal(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			perm[i], perm[j] = perm[j], perm[i]
		}
	}
	return perm
}

// ScaleArray multiplies every element of a by scale.
func ScaleArray(a []float32, scale float32) {
	vek32.MulNumber_Inplace(a, scale)
}
