package waves_test

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/chiptrack/beepbox"
	"github.com/chiptrack/beepbox/waves"
)

// naiveInverse evaluates the inverse transform of a halfcomplex spectrum
// directly from its definition.
func naiveInverse(a []float64) []float64 {
	n := len(a)
	out := make([]float64, n)
	for t := range out {
		v := a[0] + a[n/2]*math.Cos(math.Pi*float64(t))
		for k := 1; k < n/2; k++ {
			phase := 2 * math.Pi * float64(k*t) / float64(n)
			v += 2 * (a[k]*math.Cos(phase) + a[n-k]*math.Sin(phase))
		}
		out[t] = v
	}
	return out
}

func TestInverseTransform(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{4, 8, 16, 64, 256} {
		spectrum := make([]float64, n)
		a := make([]float32, n)
		for i := range a {
			a[i] = float32(rng.Float64()*2 - 1)
			spectrum[i] = float64(a[i])
		}
		if err := waves.InverseRealFourierTransform(a); err != nil {
			t.Fatalf("length %v: %v", n, err)
		}
		expected := naiveInverse(spectrum)
		for i := range a {
			if math.Abs(float64(a[i])-expected[i]) > 1e-3 {
				t.Fatalf("length %v: sample %v is %v, expected %v", n, i, a[i], expected[i])
			}
		}
	}
}

func TestInverseTransformOfSingleBin(t *testing.T) {
	const n = 32
	a := make([]float32, n)
	a[3] = 0.5
	if err := waves.InverseRealFourierTransform(a); err != nil {
		t.Fatalf("InverseRealFourierTransform failed: %v", err)
	}
	waves.ScaleArray(a, 1)
	for i, v := range a {
		expected := math.Cos(2 * math.Pi * 3 * float64(i) / n)
		if math.Abs(float64(v)-expected) > 1e-5 {
			t.Fatalf("sample %v is %v, expected %v", i, v, expected)
		}
	}
}

func TestInverseTransformLength(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 12, 100, 1 << 17} {
		err := waves.InverseRealFourierTransform(make([]float32, n))
		var fe *beepbox.FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("length %v: expected a FormatError, got %v", n, err)
		}
	}
	if err := waves.InverseRealFourierTransform(make([]float32, 1<<16)); err != nil {
		t.Fatalf("length 65536 was rejected: %v", err)
	}
}

func TestRetroDrum(t *testing.T) {
	a, err := waves.NewCache().Drum(0)
	if err != nil {
		t.Fatalf("Drum(0) failed: %v", err)
	}
	b, err := waves.NewCache().Drum(0)
	if err != nil {
		t.Fatalf("Drum(0) failed: %v", err)
	}
	if len(a) != beepbox.DrumWaveLength || !reflect.DeepEqual(a, b) {
		t.Fatalf("retro drum table is not deterministic")
	}
	// an independent run of the same shift register
	expected := make([]float64, beepbox.DrumWaveLength)
	sum := 0.0
	reg := 1
	for i := range expected {
		if reg%2 == 1 {
			expected[i] = 1
		} else {
			expected[i] = -1
		}
		sum += expected[i]
		shifted := reg / 2
		if (reg^shifted)%2 == 1 {
			shifted += 1 << 14
		}
		reg = shifted
	}
	if sum != 2 {
		t.Fatalf("shift register sums to %v, expected 2", sum)
	}
	mean := sum / float64(len(expected))
	for i, v := range a {
		if math.Abs(float64(v)-(expected[i]-mean)) > 1e-6 {
			t.Fatalf("sample %v is %v, expected %v", i, v, expected[i]-mean)
		}
	}
}

func TestDrumTables(t *testing.T) {
	c := waves.NewCache()
	for i, d := range beepbox.Drums {
		table, err := c.Drum(i)
		if err != nil {
			t.Fatalf("%v: %v", d.Name, err)
		}
		if len(table) != beepbox.DrumWaveLength {
			t.Fatalf("%v has %v samples", d.Name, len(table))
		}
		sum, peak := 0.0, 0.0
		for _, v := range table {
			sum += float64(v)
			peak = math.Max(peak, math.Abs(float64(v)))
		}
		if mean := sum / float64(len(table)); math.Abs(mean) > 1e-3 {
			t.Fatalf("%v is not centered, mean %v", d.Name, mean)
		}
		if peak == 0 || peak > 2 {
			t.Fatalf("%v has peak %v", d.Name, peak)
		}
		if d.Kind == beepbox.DrumSpectrum && math.Abs(peak-1) > 1e-5 {
			t.Fatalf("%v is not normalized, peak %v", d.Name, peak)
		}
		again, _ := c.Drum(i)
		if &again[0] != &table[0] {
			t.Fatalf("%v was not memoized", d.Name)
		}
	}
	if err := c.Warm(0, 4, 6); err != nil {
		t.Fatalf("Warm failed: %v", err)
	}
}

func TestUnknownTables(t *testing.T) {
	c := waves.NewCache()
	for _, index := range []int{-1, len(beepbox.Drums)} {
		_, err := c.Drum(index)
		var re *beepbox.RangeError
		if !errors.As(err, &re) || re.Value != index {
			t.Fatalf("Drum(%v): expected a RangeError, got %v", index, err)
		}
	}
	if _, err := c.Chip(len(beepbox.ChipWaves)); err == nil {
		t.Fatalf("Chip accepted an unknown wave")
	}
	if err := c.Warm(1, 99); err == nil {
		t.Fatalf("Warm accepted an unknown drum")
	}
}

func TestChipWaves(t *testing.T) {
	c := waves.NewCache()
	for i, w := range beepbox.ChipWaves {
		table, err := c.Chip(i)
		if err != nil {
			t.Fatalf("%v: %v", w.Name, err)
		}
		if len(table) != beepbox.ChipWaveLength {
			t.Fatalf("%v has %v samples", w.Name, len(table))
		}
		sum := 0.0
		for _, v := range table {
			sum += float64(v)
		}
		if math.Abs(sum) > 1e-4 {
			t.Fatalf("%v is not centered, sum %v", w.Name, sum)
		}
	}
	square, _ := c.Chip(1)
	if square[0] != 1 || square[63] != -1 {
		t.Fatalf("square wave is %v", square)
	}
}

func TestSineTable(t *testing.T) {
	if len(waves.SineTable) != beepbox.SineWaveLength+1 {
		t.Fatalf("sine table has %v samples", len(waves.SineTable))
	}
	if waves.SineTable[beepbox.SineWaveLength] != waves.SineTable[0] {
		t.Fatalf("sine table has no guard sample")
	}
	if math.Abs(float64(waves.SineTable[64])-1) > 1e-6 {
		t.Fatalf("sine table peak is %v", waves.SineTable[64])
	}
}
