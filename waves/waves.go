// Package waves builds the sample tables the synthesizer plays: single-cycle
// chip waves, noise tables for the drums and the FM sine table.
package waves

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/chiptrack/beepbox"
	"github.com/viterin/vek/vek32"
)

// SineTable holds one cycle of a sine wave plus a guard sample equal to the
// first one, so that linear interpolation never wraps.
var SineTable = func() []float32 {
	t := make([]float32, beepbox.SineWaveLength+1)
	for i := range t {
		t[i] = float32(math.Sin(2 * math.Pi * float64(i) / beepbox.SineWaveLength))
	}
	t[beepbox.SineWaveLength] = t[0]
	return t
}()

// Cache memoizes the chip and drum tables. It is safe for concurrent use and
// the returned tables must not be modified.
type Cache struct {
	mu    sync.Mutex
	chip  map[int][]float32
	drums map[int][]float32
}

func NewCache() *Cache {
	return &Cache{chip: map[int][]float32{}, drums: map[int][]float32{}}
}

// Chip returns the ChipWaveLength sample table of a chip wave.
func (c *Cache) Chip(index int) ([]float32, error) {
	if index < 0 || index >= len(beepbox.ChipWaves) {
		return nil, &beepbox.RangeError{What: "chip wave", Value: index}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.chip[index]; ok {
		return t, nil
	}
	t := chipWave(beepbox.ChipWaves[index].Samples)
	c.chip[index] = t
	return t, nil
}

// Drum returns the DrumWaveLength sample table of a drum.
func (c *Cache) Drum(index int) ([]float32, error) {
	if index < 0 || index >= len(beepbox.Drums) {
		return nil, &beepbox.RangeError{What: "drum", Value: index}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.drums[index]; ok {
		return t, nil
	}
	t, err := drumWave(&beepbox.Drums[index])
	if err != nil {
		return nil, err
	}
	c.drums[index] = t
	return t, nil
}

// Warm builds the tables of the given drums ahead of time.
func (c *Cache) Warm(drums ...int) error {
	for _, d := range drums {
		if _, err := c.Drum(d); err != nil {
			return err
		}
	}
	return nil
}

func chipWave(samples []float64) []float32 {
	t := make([]float32, beepbox.ChipWaveLength)
	for i := range t {
		t[i] = float32(samples[i*len(samples)/len(t)])
	}
	removeDC(t)
	return t
}

func drumWave(d *beepbox.Drum) ([]float32, error) {
	t := make([]float32, beepbox.DrumWaveLength)
	switch d.Kind {
	case beepbox.DrumLFSR:
		lfsr(t, d.Feedback)
	case beepbox.DrumUniform:
		rng := rand.New(rand.NewPCG(d.Seed, d.Seed))
		for i := range t {
			t[i] = float32(rng.Float64()*2 - 1)
		}
	case beepbox.DrumSpectrum:
		rng := rand.New(rand.NewPCG(d.Seed, d.Seed))
		drawSpectrum(t, d, rng)
		if err := InverseRealFourierTransform(t); err != nil {
			return nil, err
		}
		ScaleArray(t, float32(1/math.Sqrt(float64(len(t)))))
		removeDC(t)
		normalizePeak(t)
		return t, nil
	}
	removeDC(t)
	return t, nil
}

// lfsr fills t with the ±1 output of a shift register whose feedback is
// added whenever its two lowest bits differ.
func lfsr(t []float32, feedback int) {
	buf := 1
	for i := range t {
		t[i] = float32((buf&1)*2 - 1)
		next := buf >> 1
		if (buf+next)&1 == 1 {
			next += feedback
		}
		buf = next
	}
}

// drawSpectrum writes a power law spectrum with random magnitudes and
// phases in halfcomplex order.
func drawSpectrum(t []float32, d *beepbox.Drum, rng *rand.Rand) {
	const referenceIndex = 1 << 11
	n := len(t)
	low := int(math.Pow(2, d.LowOctave))
	high := min(n>>1, int(math.Pow(2, d.HighOctave)))
	for i := low; i < high; i++ {
		lerped := d.LowPower + (d.HighPower-d.LowPower)*(math.Log2(float64(i))-d.LowOctave)/(d.HighOctave-d.LowOctave)
		amplitude := math.Pow(2, lerped) * math.Pow(float64(i)/referenceIndex, d.Slope) * rng.Float64()
		radians := rng.Float64() * 2 * math.Pi
		t[i] = float32(math.Cos(radians) * amplitude)
		t[n-i] = float32(math.Sin(radians) * amplitude)
	}
}

func removeDC(t []float32) {
	vek32.AddNumber_Inplace(t, -vek32.Mean(t))
}

func normalizePeak(t []float32) {
	abs := make([]float32, len(t))
	copy(abs, t)
	vek32.Abs_Inplace(abs)
	if peak := vek32.Max(abs); peak > 0 {
		ScaleArray(t, 1/peak)
	}
}
