package synth

import "math"

const (
	reverbLength = 1 << 14
	reverbMask   = reverbLength - 1
	// offsets of the three other taps from the write position; the gaps
	// between consecutive taps are 3041, 3385, 4481 and 5477 samples
	reverbTap1 = 3041
	reverbTap2 = 6426
	reverbTap3 = 10907
)

// reverb is a four tap feedback delay network on a single ring buffer. The
// taps are mixed through a Hadamard butterfly and low pass filtered before
// being written back.
type reverb struct {
	delayLine [reverbLength]float64
	pos       int
	feedback  [4]float64
}

// reverbAmount maps the song reverb setting to the feedback gain of the
// network. The gain stays below 0.5, where the network is stable.
func reverbAmount(setting int) float64 {
	return math.Pow(float64(max(setting, 0))/4, 0.667) * 0.425
}

func (r *reverb) process(in, amount float64) (left, right float64) {
	p0 := r.pos
	p1 := (p0 + reverbTap1) & reverbMask
	p2 := (p0 + reverbTap2) & reverbMask
	p3 := (p0 + reverbTap3) & reverbMask
	r0 := r.delayLine[p0]
	s0 := r0 + in
	s1 := r.delayLine[p1]
	s2 := r.delayLine[p2]
	s3 := r.delayLine[p3]
	t0 := -s0 + s1
	t1 := -s0 - s1
	t2 := -s2 + s3
	t3 := -s2 - s3
	r.feedback[0] += ((t0+t2)*amount - r.feedback[0]) * 0.5
	r.feedback[1] += ((t1+t3)*amount - r.feedback[1]) * 0.5
	r.feedback[2] += ((t0-t2)*amount - r.feedback[2]) * 0.5
	r.feedback[3] += ((t1-t3)*amount - r.feedback[3]) * 0.5
	r.delayLine[p1] = r.feedback[0]
	r.delayLine[p2] = r.feedback[1]
	r.delayLine[p3] = r.feedback[2]
	r.delayLine[p0] = r.feedback[3]
	r.pos = (p0 + 1) & reverbMask
	return s1 + s2 + s3, r0 + s1 + s2
}
