package synth

import "math"

// limiter divides the signal by a level that jumps up to every peak and
// falls back linearly, by half a unit per second.
type limiter struct {
	limit float64
	decay float64 // per sample
}

func (l *limiter) process(left, right float64) (float64, float64) {
	l.limit -= l.decay
	if peak := math.Max(math.Abs(left), math.Abs(right)); peak > l.limit {
		l.limit = peak
	}
	d := l.limit*0.75 + 0.25
	return left / d, right / d
}
