package beepbox

import (
	"errors"
	"fmt"
)

// Renderer produces stereo audio. Render fills both buffers completely,
// writing silence once playback has stopped, and returns the number of
// frames rendered before the stop.
type Renderer interface {
	Render(left, right []float32) int
	Playing() bool
}

// ErrStillPlaying is returned by Record when the renderer was still playing
// after maxFrames frames, for example because it loops forever.
var ErrStillPlaying = errors.New("renderer did not stop")

// Record renders chunk frames at a time until r stops playing and returns
// the audio interleaved as L, R, L, R... The silence after the stop within
// the last chunk is not included.
func Record(r Renderer, chunk, maxFrames int) ([]float32, error) {
	if chunk <= 0 {
		return nil, fmt.Errorf("chunk size %v is not positive", chunk)
	}
	left := make([]float32, chunk)
	right := make([]float32, chunk)
	buffer := make([]float32, 0, 2*chunk)
	for frames := 0; r.Playing(); frames += chunk {
		if frames >= maxFrames {
			return buffer, fmt.Errorf("%w within %v frames", ErrStillPlaying, maxFrames)
		}
		n := min(r.Render(left, right), chunk)
		for i := 0; i < n; i++ {
			buffer = append(buffer, left[i], right[i])
		}
	}
	return buffer, nil
}
