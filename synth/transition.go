package synth

import "github.com/chiptrack/beepbox"

const (
	clickVolume  = 4.5 // note size at the very start of a click, above the maximum of 3
	bowTicks     = 4
	blipInterval = 48
)

// noteSpan is a note together with the notes of the same pattern that touch
// it. prev and next are nil when the neighbour does not start (or end)
// exactly at the note boundary.
type noteSpan struct {
	note, prev, next *beepbox.Note
	transition       beepbox.Transition
}

func findNote(p *beepbox.Pattern, part int, transition beepbox.Transition) (noteSpan, bool) {
	i := p.NoteAt(part)
	if i < 0 {
		return noteSpan{}, false
	}
	span := noteSpan{note: &p.Notes[i], transition: transition}
	if i > 0 && p.Notes[i-1].End == span.note.Start {
		span.prev = &p.Notes[i-1]
	}
	if i+1 < len(p.Notes) && p.Notes[i+1].Start == span.note.End {
		span.next = &p.Notes[i+1]
	}
	return span, true
}

// resetsPhase tells whether the oscillators restart when the note starts.
// Transitions that blend with the previous note keep the phase running.
func (n *noteSpan) resetsPhase() bool {
	switch n.transition {
	case beepbox.TransitionSudden, beepbox.TransitionClick, beepbox.TransitionBow, beepbox.TransitionBlip:
		return true
	}
	return n.prev == nil
}

// at returns the interval, the note size and the fade multiplier u ticks
// after the start of the note.
func (n *noteSpan) at(u float64) (interval, size, fade float64) {
	total := float64(n.note.Length() * ticksPerPart)
	interval, size = pinsAt(n.note, u/ticksPerPart)
	fade = 1
	fadeOut := clamp01(total - u)
	switch n.transition {
	case beepbox.TransitionSudden:
		fade = clamp01(u) * fadeOut
	case beepbox.TransitionClick:
		if u < 1 {
			size = clickVolume + (size-clickVolume)*u
		}
		fade = fadeOut
	case beepbox.TransitionBow:
		fade = clamp01(u / bowTicks)
		if n.next == nil {
			fade *= fadeOut
		}
	case beepbox.TransitionBlip:
		f := clamp01(u - (total - 1))
		interval += blipInterval * f
		fade = 1 - f
	case beepbox.TransitionSmooth, beepbox.TransitionSlide:
		slide := n.transition == beepbox.TransitionSlide
		first, last := n.note.Pins[0], n.note.Pins[len(n.note.Pins)-1]
		if p := n.prev; p != nil {
			edge := p.Pins[len(p.Pins)-1]
			r := float64(min(n.note.Length(), p.Length())*ticksPerPart) / 2
			if edge.Volume > 0 && u < r {
				w := 1 - u/r
				if slide {
					interval += w * float64(p.Pitches[0]+edge.Interval-n.note.Pitches[0]-first.Interval) / 2
				} else {
					size += w * float64(edge.Volume-first.Volume) / 2
				}
			}
		}
		if next := n.next; next != nil {
			edge := next.Pins[0]
			r := float64(min(n.note.Length(), next.Length())*ticksPerPart) / 2
			if d := total - u; edge.Volume > 0 && d < r {
				w := 1 - d/r
				if slide {
					interval += w * float64(next.Pitches[0]+edge.Interval-n.note.Pitches[0]-last.Interval) / 2
				} else {
					size += w * float64(edge.Volume-last.Volume) / 2
				}
			}
		} else {
			fade = fadeOut
		}
	default:
		if n.next == nil {
			fade = fadeOut
		}
	}
	return interval, size, fade
}

// pinsAt interpolates the interval and size envelope of a note linearly
// between the pins around time, in parts from the note start.
func pinsAt(n *beepbox.Note, time float64) (interval, size float64) {
	pins := n.Pins
	if len(pins) == 0 {
		return 0, 0
	}
	for i := 1; i < len(pins); i++ {
		b := pins[i]
		if time > float64(b.Time) && i < len(pins)-1 {
			continue
		}
		a := pins[i-1]
		span := float64(b.Time - a.Time)
		if span <= 0 {
			return float64(b.Interval), float64(b.Volume)
		}
		f := clamp01((time - float64(a.Time)) / span)
		return lerp(float64(a.Interval), float64(b.Interval), f), lerp(float64(a.Volume), float64(b.Volume), f)
	}
	return float64(pins[0].Interval), float64(pins[0].Volume)
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}

func clamp01(x float64) float64 {
	return max(0, min(1, x))
}
