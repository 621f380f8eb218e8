package beepbox

import (
	"errors"
	"fmt"
)

type (
	// Note is one or more simultaneous pitches from Start to End, in parts of
	// the bar. The first pitch has priority when chords are arpeggiated.
	Note struct {
		Pitches []int `yaml:",flow"`
		Start   int
		End     int
		Pins    []NotePin `yaml:",flow"`
	}

	// NotePin is a breakpoint of the pitch bend and volume envelope of a
	// note, Time parts after the note start. Interval is in semitones
	// relative to the note pitches and Volume is in 0..NoteSizeMax.
	NotePin struct {
		Interval int
		Time     int
		Volume   int
	}
)

// NewNote returns a note with a single pitch and a flat envelope.
func NewNote(pitch, start, end, volume int) Note {
	return Note{
		Pitches: []int{pitch},
		Start:   start,
		End:     end,
		Pins:    []NotePin{{0, 0, volume}, {0, end - start, volume}},
	}
}

func (n *Note) Copy() Note {
	pitches := make([]int, len(n.Pitches))
	copy(pitches, n.Pitches)
	pins := make([]NotePin, len(n.Pins))
	copy(pins, n.Pins)
	return Note{Pitches: pitches, Start: n.Start, End: n.End, Pins: pins}
}

// Length returns the duration of the note in parts.
func (n *Note) Length() int {
	return n.End - n.Start
}

// AddPitch adds a pitch to the chord. It reports false if the pitch is
// already present or the chord is full.
func (n *Note) AddPitch(pitch int) bool {
	if len(n.Pitches) >= MaxChordSize {
		return false
	}
	for _, p := range n.Pitches {
		if p == pitch {
			return false
		}
	}
	n.Pitches = append(n.Pitches, pitch)
	return true
}

// RemovePitch removes a pitch, unless it is the last one.
func (n *Note) RemovePitch(pitch int) bool {
	if len(n.Pitches) <= 1 {
		return false
	}
	for i, p := range n.Pitches {
		if p == pitch {
			n.Pitches = append(n.Pitches[:i], n.Pitches[i+1:]...)
			return true
		}
	}
	return false
}

// SetPin places a breakpoint at time (relative to the note start), replacing
// any pin already there, and collapses pins made redundant.
func (n *Note) SetPin(time, interval, volume int) {
	time = clamp(time, 0, n.Length())
	volume = clamp(volume, 0, NoteSizeMax)
	pin := NotePin{Interval: interval, Time: time, Volume: volume}
	i := 0
	for i < len(n.Pins) && n.Pins[i].Time < time {
		i++
	}
	if i < len(n.Pins) && n.Pins[i].Time == time {
		n.Pins[i] = pin
	} else {
		n.Pins = append(n.Pins, NotePin{})
		copy(n.Pins[i+1:], n.Pins[i:])
		n.Pins[i] = pin
	}
	n.Normalize()
}

// Resize changes the length of the note, keeping its start. When shortened,
// the envelope is cut at the new end; when lengthened, the last pin moves to
// the new end.
func (n *Note) Resize(length int) {
	if length < 1 {
		length = 1
	}
	if length >= n.Length() {
		if len(n.Pins) > 0 {
			n.Pins[len(n.Pins)-1].Time = length
		}
		n.End = n.Start + length
		n.Normalize()
		return
	}
	interval, volume := n.pinValuesAt(length)
	kept := n.Pins[:0]
	for _, pin := range n.Pins {
		if pin.Time < length {
			kept = append(kept, pin)
		}
	}
	n.Pins = append(kept, NotePin{Interval: interval, Time: length, Volume: volume})
	n.End = n.Start + length
	n.Normalize()
}

// pinValuesAt interpolates the envelope at time, rounding to the nearest
// integer.
func (n *Note) pinValuesAt(time int) (interval, volume int) {
	for i := 1; i < len(n.Pins); i++ {
		a, b := n.Pins[i-1], n.Pins[i]
		if time <= b.Time {
			span := b.Time - a.Time
			if span <= 0 {
				return b.Interval, b.Volume
			}
			t := time - a.Time
			interval = a.Interval + roundDiv((b.Interval-a.Interval)*t, span)
			volume = a.Volume + roundDiv((b.Volume-a.Volume)*t, span)
			return interval, volume
		}
	}
	last := n.Pins[len(n.Pins)-1]
	return last.Interval, last.Volume
}

func roundDiv(a, b int) int {
	if a < 0 {
		return -((-a + b/2) / b)
	}
	return (a + b/2) / b
}

// Normalize removes pins that lie on the straight line between their
// neighbours, both in interval and volume.
func (n *Note) Normalize() {
	if len(n.Pins) < 3 {
		return
	}
	kept := []NotePin{n.Pins[0]}
	for i := 1; i < len(n.Pins)-1; i++ {
		a, b, c := kept[len(kept)-1], n.Pins[i], n.Pins[i+1]
		if collinear(a.Time, a.Interval, b.Time, b.Interval, c.Time, c.Interval) &&
			collinear(a.Time, a.Volume, b.Time, b.Volume, c.Time, c.Volume) {
			continue
		}
		kept = append(kept, b)
	}
	n.Pins = append(kept, n.Pins[len(n.Pins)-1])
}

func collinear(t0, v0, t1, v1, t2, v2 int) bool {
	return (v1-v0)*(t2-t0) == (v2-v0)*(t1-t0)
}

// Validate checks the pitch and pin invariants of the note.
func (n *Note) Validate() error {
	if len(n.Pitches) < 1 || len(n.Pitches) > MaxChordSize {
		return fmt.Errorf("note has %v pitches", len(n.Pitches))
	}
	for i, p := range n.Pitches {
		for _, q := range n.Pitches[:i] {
			if p == q {
				return fmt.Errorf("pitch %v appears twice", p)
			}
		}
	}
	if n.End <= n.Start || n.Start < 0 {
		return fmt.Errorf("note spans [%v, %v)", n.Start, n.End)
	}
	if len(n.Pins) < 2 {
		return errors.New("note has fewer than two pins")
	}
	if n.Pins[0].Time != 0 {
		return errors.New("first pin is not at time 0")
	}
	if n.Pins[len(n.Pins)-1].Time != n.Length() {
		return errors.New("last pin is not at the end of the note")
	}
	for i := 1; i < len(n.Pins); i++ {
		if n.Pins[i].Time <= n.Pins[i-1].Time {
			return errors.New("pin times are not strictly increasing")
		}
	}
	for _, pin := range n.Pins {
		if pin.Volume < 0 || pin.Volume > NoteSizeMax {
			return fmt.Errorf("pin volume %v out of range", pin.Volume)
		}
	}
	for i := 2; i < len(n.Pins); i++ {
		a, b, c := n.Pins[i-2], n.Pins[i-1], n.Pins[i]
		if collinear(a.Time, a.Interval, b.Time, b.Interval, c.Time, c.Interval) &&
			collinear(a.Time, a.Volume, b.Time, b.Volume, c.Time, c.Volume) {
			return fmt.Errorf("pin %v is redundant", i-1)
		}
	}
	return nil
}
