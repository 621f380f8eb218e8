package beepbox

import (
	"fmt"
	"sort"
)

// Pattern is a bar worth of notes for one channel, played by the
// Instrument:th instrument of the channel. Notes are sorted by start time
// and never overlap.
type Pattern struct {
	Instrument int    `yaml:",omitempty"`
	Notes      []Note `yaml:",omitempty"`
}

func (p *Pattern) Copy() Pattern {
	var notes []Note
	if p.Notes != nil {
		notes = make([]Note, len(p.Notes))
		for i, n := range p.Notes {
			notes[i] = n.Copy()
		}
	}
	return Pattern{Instrument: p.Instrument, Notes: notes}
}

// AddNote inserts a note keeping the notes sorted. Notes starting inside the
// new note are removed and a note running into it is shortened.
func (p *Pattern) AddNote(n Note) {
	kept := p.Notes[:0]
	for _, old := range p.Notes {
		switch {
		case old.Start >= n.Start && old.Start < n.End:
			continue
		case old.Start < n.Start && old.End > n.Start:
			old.Resize(n.Start - old.Start)
		}
		kept = append(kept, old)
	}
	i := sort.Search(len(kept), func(i int) bool { return kept[i].Start >= n.Start })
	kept = append(kept, Note{})
	copy(kept[i+1:], kept[i:])
	kept[i] = n
	p.Notes = kept
}

// RemoveNote removes the note starting at start. It reports whether a note
// was found.
func (p *Pattern) RemoveNote(start int) bool {
	for i, n := range p.Notes {
		if n.Start == start {
			p.Notes = append(p.Notes[:i], p.Notes[i+1:]...)
			if len(p.Notes) == 0 {
				p.Notes = nil
			}
			return true
		}
	}
	return false
}

// NoteAt returns the index of the note sounding at the given part, or -1.
func (p *Pattern) NoteAt(part int) int {
	for i, n := range p.Notes {
		if n.Start <= part && part < n.End {
			return i
		}
	}
	return -1
}

// Validate checks that the notes are sorted, fit in a bar of partsPerBar and
// have well formed pins.
func (p *Pattern) Validate(partsPerBar int) error {
	prevEnd := 0
	for i, n := range p.Notes {
		if n.Start < prevEnd {
			return fmt.Errorf("note %v overlaps the previous note", i)
		}
		if n.End > partsPerBar {
			return fmt.Errorf("note %v ends at part %v, past the bar", i, n.End)
		}
		if err := n.Validate(); err != nil {
			return fmt.Errorf("note %v: %w", i, err)
		}
		prevEnd = n.End
	}
	return nil
}
