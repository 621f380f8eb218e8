package beepbox_test

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/chiptrack/beepbox"
)

func TestPinInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := beepbox.NewNote(rng.Intn(48), 0, 1+rng.Intn(16), rng.Intn(4))
		for op := 0; op < 20; op++ {
			switch rng.Intn(3) {
			case 0, 1:
				n.SetPin(rng.Intn(n.Length()+1), rng.Intn(7)-3, rng.Intn(4))
			default:
				n.Resize(1 + rng.Intn(16))
			}
			if err := n.Validate(); err != nil {
				t.Fatalf("iteration %v, operation %v left the note invalid: %v (pins %v)", iter, op, err, n.Pins)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	n := beepbox.Note{Pitches: []int{0}, Start: 0, End: 8, Pins: []beepbox.NotePin{
		{0, 0, 3}, {1, 2, 2}, {2, 4, 1}, {2, 6, 1}, {2, 8, 1},
	}}
	n.Normalize()
	expected := []beepbox.NotePin{{0, 0, 3}, {2, 4, 1}, {2, 8, 1}}
	if !reflect.DeepEqual(n.Pins, expected) {
		t.Fatalf("Normalize gave %v, expected %v", n.Pins, expected)
	}
}

func TestResize(t *testing.T) {
	n := beepbox.NewNote(0, 4, 12, 3)
	n.SetPin(4, 4, 1)
	n.Resize(2)
	expected := []beepbox.NotePin{{0, 0, 3}, {2, 2, 2}}
	if n.End != 6 || !reflect.DeepEqual(n.Pins, expected) {
		t.Fatalf("shortened note ends at %v with pins %v, expected 6 and %v", n.End, n.Pins, expected)
	}
	n.Resize(5)
	expected = []beepbox.NotePin{{0, 0, 3}, {2, 5, 2}}
	if n.End != 9 || !reflect.DeepEqual(n.Pins, expected) {
		t.Fatalf("lengthened note ends at %v with pins %v, expected 9 and %v", n.End, n.Pins, expected)
	}
}

func TestChordEditing(t *testing.T) {
	n := beepbox.NewNote(5, 0, 4, 3)
	for _, p := range []int{9, 12, 9, 16, 19} {
		n.AddPitch(p)
	}
	if !reflect.DeepEqual(n.Pitches, []int{5, 9, 12, 16}) {
		t.Fatalf("chord is %v", n.Pitches)
	}
	if !n.RemovePitch(5) || n.RemovePitch(5) {
		t.Fatalf("RemovePitch did not report correctly")
	}
	n.Pitches = n.Pitches[:1]
	if n.RemovePitch(n.Pitches[0]) {
		t.Fatalf("the last pitch of a note was removed")
	}
}

func TestAddNote(t *testing.T) {
	var p beepbox.Pattern
	p.AddNote(beepbox.NewNote(0, 0, 6, 3))
	p.AddNote(beepbox.NewNote(2, 8, 10, 3))
	p.AddNote(beepbox.NewNote(4, 12, 16, 3))
	p.AddNote(beepbox.NewNote(7, 4, 12, 2))
	if len(p.Notes) != 3 {
		t.Fatalf("expected 3 notes, got %v", len(p.Notes))
	}
	starts := []int{p.Notes[0].Start, p.Notes[1].Start, p.Notes[2].Start}
	if !reflect.DeepEqual(starts, []int{0, 4, 12}) {
		t.Fatalf("note starts %v", starts)
	}
	if p.Notes[0].End != 4 {
		t.Fatalf("overlapped note was not shortened, ends at %v", p.Notes[0].End)
	}
	if err := p.Validate(16); err != nil {
		t.Fatalf("pattern is invalid after AddNote: %v", err)
	}
	if p.NoteAt(5) != 1 || p.NoteAt(12) != 2 || p.NoteAt(2) != 0 {
		t.Fatalf("NoteAt returned wrong indices")
	}
	if !p.RemoveNote(4) || p.NoteAt(5) != -1 {
		t.Fatalf("RemoveNote did not remove the note")
	}
}

func TestSongEdits(t *testing.T) {
	s := richSong()
	s.SetPatternsPerChannel(2)
	if s.Channels[0].Bars[4] != 0 {
		t.Fatalf("bar referring to a removed pattern was not silenced")
	}
	s.SetInstrumentsPerChannel(1)
	if s.Channels[0].Patterns[1].Instrument != 0 {
		t.Fatalf("pattern referring to a removed instrument was not reset")
	}
	s.SetBarCount(2)
	if s.LoopStart+s.LoopLength > s.BarCount {
		t.Fatalf("loop %v+%v does not fit in %v bars", s.LoopStart, s.LoopLength, s.BarCount)
	}
	s.SetChannelCounts(1, 0)
	if err := s.Validate(); err != nil {
		t.Fatalf("song is invalid after the edits: %v", err)
	}
	if s.Pattern(0, 0) == nil || s.Pattern(0, 2) != nil || s.Pattern(3, 0) != nil {
		t.Fatalf("Pattern lookup is wrong")
	}
	c := s.Copy()
	c.Channels[0].Patterns[0].Notes[0].Pitches[0] = 99
	if s.Channels[0].Patterns[0].Notes[0].Pitches[0] == 99 {
		t.Fatalf("Copy shares notes with the original")
	}
}

func TestBarSequence(t *testing.T) {
	s := richSong()
	s.SetBarCount(2)
	s.SetBarCount(5)
	if !reflect.DeepEqual(s.Channels[0].Bars, beepbox.Sequence{1, 2, 0, 0, 0}) {
		t.Fatalf("bars after shrinking and growing: %v", s.Channels[0].Bars)
	}
	if v := s.Channels[0].Bars.Get(5); v != 0 {
		t.Fatalf("bar past the end plays pattern %v", v)
	}
	if v := s.Channels[0].Bars.Get(-1); v != 0 {
		t.Fatalf("bar before the start plays pattern %v", v)
	}
	c := s.Channels[0].Bars.Copy()
	c[0] = 3
	if s.Channels[0].Bars[0] != 1 {
		t.Fatalf("Copy shares the sequence with the original")
	}
}
