package beepbox_test

import (
	"encoding/json"
	"os"
	"reflect"
	"testing"

	"github.com/chiptrack/beepbox"
	"gopkg.in/yaml.v3"
)

func TestJSONRoundTrip(t *testing.T) {
	s := richSong()
	b, err := s.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	var decoded beepbox.Song
	if err := decoded.FromJSON(b); err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if !reflect.DeepEqual(&decoded, s) {
		t.Fatalf("song did not survive the JSON round trip\ngot:      %+v\nexpected: %+v", decoded, *s)
	}
}

func TestJSONMarshaler(t *testing.T) {
	s := richSong()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	var decoded beepbox.Song
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(&decoded, s) {
		t.Fatalf("song did not survive json.Marshal and json.Unmarshal")
	}
}

func TestJSONDocumentFields(t *testing.T) {
	d := richSong().Document()
	if d.Format != "BeepBox" || d.Version != beepbox.LatestVersion {
		t.Fatalf("document header is %v %v", d.Format, d.Version)
	}
	if d.Key != "A" || d.Scale != "normal :)" || d.Mix != "Type C" || d.SampleRate != "48000" {
		t.Fatalf("enumerated settings were not written by name: %+v", d)
	}
	if d.IntroBars != 1 || d.LoopBars != 3 || d.TicksPerBeat != 4 || d.BeatsPerMinute != 190 {
		t.Fatalf("timing fields are wrong: %+v", d)
	}
	if len(d.Channels) != 5 || d.Channels[3].Type != "drum" || d.Channels[0].Type != "pitch" {
		t.Fatalf("channel types are wrong")
	}
	note := d.Channels[0].Patterns[0].Notes[2]
	expected := []beepbox.PointDocument{{Tick: 8, PitchBend: 0, Volume: 67}, {Tick: 12, PitchBend: 3, Volume: 33}, {Tick: 16, PitchBend: 0, Volume: 67}}
	if !reflect.DeepEqual(note.Points, expected) {
		t.Fatalf("note points %v, expected %v", note.Points, expected)
	}
	if d.Channels[0].Patterns[1].Instrument != 2 {
		t.Fatalf("pattern instruments are not one based")
	}
	if instr := d.Channels[0].Instruments[0]; instr.Volume != 75 || instr.Pan != -50 || instr.Wave != "sawtooth" {
		t.Fatalf("instrument document %+v", instr)
	}
}

func TestJSONTolerantImport(t *testing.T) {
	doc := `{
		"scale": "no such scale",
		"key": "d#",
		"reverb": 99,
		"beatsPerBar": 5,
		"ticksPerBeat": 7,
		"channels": [
			{"type": "DRUM", "instruments": [{"wave": "Deep"}], "patterns": [], "sequence": [1]},
			{"type": "pitch", "octaveScrollBar": 9,
			 "instruments": [{"type": "pwm", "pulseWidth": "25%", "transition": "BOW"}, {"type": "fm", "algorithm": "???"}],
			 "patterns": [{"instrument": 2, "notes": [
				{"pitches": [3, 3, 500], "points": [{"tick": 2, "volume": 100}, {"tick": 0, "volume": 50}]},
				{"pitches": [5], "points": [{"tick": 1, "volume": 100}, {"tick": 3, "volume": 100}]},
				{"pitches": [5], "points": [{"tick": 4, "volume": 100}]}
			 ]}],
			 "sequence": [1, 7]}
		]
	}`
	var s beepbox.Song
	if err := s.FromJSON([]byte(doc)); err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if s.Scale != 0 || s.Key != 3 || s.Reverb != beepbox.ReverbRange-1 {
		t.Fatalf("global settings not tolerated: scale %v key %v reverb %v", s.Scale, s.Key, s.Reverb)
	}
	if s.BeatsPerBar != 5 || s.PartsPerBeat != 6 {
		t.Fatalf("beats %v parts %v, expected 5 and 6", s.BeatsPerBar, s.PartsPerBeat)
	}
	if s.PitchChannelCount != 1 || s.DrumChannelCount != 1 {
		t.Fatalf("pitch channels were not moved before drum channels")
	}
	if s.BarCount != 2 || s.InstrumentsPerChannel != 2 {
		t.Fatalf("sizes were not derived from the channels")
	}
	pitch, drum := s.Channels[0], s.Channels[1]
	if pitch.Octave != beepbox.ChannelOctaveMax {
		t.Fatalf("octave scroll bar was not clamped")
	}
	if !reflect.DeepEqual(pitch.Bars, beepbox.Sequence{1, 0}) {
		t.Fatalf("dangling sequence entry was not silenced: %v", pitch.Bars)
	}
	pwm := pitch.Instruments[0]
	if pwm.Type != beepbox.PWMInstrument || pwm.PulseWidth != 2 || pwm.Transition != beepbox.TransitionBow {
		t.Fatalf("pwm instrument %+v", pwm)
	}
	if fm := pitch.Instruments[1]; fm.Type != beepbox.FMInstrument || fm.Algorithm != 0 {
		t.Fatalf("fm instrument %+v", fm)
	}
	if d := drum.Instruments[0]; d.Type != beepbox.NoiseInstrument || d.Wave != 6 {
		t.Fatalf("drum instrument %+v", d)
	}
	p := pitch.Patterns[0]
	if p.Instrument != 1 || len(p.Notes) != 1 {
		t.Fatalf("expected one valid note for instrument 1, got %+v", p)
	}
	n := p.Notes[0]
	if !reflect.DeepEqual(n.Pitches, []int{3, beepbox.MaxPitch}) || n.Start != 0 || n.End != 2 {
		t.Fatalf("note %+v", n)
	}
	if !reflect.DeepEqual(n.Pins, []beepbox.NotePin{{0, 0, 2}, {0, 2, 3}}) {
		t.Fatalf("note pins %v", n.Pins)
	}
}

func TestJSONInvalid(t *testing.T) {
	s := richSong()
	err := s.FromJSON([]byte(`{"channels": 3}`))
	if _, ok := err.(*beepbox.FormatError); !ok {
		t.Fatalf("expected a FormatError, got %v", err)
	}
	if !reflect.DeepEqual(s, beepbox.NewSong()) {
		t.Fatalf("failed import did not reset the song")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	s := richSong()
	b, err := s.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML failed: %v", err)
	}
	decoded, err := beepbox.Parse(b)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, s) {
		t.Fatalf("song did not survive the YAML round trip")
	}
}

func TestParseFixture(t *testing.T) {
	b, err := os.ReadFile("testdata/simple.yml")
	if err != nil {
		t.Fatalf("cannot read the fixture: %v", err)
	}
	s, err := beepbox.Parse(b)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var direct beepbox.Song
	if err := yaml.Unmarshal(b, &direct); err != nil {
		t.Fatalf("yaml.Unmarshal failed: %v", err)
	}
	if s.ChannelCount() != 1 || s.BarCount != 2 || len(s.Channels[0].Patterns[0].Notes) != 2 {
		t.Fatalf("fixture parsed into %+v", s)
	}
	if !reflect.DeepEqual(s.Channels, direct.Channels) {
		t.Fatalf("Parse and yaml.Unmarshal disagree on the channels")
	}
}

func TestParseForms(t *testing.T) {
	s := richSong()
	compact := s.ToCompactString()
	js, err := s.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	for name, input := range map[string]string{
		"compact":  compact,
		"fragment": "#" + compact,
		"url":      "https://example.com/beepbox/#" + compact,
		"padded":   "\n" + compact + "\n",
		"json":     string(js),
		"json url": "https://example.com/#" + string(js),
	} {
		decoded, err := beepbox.Parse([]byte(input))
		if err != nil {
			t.Fatalf("%v: Parse failed: %v", name, err)
		}
		if !reflect.DeepEqual(decoded, s) {
			t.Fatalf("%v: parsed song differs from the original", name)
		}
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := beepbox.Parse([]byte("channels: [this is: not, a song")); err == nil {
		t.Fatalf("Parse accepted malformed YAML")
	}
}
