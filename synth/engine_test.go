package synth

import (
	"math"
	"testing"

	"github.com/chiptrack/beepbox"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPitchLoudnessPerOctave(t *testing.T) {
	for _, pitch := range []float64{0, 7, 36, 60} {
		ratio := pitchLoudness(pitch+12, pitchedDamping, 2) / pitchLoudness(pitch, pitchedDamping, 2)
		if !approx(ratio, math.Pow(2, -12.0/pitchedDamping)) {
			t.Fatalf("octave above %v changes the loudness by %v", pitch, ratio)
		}
	}
	if !approx(pitchLoudness(48, 48, 5), 0.2) {
		t.Fatalf("loudness base 5 is not applied")
	}
}

func TestNoteSizeToVolume(t *testing.T) {
	for _, c := range []struct{ size, volume float64 }{
		{0, 0}, {3, 1}, {1.5, math.Pow(0.5, 1.5)}, {-1, 0},
	} {
		if v := noteSizeToVolume(c.size); !approx(v, c.volume) {
			t.Fatalf("noteSizeToVolume(%v) = %v, expected %v", c.size, v, c.volume)
		}
	}
}

func TestEnvelopes(t *testing.T) {
	for _, c := range []struct {
		name     string
		index    int
		t, beats float64
		expected float64
	}{
		{"custom", 0, 1, 1, 0.3},
		{"steady", 1, 5, 5, 1},
		{"punch start", 2, 0, 0, 2},
		{"punch mid", 2, 0.05, 0, 1.5},
		{"punch end", 2, 1, 0, 1},
		{"flare start", 3, 0, 0, 0},
		{"flare peak", 3, 0.25 / math.Sqrt(32), 0, 1},
		{"pluck start", 6, 0, 0, 1},
		{"pluck", 7, 0.125, 0, 0.5},
		{"swell start", 9, 0, 0, 0},
		{"tremolo trough", 12, 0, 0, 0},
		{"tremolo peak", 12, 0, 0.5, 1},
		{"tremolo 4 trough", 15, 0, 0, 0.5},
		{"decay", 18, 0.1, 0, 0.5},
		{"flute start", 21, 0, 0, 0},
		{"custom flare start", 24, 0, 0, 0},
		{"custom tremolo peak", 25, 0, 0.5, 1},
		{"unknown", 99, 0, 0, 1},
	} {
		if v := envelope(c.index, 0.3, 3, c.t, c.beats); !approx(v, c.expected) {
			t.Fatalf("%v: envelope is %v, expected %v", c.name, v, c.expected)
		}
	}
}

func TestVoicing(t *testing.T) {
	type pair struct{ lead, harmony int }
	for _, c := range []struct {
		mode     beepbox.Harmony
		count    int
		expected [8]pair
	}{
		{beepbox.HarmonyArpeggio, 1, [8]pair{{0, -1}, {0, -1}, {0, -1}, {0, -1}, {0, -1}, {0, -1}, {0, -1}, {0, -1}}},
		{beepbox.HarmonyArpeggio, 3, [8]pair{{0, -1}, {1, -1}, {2, -1}, {1, -1}, {0, -1}, {1, -1}, {2, -1}, {1, -1}}},
		{beepbox.HarmonyDuet, 4, [8]pair{{0, 1}, {0, 2}, {0, 3}, {0, 2}, {0, 1}, {0, 2}, {0, 3}, {0, 2}}},
		{beepbox.HarmonyChord, 3, [8]pair{{0, 2}, {1, 2}, {0, 2}, {1, 2}, {0, 2}, {1, 2}, {0, 2}, {1, 2}}},
		{beepbox.HarmonySeventh, 4, [8]pair{{0, 1}, {2, 3}, {0, 1}, {2, 3}, {0, 1}, {2, 3}, {0, 1}, {2, 3}}},
		{beepbox.HarmonyHalfArpeggio, 4, [8]pair{{0, -1}, {0, -1}, {1, -1}, {1, -1}, {2, -1}, {2, -1}, {3, -1}, {3, -1}}},
		{beepbox.HarmonyArpChord, 3, [8]pair{{1, 0}, {2, 0}, {1, 0}, {2, 0}, {1, 0}, {2, 0}, {1, 0}, {2, 0}}},
		{beepbox.Harmony(99), 2, [8]pair{{0, -1}, {1, -1}, {0, -1}, {1, -1}, {0, -1}, {1, -1}, {0, -1}, {1, -1}}},
	} {
		for tick, e := range c.expected {
			lead, harmony := voicing(c.mode, c.count, tick)
			if lead != e.lead || harmony != e.harmony {
				t.Fatalf("mode %v with %v pitches at tick %v: got %v %v, expected %v %v", c.mode, c.count, tick, lead, harmony, e.lead, e.harmony)
			}
		}
	}
}

func TestTransitions(t *testing.T) {
	note := beepbox.NewNote(0, 4, 8, 3) // 16 ticks
	prev := beepbox.NewNote(12, 0, 4, 1)
	for _, c := range []struct {
		name                 string
		transition           beepbox.Transition
		prev                 *beepbox.Note
		u                    float64
		interval, size, fade float64
	}{
		{"seamless start", beepbox.TransitionSeamless, nil, 0, 0, 3, 1},
		{"seamless last tick", beepbox.TransitionSeamless, nil, 15.5, 0, 3, 0.5},
		{"seamless end", beepbox.TransitionSeamless, nil, 16, 0, 3, 0},
		{"sudden start", beepbox.TransitionSudden, &prev, 0, 0, 3, 0},
		{"sudden rise", beepbox.TransitionSudden, &prev, 0.5, 0, 3, 0.5},
		{"click start", beepbox.TransitionClick, nil, 0, 0, clickVolume, 1},
		{"click settle", beepbox.TransitionClick, nil, 0.5, 0, 3.75, 1},
		{"bow", beepbox.TransitionBow, nil, 2, 0, 3, 0.5},
		{"blip", beepbox.TransitionBlip, nil, 15.5, 24, 3, 0.5},
		{"smooth start", beepbox.TransitionSmooth, &prev, 0, 0, 2, 1},
		{"smooth blend", beepbox.TransitionSmooth, &prev, 4, 0, 2.5, 1},
		{"smooth after blend", beepbox.TransitionSmooth, &prev, 8, 0, 3, 1},
		{"slide start", beepbox.TransitionSlide, &prev, 0, 6, 3, 1},
		{"slide blend", beepbox.TransitionSlide, &prev, 4, 3, 3, 1},
	} {
		span := noteSpan{note: &note, prev: c.prev, transition: c.transition}
		interval, size, fade := span.at(c.u)
		if !approx(interval, c.interval) || !approx(size, c.size) || !approx(fade, c.fade) {
			t.Fatalf("%v: got %v %v %v, expected %v %v %v", c.name, interval, size, fade, c.interval, c.size, c.fade)
		}
	}
	silent := beepbox.NewNote(12, 0, 4, 0)
	span := noteSpan{note: &note, prev: &silent, transition: beepbox.TransitionSmooth}
	if _, size, _ := span.at(0); size != 3 {
		t.Fatalf("smooth transition blended with a silent note")
	}
	span = noteSpan{note: &note, prev: &prev, transition: beepbox.TransitionSeamless}
	if span.resetsPhase() {
		t.Fatalf("seamless transition reset the phase of a continued note")
	}
	span.transition = beepbox.TransitionSudden
	if !span.resetsPhase() {
		t.Fatalf("sudden transition kept the phase")
	}
}

func TestPinsAt(t *testing.T) {
	n := beepbox.Note{Pitches: []int{0}, Start: 0, End: 8, Pins: []beepbox.NotePin{
		{Interval: 0, Time: 0, Volume: 3},
		{Interval: 4, Time: 4, Volume: 1},
		{Interval: 0, Time: 8, Volume: 1},
	}}
	for _, c := range []struct{ time, interval, size float64 }{
		{0, 0, 3}, {2, 2, 2}, {4, 4, 1}, {6, 2, 1}, {8, 0, 1},
	} {
		interval, size := pinsAt(&n, c.time)
		if !approx(interval, c.interval) || !approx(size, c.size) {
			t.Fatalf("pinsAt(%v) = %v %v, expected %v %v", c.time, interval, size, c.interval, c.size)
		}
	}
}

func TestRoutineCache(t *testing.T) {
	song := beepbox.NewSong()
	s := New(song, Config{SampleRate: 44100})
	if fp := fingerprint(song, 0); fp != "c|c|c|c|n" {
		t.Fatalf("default song fingerprint is %q", fp)
	}
	s.Play()
	buf := make([]float32, 2000)
	s.Render(buf, buf)
	if len(s.routines) != 1 {
		t.Fatalf("expected one cached routine, got %v", len(s.routines))
	}
	song.Channels[1].Instruments[0].Type = beepbox.FMInstrument
	song.Channels[1].Instruments[0].Algorithm = 4
	song.Channels[1].Instruments[0].FeedbackType = 2
	s.Render(buf, buf)
	if len(s.routines) != 1 {
		t.Fatalf("routine was rebuilt in the middle of a bar")
	}
	s.InvalidateRoutines()
	if len(s.routines) != 0 {
		t.Fatalf("InvalidateRoutines kept %v routines", len(s.routines))
	}
	s.Render(buf, buf)
	r, ok := s.routines["c|f4.2|c|c|n"]
	if !ok || len(s.routines) != 1 {
		t.Fatalf("routine for the new fingerprint is missing: %v", s.routines)
	}
	if v := r.voices[1]; v.kind != fmVoice || v.carriers != 1 || len(v.feedbackFrom[2]) != 1 {
		t.Fatalf("FM voice was compiled as %+v", v)
	}
	s.SnapToBar(2)
	s.Render(buf, buf)
	if len(s.routines) != 1 {
		t.Fatalf("bars with the same fingerprint did not share the routine")
	}
}

func TestReverb(t *testing.T) {
	var r reverb
	for i := 0; i < 20000; i++ {
		if l, rr := r.process(1, reverbAmount(0)); l != 0 || rr != 0 {
			t.Fatalf("reverb 0 produced a wet signal at sample %v", i)
		}
	}
	r = reverb{}
	peak := 0.0
	for i := 0; i < 100000; i++ {
		in := 0.0
		if i == 0 {
			in = 1
		}
		l, rr := r.process(in, reverbAmount(beepbox.ReverbRange-1))
		peak = math.Max(peak, math.Max(math.Abs(l), math.Abs(rr)))
		if i > 90000 && peak > 0 && math.Abs(l) > 0.1 {
			t.Fatalf("reverb tail does not decay: %v at sample %v", l, i)
		}
	}
	if peak == 0 {
		t.Fatalf("impulse left no reverb")
	}
}

func TestLimiter(t *testing.T) {
	l := limiter{decay: 0.001}
	if a, b := l.process(0.5, -0.25); !approx(a, 0.8) || !approx(b, -0.4) {
		t.Fatalf("limiter gave %v %v", a, b)
	}
	if a, _ := l.process(0, 0); a != 0 {
		t.Fatalf("limiter turned silence into %v", a)
	}
	if !approx(l.limit, 0.499) {
		t.Fatalf("limit did not decay linearly: %v", l.limit)
	}
}

func TestSineAt(t *testing.T) {
	for _, c := range []struct{ phase, value float64 }{
		{0, 0}, {0.25, 1}, {0.5, 0}, {-0.25, -1}, {1.75, -1}, {-1e-17, 0},
	} {
		if v := sineAt(c.phase); math.Abs(v-c.value) > 1e-6 {
			t.Fatalf("sineAt(%v) = %v, expected %v", c.phase, v, c.value)
		}
	}
}

func TestRiff(t *testing.T) {
	if riff(0, 1, 4) != riff(0, 1, 4) {
		t.Fatalf("riff is not deterministic")
	}
	for c := 0; c < 4; c++ {
		for start := 0; start < 32; start++ {
			if v := riff(c, 3, start); v < -1 || v > 1 {
				t.Fatalf("riff out of range: %v", v)
			}
		}
	}
}
