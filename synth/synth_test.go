package synth_test

import (
	"errors"
	"os"
	"path"
	"reflect"
	"runtime"
	"testing"

	"github.com/chiptrack/beepbox"
	"github.com/chiptrack/beepbox/synth"
)

const sampleRate = 44100

func loadSong(t *testing.T, name string) *beepbox.Song {
	t.Helper()
	_, myname, _, _ := runtime.Caller(0)
	b, err := os.ReadFile(path.Join(path.Dir(myname), "..", "testdata", name))
	if err != nil {
		t.Fatalf("cannot read %v: %v", name, err)
	}
	song, err := beepbox.Parse(b)
	if err != nil {
		t.Fatalf("could not parse %v: %v", name, err)
	}
	return song
}

// singleNoteSong has one note with pitch 0 over the first 8 parts of bar 0.
func singleNoteSong() *beepbox.Song {
	song := beepbox.NewSong()
	song.Channels[0].Patterns[0].Notes = []beepbox.Note{beepbox.NewNote(0, 0, 8, 3)}
	return song
}

func render(s *synth.Synth, frames int) (left, right []float32) {
	left = make([]float32, frames)
	right = make([]float32, frames)
	s.Render(left, right)
	return left, right
}

func energy(left, right []float32) float64 {
	ret := 0.0
	for i := range left {
		ret += float64(left[i])*float64(left[i]) + float64(right[i])*float64(right[i])
	}
	return ret
}

func TestEmptySongIsSilent(t *testing.T) {
	s := synth.New(beepbox.NewSong(), synth.Config{SampleRate: sampleRate})
	if err := s.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	left, right := render(s, 12345)
	if len(left) != 12345 || len(right) != 12345 {
		t.Fatalf("buffers were resized")
	}
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("frame %v is not silent: %v %v", i, left[i], right[i])
		}
	}
	if !s.Playing() {
		t.Fatalf("synth stopped in the middle of the song")
	}
}

func TestNoteSoundsDuringItsSpan(t *testing.T) {
	song := singleNoteSong()
	s := synth.New(song, synth.Config{SampleRate: sampleRate})
	if err := s.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	samplesPerPart := 4 * s.SamplesPerTick()
	left, right := render(s, song.PartsPerBar()*samplesPerPart)
	if left[0] == 0 || right[0] == 0 {
		t.Fatalf("the note did not start at the first sample")
	}
	for part := 0; part < 8; part++ {
		a, b := part*samplesPerPart, (part+1)*samplesPerPart
		if energy(left[a:b], right[a:b]) == 0 {
			t.Fatalf("part %v of the note is silent", part)
		}
	}
	for i := 8 * samplesPerPart; i < len(left); i++ {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("frame %v after the note is not silent", i)
		}
	}
}

func TestReverbTail(t *testing.T) {
	song := singleNoteSong()
	song.Reverb = 3
	s := synth.New(song, synth.Config{SampleRate: sampleRate})
	s.Play()
	samplesPerPart := 4 * s.SamplesPerTick()
	left, right := render(s, song.PartsPerBar()*samplesPerPart)
	tail := 8 * samplesPerPart
	if energy(left[tail:], right[tail:]) == 0 {
		t.Fatalf("reverb left no tail after the note")
	}
}

func TestMutedInstrumentIsSilent(t *testing.T) {
	song := singleNoteSong()
	song.Channels[0].Instruments[0].Mute = true
	s := synth.New(song, synth.Config{SampleRate: sampleRate})
	s.Play()
	if e := energy(render(s, 20000)); e != 0 {
		t.Fatalf("muted instrument rendered energy %v", e)
	}
}

func TestDeterministic(t *testing.T) {
	song := loadSong(t, "drums.yml")
	var buffers [2][]float32
	for i := range buffers {
		s := synth.New(song, synth.Config{SampleRate: 48000})
		s.LoopCount = 0
		if err := s.Play(); err != nil {
			t.Fatalf("Play failed: %v", err)
		}
		buffer, err := beepbox.Record(s, 1000, 1<<20)
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		buffers[i] = buffer
	}
	if len(buffers[0]) == 0 || energy(buffers[0], buffers[0]) == 0 {
		t.Fatalf("song rendered silence")
	}
	if !reflect.DeepEqual(buffers[0], buffers[1]) {
		t.Fatalf("two renders of the same song differ")
	}
}

func TestMasterVolume(t *testing.T) {
	song := loadSong(t, "drums.yml")
	full := synth.New(song, synth.Config{SampleRate: sampleRate})
	half := synth.New(song, synth.Config{SampleRate: sampleRate, Volume: 0.5})
	full.Play()
	half.Play()
	l1, r1 := render(full, 30000)
	l2, r2 := render(half, 30000)
	for i := range l1 {
		if l1[i]*0.5 != l2[i] || r1[i]*0.5 != r2[i] {
			t.Fatalf("frame %v: %v %v at full volume, %v %v at half", i, l1[i], r1[i], l2[i], r2[i])
		}
	}
}

func TestRecordStops(t *testing.T) {
	song := loadSong(t, "drums.yml")
	s := synth.New(song, synth.Config{SampleRate: sampleRate})
	if _, err := beepbox.Record(s, 512, 1<<20); err != nil {
		t.Fatalf("Record of a stopped synth failed: %v", err)
	}
	s.Play()
	if _, err := beepbox.Record(s, 512, 1<<18); !errors.Is(err, beepbox.ErrStillPlaying) {
		t.Fatalf("expected ErrStillPlaying for an endless loop, got %v", err)
	}
	s.Pause()
	s.SnapToStart()
	s.LoopCount = 0
	s.Play()
	buffer, err := beepbox.Record(s, 512, 1<<20)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	barFrames := song.PartsPerBar() * 4 * s.SamplesPerTick()
	if frames := len(buffer) / 2; frames > barFrames || frames < barFrames/2 {
		t.Fatalf("recorded %v frames, a bar is %v", frames, barFrames)
	}
}

// ticksPlayed renders one tick per call until the synth stops.
func ticksPlayed(t *testing.T, s *synth.Synth) int {
	t.Helper()
	spt := s.SamplesPerTick()
	left := make([]float32, spt)
	right := make([]float32, spt)
	ticks := 0
	for s.Playing() {
		if ticks > 1000 {
			t.Fatalf("synth did not stop")
		}
		s.Render(left, right)
		ticks++
	}
	return ticks
}

func TestLoopAndOutro(t *testing.T) {
	newSong := func() *beepbox.Song {
		song := beepbox.NewSong()
		song.BeatsPerBar = 1 // 16 ticks per bar
		song.SetBarCount(4)
		song.SetLoop(1, 2)
		return song
	}
	for _, c := range []struct {
		name        string
		loopCount   int
		enableIntro bool
		enableOutro bool
		bars        int
	}{
		{"loop twice with outro", 1, true, true, 6},
		{"play through", 0, true, true, 4},
		{"stop at loop end", 0, true, false, 3},
		{"skip intro", 0, false, true, 3},
		{"skip intro and loop", 2, false, false, 6},
	} {
		t.Run(c.name, func(t *testing.T) {
			s := synth.New(newSong(), synth.Config{SampleRate: 8000})
			s.LoopCount = c.loopCount
			s.EnableIntro = c.enableIntro
			s.EnableOutro = c.enableOutro
			s.Play()
			if ticks := ticksPlayed(t, s); ticks != c.bars*16 {
				t.Fatalf("played %v ticks, expected %v", ticks, c.bars*16)
			}
			start := synth.Position{}
			if !c.enableIntro {
				start.Bar = 1
			}
			if s.Position() != start {
				t.Fatalf("stopped synth rewound to %+v, expected %+v", s.Position(), start)
			}
			if s.EnableIntro != c.enableIntro || s.EnableOutro != c.enableOutro {
				t.Fatalf("stopping changed the intro and outro flags")
			}
			left, right := render(s, 100)
			if energy(left, right) != 0 {
				t.Fatalf("stopped synth is not silent")
			}
		})
	}
}

func TestPlayhead(t *testing.T) {
	song := beepbox.NewSong() // 16 bars of 8 beats of 4 parts
	s := synth.New(song, synth.Config{SampleRate: sampleRate})
	s.EnableOutro = true
	s.SetPlayhead(2.5)
	if p := s.Position(); p != (synth.Position{Bar: 2, Beat: 4}) {
		t.Fatalf("SetPlayhead(2.5) moved to %+v", p)
	}
	if h := s.Playhead(); h != 2.5 {
		t.Fatalf("Playhead is %v, expected 2.5", h)
	}
	s.SetPlayhead(1 + 1.0/64)
	if p := s.Position(); p != (synth.Position{Bar: 1, Tick: 2}) {
		t.Fatalf("SetPlayhead moved to %+v", p)
	}
	s.SetPlayhead(3 + 1.0/256)
	if h := s.Playhead(); h < 3+1.0/256-1e-4 || h > 3+1.0/256+1e-4 {
		t.Fatalf("Playhead is %v inside a tick, expected %v", h, 3+1.0/256)
	}
	s.SetPlayhead(99)
	if s.Position().Bar != 15 {
		t.Fatalf("playhead past the end moved to bar %v", s.Position().Bar)
	}
	s.SetPlayhead(1.25)
	s.Play()
	before := s.Playhead()
	render(s, 1000)
	if after := s.Playhead(); after <= before {
		t.Fatalf("playhead did not advance: %v -> %v", before, after)
	}
	s.Pause()
	before = s.Playhead()
	render(s, 1000)
	if after := s.Playhead(); after != before {
		t.Fatalf("paused playhead moved: %v -> %v", before, after)
	}
}

func TestPlayheadOutsidePlayableRegion(t *testing.T) {
	song := beepbox.NewSong()
	song.SetLoop(2, 4)
	s := synth.New(song, synth.Config{SampleRate: sampleRate})
	s.EnableIntro = false
	s.SetPlayhead(0.5)
	if p := s.Position(); p != (synth.Position{Bar: 2}) {
		t.Fatalf("SetPlayhead(0.5) without intro moved to %+v", p)
	}
	if h := s.Playhead(); h != 2 {
		t.Fatalf("Playhead is %v, expected 2", h)
	}
	s.SetPlayhead(9.75)
	if p := s.Position(); p != (synth.Position{Bar: 2}) {
		t.Fatalf("SetPlayhead(9.75) without outro moved to %+v", p)
	}
	s.SetPlayhead(3.5)
	if p := s.Position(); p != (synth.Position{Bar: 3, Beat: 4}) {
		t.Fatalf("SetPlayhead(3.5) inside the loop moved to %+v", p)
	}
}

func TestBarNavigation(t *testing.T) {
	song := beepbox.NewSong()
	song.SetLoop(2, 4) // intro 0-1, loop 2-5, outro 6-15
	s := synth.New(song, synth.Config{SampleRate: sampleRate})
	s.SnapToBar(5)
	s.NextBar()
	if bar := s.Position().Bar; bar != 0 {
		t.Fatalf("NextBar past the loop without outro went to %v", bar)
	}
	s.PrevBar()
	if bar := s.Position().Bar; bar != 5 {
		t.Fatalf("PrevBar from the start without outro went to %v", bar)
	}
	s.EnableOutro = true
	s.NextBar()
	s.NextBar()
	if bar := s.Position().Bar; bar != 7 {
		t.Fatalf("NextBar with outro went to %v", bar)
	}
	s.SnapToBar(0)
	s.PrevBar()
	if bar := s.Position().Bar; bar != 15 {
		t.Fatalf("PrevBar from the start with outro went to %v", bar)
	}
	s.EnableIntro = false
	s.SnapToStart()
	if bar := s.Position().Bar; bar != 2 {
		t.Fatalf("SnapToStart without intro went to %v", bar)
	}
	s.PrevBar()
	if bar := s.Position().Bar; bar != 15 {
		t.Fatalf("PrevBar from the loop start without intro went to %v", bar)
	}
	s.EnableOutro = false
	s.SnapToBar(9)
	if bar := s.Position().Bar; bar != 2 {
		t.Fatalf("SnapToBar into the outro went to %v", bar)
	}
}

func TestDrumsAndChords(t *testing.T) {
	song := loadSong(t, "drums.yml")
	for _, harmony := range []beepbox.Harmony{beepbox.HarmonyArpeggio, beepbox.HarmonyChord, beepbox.HarmonyArpChord} {
		song.Channels[0].Instruments[0].Harmony = harmony
		s := synth.New(song, synth.Config{SampleRate: sampleRate})
		s.Play()
		samplesPerPart := 4 * s.SamplesPerTick()
		left, right := render(s, 2*samplesPerPart)
		if energy(left, right) == 0 {
			t.Fatalf("%v: FM chord and drum are silent", beepbox.HarmonyNames[harmony])
		}
	}
	song.Channels[0].Instruments[0].Mute = true
	s := synth.New(song, synth.Config{SampleRate: sampleRate})
	s.Play()
	samplesPerPart := 4 * s.SamplesPerTick()
	left, right := render(s, 12*samplesPerPart)
	if energy(left[:samplesPerPart], right[:samplesPerPart]) == 0 {
		t.Fatalf("drum note is silent")
	}
	if energy(left[10*samplesPerPart:], right[10*samplesPerPart:]) != 0 {
		t.Fatalf("drum channel sounds after its last note")
	}
}
