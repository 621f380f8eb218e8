package synth

import (
	"math"

	"github.com/chiptrack/beepbox"
)

// Position is a point of the song in the scheduler's own units.
type Position struct {
	Bar, Beat, Part, Tick int
}

// Play starts playback from the current position. The drum tables of the
// song are built ahead of time so that the first render does not stall; a
// drum that cannot be built is reported, and its channel plays silence.
func (s *Synth) Play() error {
	var drums []int
	for c := s.song.PitchChannelCount; c < len(s.song.Channels); c++ {
		for _, instr := range s.song.Channels[c].Instruments {
			drums = append(drums, instr.Wave)
		}
	}
	err := s.waves.Warm(drums...)
	s.playing = true
	s.clampPosition()
	return err
}

// Pause stops playback, keeping the position.
func (s *Synth) Pause() {
	s.playing = false
}

func (s *Synth) Playing() bool {
	return s.playing
}

func (s *Synth) Position() Position {
	return Position{Bar: s.bar, Beat: s.beat, Part: s.part, Tick: s.tick}
}

// Playhead returns the position in bars, including the fraction of the
// current bar already played.
func (s *Synth) Playhead() float64 {
	partsPerBar := max(s.song.PartsPerBar(), 1)
	ticks := float64(s.tick)
	if s.remaining > 0 {
		ticks += float64(s.samplesPerTick-s.remaining) / float64(s.samplesPerTick)
	}
	parts := float64(s.beat*s.song.PartsPerBeat+s.part) + ticks/ticksPerPart
	return float64(s.bar) + parts/float64(partsPerBar)
}

// SetPlayhead moves to a position given in bars. The beat, part, tick and
// the sample offset inside the tick are all derived from it.
func (s *Synth) SetPlayhead(bars float64) {
	song := s.song
	bars = max(0, min(bars, float64(song.BarCount)-1e-9))
	s.bar = int(bars)
	parts := (bars - float64(s.bar)) * float64(song.PartsPerBar())
	whole := int(parts)
	s.beat = whole / song.PartsPerBeat
	s.part = whole % song.PartsPerBeat
	ticks := (parts - float64(whole)) * ticksPerPart
	s.tick = min(int(ticks), ticksPerPart-1)
	s.samplesPerTick = s.samplesPerArpeggio()
	s.remaining = 0
	if offset := int(math.Floor((ticks - float64(s.tick)) * float64(s.samplesPerTick))); offset > 0 {
		s.remaining = s.samplesPerTick - offset
	}
	s.current = nil
	s.clampPosition()
}

// SnapToStart moves to the beginning of the song, or of the loop when the
// intro is disabled.
func (s *Synth) SnapToStart() {
	s.SnapToBar(0)
}

// SnapToBar moves to the beginning of bar.
func (s *Synth) SnapToBar(bar int) {
	s.bar = bar
	s.beat, s.part, s.tick, s.remaining = 0, 0, 0, 0
	s.current = nil
	s.clampPosition()
}

// NextBar moves to the start of the following bar, wrapping around to the
// start of the playable region.
func (s *Synth) NextBar() {
	bar := s.bar + 1
	loopEnd := s.song.LoopStart + s.song.LoopLength
	if bar >= s.song.BarCount || (!s.EnableOutro && bar >= loopEnd) {
		bar = 0
		if !s.EnableIntro {
			bar = s.song.LoopStart
		}
	}
	s.SnapToBar(bar)
}

// PrevBar moves to the start of the previous bar, wrapping around to the
// end of the playable region.
func (s *Synth) PrevBar() {
	bar := s.bar - 1
	if bar < 0 || (!s.EnableIntro && bar < s.song.LoopStart) {
		bar = s.song.BarCount - 1
		if !s.EnableOutro {
			bar = s.song.LoopStart + s.song.LoopLength - 1
		}
	}
	s.SnapToBar(bar)
}

// clampPosition keeps the position inside the song and, depending on
// EnableIntro and EnableOutro, inside the playable region. A position moved
// to another bar starts at the beginning of that bar.
func (s *Synth) clampPosition() {
	song := s.song
	bar := s.bar
	if s.beat >= song.BeatsPerBar || s.part >= song.PartsPerBeat {
		s.beat, s.part, s.tick, s.remaining = 0, 0, 0, 0
	}
	if s.bar < 0 || s.bar >= song.BarCount {
		s.bar = 0
	}
	loopEnd := song.LoopStart + song.LoopLength
	if !s.EnableIntro && s.bar < song.LoopStart {
		s.bar = song.LoopStart
	}
	if !s.EnableOutro && s.bar >= loopEnd {
		s.bar = song.LoopStart
	}
	if s.bar != bar {
		s.beat, s.part, s.tick, s.remaining = 0, 0, 0, 0
		s.current = nil
	}
}

func (s *Synth) nextTick() {
	s.tick++
	if s.tick < ticksPerPart {
		return
	}
	s.tick = 0
	s.part++
	if s.part < s.song.PartsPerBeat {
		return
	}
	s.part = 0
	s.beat++
	if s.beat < s.song.BeatsPerBar {
		return
	}
	s.beat = 0
	s.nextBar()
}

func (s *Synth) nextBar() {
	s.current = nil
	s.bar++
	song := s.song
	if s.bar == song.LoopStart+song.LoopLength {
		switch {
		case s.LoopCount < 0:
			s.bar = song.LoopStart
		case s.LoopCount > 0:
			s.LoopCount--
			s.bar = song.LoopStart
		case !s.EnableOutro:
			s.stop()
			return
		}
	}
	if s.bar >= song.BarCount {
		s.stop()
	}
}

// stop rewinds to the start of the playable region.
func (s *Synth) stop() {
	s.playing = false
	s.SnapToStart()
}

var _ beepbox.Renderer = (*Synth)(nil)
