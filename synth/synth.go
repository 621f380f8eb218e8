// Package synth renders songs into stereo audio. A Synth owns all the
// transport state (playhead, oscillator phases, the reverb delay line and
// the limiter) and produces audio in blocks through Render.
//
// A Synth is not safe for concurrent use: the song must not be edited and
// transport commands must not be issued while Render is running.
package synth

import (
	"github.com/chiptrack/beepbox"
	"github.com/chiptrack/beepbox/waves"
	"github.com/viterin/vek/vek32"
)

type (
	// Config sets up a Synth. The zero value is usable: the sample rate
	// defaults to the song's preferred rate, the volume to unity and the
	// wave tables to a private cache.
	Config struct {
		SampleRate int
		Volume     float64
		Waves      *waves.Cache
	}

	// Synth plays a song. LoopCount is the number of times the loop is
	// repeated before playback continues to the outro; a negative count
	// loops forever. EnableIntro and EnableOutro tell whether the bars
	// before and after the loop are played.
	Synth struct {
		LoopCount   int
		EnableIntro bool
		EnableOutro bool

		song       *beepbox.Song
		sampleRate int
		volume     float64
		waves      *waves.Cache

		playing bool
		bar     int
		beat    int
		part    int
		tick    int
		// samples left in the current tick; 0 means the tick has not started
		remaining      int
		samplesPerTick int

		channels [maxChannels]channelState
		routines map[string]*routine
		current  *routine
		reverb   reverb
		limiter  limiter
	}
)

const (
	ticksPerPart = 4
	maxChannels  = beepbox.PitchChannelCountMax + beepbox.DrumChannelCountMax
)

// New returns a stopped Synth for song, positioned at the start. The synth
// keeps a reference to the song and reads it on every Render, so edits made
// between calls are heard immediately.
func New(song *beepbox.Song, cfg Config) *Synth {
	s := &Synth{
		LoopCount:   -1,
		EnableIntro: true,
		song:        song,
		sampleRate:  cfg.SampleRate,
		volume:      cfg.Volume,
		waves:       cfg.Waves,
		routines:    map[string]*routine{},
	}
	if s.sampleRate <= 0 {
		s.sampleRate = song.SampleRateHz()
	}
	if s.volume == 0 {
		s.volume = 1
	}
	if s.waves == nil {
		s.waves = waves.NewCache()
	}
	s.limiter.decay = 1 / (2 * float64(s.sampleRate))
	s.samplesPerTick = s.samplesPerArpeggio()
	return s
}

func (s *Synth) SampleRate() int {
	return s.sampleRate
}

// SamplesPerTick returns the length of an arpeggio tick, a quarter of a
// part, at the current tempo.
func (s *Synth) SamplesPerTick() int {
	return s.samplesPerArpeggio()
}

func (s *Synth) samplesPerArpeggio() int {
	bpm := s.song.BeatsPerMinute()
	ppb := max(s.song.PartsPerBeat, 1)
	return max(s.sampleRate*60/(bpm*ppb*ticksPerPart), 1)
}

// InvalidateRoutines drops every cached mixing routine. The next Render
// rebuilds the routines for the bars it plays.
func (s *Synth) InvalidateRoutines() {
	clear(s.routines)
	s.current = nil
}

// Render fills left and right with the next len(left) frames. Once the song
// ends, or if the synth is not playing, the rest of the buffers is silence.
// It returns the number of frames played before the song ended.
func (s *Synth) Render(left, right []float32) int {
	n := min(len(left), len(right))
	left, right = left[:n], right[:n]
	if !s.playing {
		clear(left)
		clear(right)
		return 0
	}
	if spt := s.samplesPerArpeggio(); spt != s.samplesPerTick {
		s.samplesPerTick = spt
		s.remaining = min(s.remaining, spt)
	}
	s.limiter.decay = 1 / (2 * float64(s.sampleRate))
	s.clampPosition()
	played := n
	for i := 0; i < n; {
		if !s.playing {
			clear(left[i:])
			clear(right[i:])
			played = i
			break
		}
		if s.remaining <= 0 {
			s.remaining = s.samplesPerTick
		}
		if s.current == nil {
			s.current = s.routineFor(s.bar)
		}
		run := min(n-i, s.remaining)
		offset := s.samplesPerTick - s.remaining
		for c := range min(s.song.ChannelCount(), maxChannels) {
			s.computeChannel(c, offset, run)
		}
		s.current.run(s, left[i:i+run], right[i:i+run])
		i += run
		s.remaining -= run
		if s.remaining == 0 {
			s.nextTick()
		}
	}
	vek32.MulNumber_Inplace(left, float32(s.volume))
	vek32.MulNumber_Inplace(right, float32(s.volume))
	return played
}
