package beepbox

import (
	"errors"
	"fmt"
)

type (
	// Song is the whole composition: global settings and the channels. The
	// first PitchChannelCount channels play pitched instruments, the rest are
	// drum channels. Songs are created with NewSong, by decoding a compact
	// string or by decoding JSON/YAML, and then edited in place.
	Song struct {
		Scale      int
		Key        int
		Tempo      int
		Reverb     int
		Blend      int // stereo separation narrowing, 0 is full separation
		Riff       int // amount of per note detune randomization
		Detune     int // global detune in cents, -DetuneMax..DetuneMax
		Muff       int // lowers the cutoff of every filter
		Mix        int
		SampleRate int `yaml:"samplerate"` // index into SampleRates

		BeatsPerBar           int `yaml:"beatsperbar"`
		BarCount              int `yaml:"barcount"`
		PartsPerBeat          int `yaml:"partsperbeat"`
		PatternsPerChannel    int `yaml:"patternsperchannel"`
		InstrumentsPerChannel int `yaml:"instrumentsperchannel"`

		// The loop plays LoopLength bars starting from LoopStart. Bars before
		// it are the intro and bars after it the outro.
		LoopStart  int `yaml:"loopstart"`
		LoopLength int `yaml:"looplength"`

		PitchChannelCount int `yaml:"pitchchannels"`
		DrumChannelCount  int `yaml:"drumchannels"`

		Channels []Channel
	}

	// Channel owns its instruments and patterns; Bars tells which pattern
	// plays in each bar.
	Channel struct {
		// Octave is the octave scroll position, used as the seed of the
		// compact pitch coder and as a hint to editors.
		Octave      int
		Instruments []Instrument
		Patterns    []Pattern
		Bars        Sequence `yaml:",flow"`
	}

	// Instrument is a discriminated union of the synthesis models. All the
	// fields exist for every type, but only the ones meaningful to Type are
	// serialized in compact strings.
	Instrument struct {
		Type       InstrumentType
		Wave       int // chip wave or drum index
		Filter     int
		Transition Transition
		Effect     int
		Chorus     int
		Harmony    Harmony
		Volume     int // 0 is the loudest
		Pan        int
		Mute       bool `yaml:",omitempty"`
		Octave     int  `yaml:",omitempty"`

		PulseWidth    int `yaml:"pulsewidth"`
		PulseEnvelope int `yaml:"pulseenvelope"`

		Algorithm         int
		FeedbackType      int `yaml:"feedbacktype"`
		FeedbackAmplitude int `yaml:"feedbackamplitude"`
		FeedbackEnvelope  int `yaml:"feedbackenvelope"`
		Operators         [OperatorCount]Operator `yaml:",flow"`
	}

	// Operator is one oscillator of an FM instrument.
	Operator struct {
		Frequency int
		Amplitude int
		Envelope  int
	}
)

// NewSong returns a song with the default settings: four pitch channels, one
// drum channel and sixteen empty bars.
func NewSong() *Song {
	s := &Song{}
	s.Reset()
	return s
}

// Reset restores every setting of the song to its default and recreates the
// channels.
func (s *Song) Reset() {
	*s = Song{
		Tempo:                 DefaultTempo,
		BeatsPerBar:           DefaultBeatsPerBar,
		BarCount:              DefaultBarCount,
		PartsPerBeat:          4,
		PatternsPerChannel:    DefaultPatternsPerChannel,
		InstrumentsPerChannel: 1,
		LoopLength:            DefaultLoopLength,
	}
	s.SetChannelCounts(DefaultPitchChannels, DefaultDrumChannels)
}

// DefaultInstrument returns an instrument of the given type with every
// setting at its default.
func DefaultInstrument(t InstrumentType) Instrument {
	instr := Instrument{
		Type:             t,
		Wave:             1,
		Filter:           1,
		Pan:              PanCenter,
		PulseEnvelope:    1,
		FeedbackEnvelope: 1,
	}
	for i := range instr.Operators {
		instr.Operators[i] = Operator{Envelope: 1}
	}
	instr.Operators[0] = Operator{Amplitude: OperatorAmplitudeMax, Envelope: 0}
	return instr
}

func (s *Song) newChannel(index int) Channel {
	drum := index >= s.PitchChannelCount
	c := Channel{}
	if !drum {
		c.Octave = max(3-index, 0)
	}
	t := ChipInstrument
	if drum {
		t = NoiseInstrument
	}
	c.Instruments = make([]Instrument, s.InstrumentsPerChannel)
	for i := range c.Instruments {
		c.Instruments[i] = DefaultInstrument(t)
	}
	c.Patterns = make([]Pattern, s.PatternsPerChannel)
	c.Bars = make(Sequence, s.BarCount)
	for bar := range c.Bars {
		if bar < 4 {
			c.Bars[bar] = 1
		}
	}
	return c
}

// ChannelCount returns the total number of channels.
func (s *Song) ChannelCount() int {
	return s.PitchChannelCount + s.DrumChannelCount
}

// IsDrumChannel reports whether channel plays drums.
func (s *Song) IsDrumChannel(channel int) bool {
	return channel >= s.PitchChannelCount
}

// Pattern returns the pattern playing in the given channel and bar, or nil
// if the bar is silent or refers to a pattern that does not exist.
func (s *Song) Pattern(channel, bar int) *Pattern {
	if channel < 0 || channel >= len(s.Channels) {
		return nil
	}
	c := &s.Channels[channel]
	p := c.Bars.Get(bar)
	if p < 1 || p > len(c.Patterns) {
		return nil
	}
	return &c.Patterns[p-1]
}

// Instrument returns the instrument that plays the pattern, or the first
// instrument of the channel when the pattern is nil.
func (s *Song) Instrument(channel int, pattern *Pattern) *Instrument {
	if channel < 0 || channel >= len(s.Channels) || len(s.Channels[channel].Instruments) == 0 {
		return nil
	}
	instruments := s.Channels[channel].Instruments
	i := 0
	if pattern != nil && pattern.Instrument >= 0 && pattern.Instrument < len(instruments) {
		i = pattern.Instrument
	}
	return &instruments[i]
}

func (s *Song) BeatsPerMinute() int {
	return BeatsPerMinute(s.Tempo)
}

func (s *Song) PartsPerBar() int {
	return s.BeatsPerBar * s.PartsPerBeat
}

// SampleRateHz returns the preferred output sample rate of the song.
func (s *Song) SampleRateHz() int {
	return SampleRates[clamp(s.SampleRate, 0, len(SampleRates)-1)].Hz
}

func (s *Song) MixSettings() Mix {
	return Mixes[clamp(s.Mix, 0, len(Mixes)-1)]
}

// SetChannelCounts changes the number of pitch and drum channels. Existing
// channels keep their content; pitch channels stay pitch channels and drum
// channels stay drum channels.
func (s *Song) SetChannelCounts(pitch, drum int) {
	pitch = clamp(pitch, PitchChannelCountMin, PitchChannelCountMax)
	drum = clamp(drum, DrumChannelCountMin, DrumChannelCountMax)
	old := s.Channels
	oldPitch := s.PitchChannelCount
	s.PitchChannelCount = pitch
	s.DrumChannelCount = drum
	s.Channels = make([]Channel, pitch+drum)
	for i := range s.Channels {
		var src int
		if i < pitch {
			src = i
			if src >= oldPitch {
				src = -1
			}
		} else {
			src = oldPitch + i - pitch
			if src >= len(old) {
				src = -1
			}
		}
		if src >= 0 && src < len(old) {
			s.Channels[i] = old[src]
		} else {
			s.Channels[i] = s.newChannel(i)
		}
	}
}

// SetBarCount resizes every channel's bar sequence and keeps the loop inside
// the song.
func (s *Song) SetBarCount(n int) {
	n = clamp(n, BarCountMin, BarCountMax)
	s.BarCount = n
	for i := range s.Channels {
		bars := make(Sequence, n)
		copy(bars, s.Channels[i].Bars)
		s.Channels[i].Bars = bars
	}
	s.SetLoop(s.LoopStart, s.LoopLength)
}

// SetLoop sets the loop region, clamped so that it fits the song.
func (s *Song) SetLoop(start, length int) {
	s.LoopStart = clamp(start, 0, s.BarCount-1)
	s.LoopLength = clamp(length, 1, s.BarCount-s.LoopStart)
}

// SetPatternsPerChannel resizes the pattern lists. Bars that refer to a
// removed pattern become silent.
func (s *Song) SetPatternsPerChannel(n int) {
	n = clamp(n, PatternsPerChannelMin, PatternsPerChannelMax)
	s.PatternsPerChannel = n
	for i := range s.Channels {
		c := &s.Channels[i]
		patterns := make([]Pattern, n)
		copy(patterns, c.Patterns)
		c.Patterns = patterns
		for bar, p := range c.Bars {
			if p > n {
				c.Bars[bar] = 0
			}
		}
	}
}

// SetInstrumentsPerChannel resizes the instrument lists. Patterns that refer
// to a removed instrument fall back to the first one.
func (s *Song) SetInstrumentsPerChannel(n int) {
	n = clamp(n, InstrumentsPerChannelMin, InstrumentsPerChannelMax)
	s.InstrumentsPerChannel = n
	for i := range s.Channels {
		c := &s.Channels[i]
		t := ChipInstrument
		if s.IsDrumChannel(i) {
			t = NoiseInstrument
		}
		instruments := make([]Instrument, n)
		copy(instruments, c.Instruments)
		for j := len(c.Instruments); j < n; j++ {
			instruments[j] = DefaultInstrument(t)
		}
		c.Instruments = instruments
		for p := range c.Patterns {
			if c.Patterns[p].Instrument >= n {
				c.Patterns[p].Instrument = 0
			}
		}
	}
}

// Validate checks the structural invariants of the song.
func (s *Song) Validate() error {
	if s.PitchChannelCount+s.DrumChannelCount != len(s.Channels) {
		return errors.New("pitch and drum channel counts do not match the number of channels")
	}
	if s.BarCount < BarCountMin || s.BarCount > BarCountMax {
		return fmt.Errorf("bar count %v out of range", s.BarCount)
	}
	if s.LoopStart < 0 || s.LoopLength < 1 || s.LoopStart+s.LoopLength > s.BarCount {
		return fmt.Errorf("loop %v+%v does not fit in %v bars", s.LoopStart, s.LoopLength, s.BarCount)
	}
	if s.BeatsPerBar < BeatsPerBarMin || s.BeatsPerBar > BeatsPerBarMax {
		return fmt.Errorf("beats per bar %v out of range", s.BeatsPerBar)
	}
	if s.PartsPerBeat <= 0 {
		return fmt.Errorf("parts per beat %v out of range", s.PartsPerBeat)
	}
	for i, c := range s.Channels {
		if len(c.Bars) != s.BarCount {
			return fmt.Errorf("channel %v has %v bars, expected %v", i, len(c.Bars), s.BarCount)
		}
		if len(c.Instruments) < 1 {
			return fmt.Errorf("channel %v has no instruments", i)
		}
		for bar, p := range c.Bars {
			if p < 0 || p > len(c.Patterns) {
				return fmt.Errorf("channel %v bar %v refers to pattern %v which does not exist", i, bar, p)
			}
		}
		for pi, p := range c.Patterns {
			if err := p.Validate(s.PartsPerBar()); err != nil {
				return fmt.Errorf("channel %v pattern %v: %w", i, pi+1, err)
			}
		}
	}
	return nil
}

// Copy makes a deep copy of the song.
func (s *Song) Copy() *Song {
	ret := *s
	ret.Channels = make([]Channel, len(s.Channels))
	for i, c := range s.Channels {
		ret.Channels[i] = c.Copy()
	}
	return &ret
}

func (c *Channel) Copy() Channel {
	instruments := make([]Instrument, len(c.Instruments))
	copy(instruments, c.Instruments)
	patterns := make([]Pattern, len(c.Patterns))
	for i, p := range c.Patterns {
		patterns[i] = p.Copy()
	}
	return Channel{
		Octave:      c.Octave,
		Instruments: instruments,
		Patterns:    patterns,
		Bars:        c.Bars.Copy(),
	}
}
