package beepbox

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

type (
	// Document is the human editable JSON form of a song. Enumerated
	// settings are stored by name; unknown names and out of range numbers
	// are tolerated when decoding.
	Document struct {
		Format         string            `json:"format"`
		Version        int               `json:"version"`
		Scale          string            `json:"scale"`
		Key            string            `json:"key"`
		Mix            string            `json:"mix"`
		SampleRate     string            `json:"sampleRate"`
		IntroBars      int               `json:"introBars"`
		LoopBars       int               `json:"loopBars"`
		BeatsPerBar    int               `json:"beatsPerBar"`
		TicksPerBeat   int               `json:"ticksPerBeat"`
		BeatsPerMinute int               `json:"beatsPerMinute"`
		Reverb         int               `json:"reverb"`
		Blend          int               `json:"blend"`
		Riff           int               `json:"riff"`
		Detune         int               `json:"detune"`
		Muff           int               `json:"muff"`
		Channels       []ChannelDocument `json:"channels"`
	}

	ChannelDocument struct {
		Type            string               `json:"type"`
		OctaveScrollBar int                  `json:"octaveScrollBar"`
		Instruments     []InstrumentDocument `json:"instruments"`
		Patterns        []PatternDocument    `json:"patterns"`
		Sequence        []int                `json:"sequence"`
	}

	InstrumentDocument struct {
		Type              string             `json:"type"`
		Volume            int                `json:"volume"`
		Wave              string             `json:"wave,omitempty"`
		Transition        string             `json:"transition"`
		Filter            string             `json:"filter,omitempty"`
		Chorus            string             `json:"chorus,omitempty"`
		Effect            string             `json:"effect,omitempty"`
		Harmony           string             `json:"harmony"`
		Pan               int                `json:"pan"`
		Mute              bool               `json:"mute,omitempty"`
		Octave            int                `json:"octave,omitempty"`
		PulseWidth        string             `json:"pulseWidth,omitempty"`
		PulseEnvelope     string             `json:"pulseEnvelope,omitempty"`
		Algorithm         string             `json:"algorithm,omitempty"`
		FeedbackType      string             `json:"feedbackType,omitempty"`
		FeedbackAmplitude int                `json:"feedbackAmplitude,omitempty"`
		FeedbackEnvelope  string             `json:"feedbackEnvelope,omitempty"`
		Operators         []OperatorDocument `json:"operators,omitempty"`
	}

	OperatorDocument struct {
		Frequency string `json:"frequency"`
		Amplitude int    `json:"amplitude"`
		Envelope  string `json:"envelope"`
	}

	PatternDocument struct {
		Instrument int            `json:"instrument"`
		Notes      []NoteDocument `json:"notes"`
	}

	NoteDocument struct {
		Pitches []int           `json:"pitches"`
		Points  []PointDocument `json:"points"`
	}

	PointDocument struct {
		Tick      int `json:"tick"`
		PitchBend int `json:"pitchBend"`
		Volume    int `json:"volume"`
	}
)

const documentFormat = "BeepBox"

// Document converts the song into its JSON form.
func (s *Song) Document() Document {
	d := Document{
		Format:         documentFormat,
		Version:        LatestVersion,
		Scale:          Scales[clamp(s.Scale, 0, len(Scales)-1)].Name,
		Key:            Keys[clamp(s.Key, 0, len(Keys)-1)].Name,
		Mix:            s.MixSettings().Name,
		SampleRate:     SampleRates[clamp(s.SampleRate, 0, len(SampleRates)-1)].Name,
		IntroBars:      s.LoopStart,
		LoopBars:       s.LoopLength,
		BeatsPerBar:    s.BeatsPerBar,
		TicksPerBeat:   s.PartsPerBeat,
		BeatsPerMinute: s.BeatsPerMinute(),
		Reverb:         s.Reverb,
		Blend:          s.Blend,
		Riff:           s.Riff,
		Detune:         s.Detune,
		Muff:           s.Muff,
	}
	for ci, c := range s.Channels {
		cd := ChannelDocument{Type: "pitch", OctaveScrollBar: c.Octave, Sequence: make([]int, s.BarCount)}
		if s.IsDrumChannel(ci) {
			cd.Type = "drum"
		}
		for _, instr := range c.Instruments {
			cd.Instruments = append(cd.Instruments, instrumentDocument(&instr))
		}
		for _, p := range c.Patterns {
			pd := PatternDocument{Instrument: p.Instrument + 1, Notes: []NoteDocument{}}
			for _, n := range p.Notes {
				nd := NoteDocument{Pitches: append([]int{}, n.Pitches...)}
				for _, pin := range n.Pins {
					nd.Points = append(nd.Points, PointDocument{
						Tick:      n.Start + pin.Time,
						PitchBend: pin.Interval,
						Volume:    int(math.Round(float64(pin.Volume) * 100 / NoteSizeMax)),
					})
				}
				pd.Notes = append(pd.Notes, nd)
			}
			cd.Patterns = append(cd.Patterns, pd)
		}
		for bar := range cd.Sequence {
			cd.Sequence[bar] = c.Bars.Get(bar)
		}
		d.Channels = append(d.Channels, cd)
	}
	return d
}

func instrumentDocument(instr *Instrument) InstrumentDocument {
	d := InstrumentDocument{
		Type:       instr.Type.String(),
		Volume:     (InstrumentVolumes - 1 - clamp(instr.Volume, 0, InstrumentVolumes-1)) * 100 / (InstrumentVolumes - 1),
		Transition: TransitionNames[clamp(int(instr.Transition), 0, len(TransitionNames)-1)],
		Harmony:    HarmonyNames[clamp(int(instr.Harmony), 0, len(HarmonyNames)-1)],
		Pan:        (instr.Pan - PanCenter) * 100 / PanCenter,
		Mute:       instr.Mute,
		Octave:     instr.Octave,
	}
	switch instr.Type {
	case ChipInstrument, PWMInstrument:
		if instr.Type == ChipInstrument {
			d.Wave = ChipWaves[clamp(instr.Wave, 0, len(ChipWaves)-1)].Name
		} else {
			d.PulseWidth = PulseWidths[clamp(instr.PulseWidth, 0, len(PulseWidths)-1)].Name
			d.PulseEnvelope = Envelopes[clamp(instr.PulseEnvelope, 0, len(Envelopes)-1)].Name
		}
		d.Filter = Filters[clamp(instr.Filter, 0, len(Filters)-1)].Name
		d.Chorus = Choruses[clamp(instr.Chorus, 0, len(Choruses)-1)].Name
		d.Effect = Effects[clamp(instr.Effect, 0, len(Effects)-1)].Name
	case FMInstrument:
		d.Effect = Effects[clamp(instr.Effect, 0, len(Effects)-1)].Name
		d.Algorithm = Algorithms[clamp(instr.Algorithm, 0, len(Algorithms)-1)].Name
		d.FeedbackType = Feedbacks[clamp(instr.FeedbackType, 0, len(Feedbacks)-1)].Name
		d.FeedbackAmplitude = instr.FeedbackAmplitude
		d.FeedbackEnvelope = Envelopes[clamp(instr.FeedbackEnvelope, 0, len(Envelopes)-1)].Name
		for _, op := range instr.Operators {
			d.Operators = append(d.Operators, OperatorDocument{
				Frequency: OperatorFrequencies[clamp(op.Frequency, 0, len(OperatorFrequencies)-1)].Name,
				Amplitude: op.Amplitude,
				Envelope:  Envelopes[clamp(op.Envelope, 0, len(Envelopes)-1)].Name,
			})
		}
	case NoiseInstrument:
		d.Wave = Drums[clamp(instr.Wave, 0, len(Drums)-1)].Name
	}
	return d
}

// UnmarshalJSON fills the fields missing from data with their defaults
// before decoding.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	p := plain(NewSong().Document())
	p.Channels = nil
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Document(p)
	return nil
}

func (d *InstrumentDocument) UnmarshalJSON(data []byte) error {
	type plain InstrumentDocument
	def := DefaultInstrument(ChipInstrument)
	p := plain(instrumentDocument(&def))
	p.Type = ""
	p.Wave = ""
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = InstrumentDocument(p)
	return nil
}

// FromDocument replaces the song with the one described by d. Unknown names
// fall back to the first entry of their table; numbers are clamped.
func (s *Song) FromDocument(d *Document) {
	s.Reset()
	s.Scale = nameIndex(d.Scale, len(Scales), func(i int) string { return Scales[i].Name })
	s.Key = nameIndex(strings.ReplaceAll(d.Key, "#", "♯"), len(Keys), func(i int) string { return Keys[i].Name })
	s.Mix = nameIndex(d.Mix, len(Mixes), func(i int) string { return Mixes[i].Name })
	s.SampleRate = nameIndex(d.SampleRate, len(SampleRates), func(i int) string { return SampleRates[i].Name })
	s.BeatsPerBar = clamp(d.BeatsPerBar, BeatsPerBarMin, BeatsPerBarMax)
	s.PartsPerBeat = nearestRhythm(d.TicksPerBeat)
	s.Tempo = tempoFromBPM(d.BeatsPerMinute)
	s.Reverb = clamp(d.Reverb, 0, ReverbRange-1)
	s.Blend = clamp(d.Blend, 0, BlendRange-1)
	s.Riff = clamp(d.Riff, 0, RiffRange-1)
	s.Detune = clamp(d.Detune, -DetuneMax, DetuneMax)
	s.Muff = clamp(d.Muff, 0, MuffRange-1)

	var pitchDocs, drumDocs []*ChannelDocument
	for i := range d.Channels {
		if nameIndex(d.Channels[i].Type, 2, func(i int) string { return []string{"pitch", "drum"}[i] }) == 1 {
			drumDocs = append(drumDocs, &d.Channels[i])
		} else {
			pitchDocs = append(pitchDocs, &d.Channels[i])
		}
	}
	pitchDocs = pitchDocs[:min(len(pitchDocs), PitchChannelCountMax)]
	drumDocs = drumDocs[:min(len(drumDocs), DrumChannelCountMax)]
	channelDocs := append(pitchDocs, drumDocs...)
	barCount, patterns, instruments := 1, 1, 1
	for _, cd := range channelDocs {
		barCount = max(barCount, len(cd.Sequence))
		patterns = max(patterns, len(cd.Patterns))
		instruments = max(instruments, len(cd.Instruments))
	}
	s.SetChannelCounts(len(pitchDocs), len(drumDocs))
	if len(pitchDocs) == 0 {
		// a song needs at least one pitch channel; keep the default one
		channelDocs = append([]*ChannelDocument{nil}, channelDocs...)
	}
	s.SetBarCount(barCount)
	s.SetPatternsPerChannel(patterns)
	s.SetInstrumentsPerChannel(instruments)
	s.SetLoop(d.IntroBars, d.LoopBars)

	for ci, cd := range channelDocs {
		if cd == nil {
			continue
		}
		c := &s.Channels[ci]
		drum := s.IsDrumChannel(ci)
		if !drum {
			c.Octave = clamp(cd.OctaveScrollBar, 0, ChannelOctaveMax)
		}
		for ii := range c.Instruments {
			if ii < len(cd.Instruments) {
				c.Instruments[ii] = instrumentFromDocument(&cd.Instruments[ii], drum)
			}
		}
		for bar := range c.Bars {
			c.Bars[bar] = 0
			if bar < len(cd.Sequence) {
				c.Bars[bar] = clampBar(cd.Sequence[bar], s.PatternsPerChannel)
			}
		}
		for pi := range c.Patterns {
			c.Patterns[pi] = Pattern{}
			if pi < len(cd.Patterns) {
				c.Patterns[pi] = patternFromDocument(&cd.Patterns[pi], s.InstrumentsPerChannel, s.PartsPerBar(), drum)
			}
		}
	}
}

func instrumentFromDocument(d *InstrumentDocument, drum bool) Instrument {
	t := InstrumentType(nameIndex(d.Type, len(InstrumentTypeNames), func(i int) string { return InstrumentTypeNames[i] }))
	if drum {
		t = NoiseInstrument
	} else if t == NoiseInstrument {
		t = ChipInstrument
	}
	instr := DefaultInstrument(t)
	volume := clamp(d.Volume, 0, 100)
	instr.Volume = clamp(int(math.Round(float64(100-volume)*(InstrumentVolumes-1)/100)), 0, InstrumentVolumes-1)
	instr.Transition = Transition(nameIndex(d.Transition, len(TransitionNames), func(i int) string { return TransitionNames[i] }))
	instr.Harmony = Harmony(nameIndex(d.Harmony, len(HarmonyNames), func(i int) string { return HarmonyNames[i] }))
	instr.Pan = clamp(int(math.Round(float64(d.Pan)*PanCenter/100))+PanCenter, 0, PanMax)
	instr.Mute = d.Mute
	instr.Octave = clamp(d.Octave, OctaveOffsetMin, OctaveOffsetMax)
	switch t {
	case ChipInstrument, PWMInstrument:
		if t == ChipInstrument && d.Wave != "" {
			instr.Wave = nameIndex(d.Wave, len(ChipWaves), func(i int) string { return ChipWaves[i].Name })
		} else if t == PWMInstrument {
			instr.PulseWidth = nameIndex(d.PulseWidth, len(PulseWidths), func(i int) string { return PulseWidths[i].Name })
			instr.PulseEnvelope = nameIndex(d.PulseEnvelope, len(Envelopes), func(i int) string { return Envelopes[i].Name })
		}
		instr.Filter = nameIndex(d.Filter, len(Filters), func(i int) string { return Filters[i].Name })
		instr.Chorus = nameIndex(d.Chorus, len(Choruses), func(i int) string { return Choruses[i].Name })
		instr.Effect = nameIndex(d.Effect, len(Effects), func(i int) string { return Effects[i].Name })
	case FMInstrument:
		instr.Effect = nameIndex(d.Effect, len(Effects), func(i int) string { return Effects[i].Name })
		instr.Algorithm = nameIndex(d.Algorithm, len(Algorithms), func(i int) string { return Algorithms[i].Name })
		instr.FeedbackType = nameIndex(d.FeedbackType, len(Feedbacks), func(i int) string { return Feedbacks[i].Name })
		instr.FeedbackAmplitude = clamp(d.FeedbackAmplitude, 0, OperatorAmplitudeMax)
		instr.FeedbackEnvelope = nameIndex(d.FeedbackEnvelope, len(Envelopes), func(i int) string { return Envelopes[i].Name })
		for i := range instr.Operators {
			if i >= len(d.Operators) {
				break
			}
			od := d.Operators[i]
			instr.Operators[i] = Operator{
				Frequency: nameIndex(od.Frequency, len(OperatorFrequencies), func(i int) string { return OperatorFrequencies[i].Name }),
				Amplitude: clamp(od.Amplitude, 0, OperatorAmplitudeMax),
				Envelope:  nameIndex(od.Envelope, len(Envelopes), func(i int) string { return Envelopes[i].Name }),
			}
		}
	case NoiseInstrument:
		if d.Wave != "" {
			instr.Wave = nameIndex(d.Wave, len(Drums), func(i int) string { return Drums[i].Name })
		}
	}
	return instr
}

// patternFromDocument converts the notes, dropping the ones that are
// malformed, overlap a previous note or do not fit in the bar.
func patternFromDocument(d *PatternDocument, instruments, partsPerBar int, drum bool) Pattern {
	p := Pattern{Instrument: clamp(d.Instrument-1, 0, instruments-1)}
	maxPitch := MaxPitch
	if drum {
		maxPitch = DrumCount - 1
	}
	prevEnd := 0
	for _, nd := range d.Notes {
		if len(nd.Points) < 2 || len(nd.Pitches) == 0 {
			continue
		}
		points := append([]PointDocument{}, nd.Points...)
		sort.SliceStable(points, func(i, j int) bool { return points[i].Tick < points[j].Tick })
		start, end := points[0].Tick, points[len(points)-1].Tick
		if start < prevEnd || end > partsPerBar || end <= start {
			continue
		}
		n := Note{Start: start, End: end}
		for _, pitch := range nd.Pitches {
			if len(n.Pitches) >= MaxChordSize {
				break
			}
			pitch = clamp(pitch, 0, maxPitch)
			dup := false
			for _, q := range n.Pitches {
				dup = dup || q == pitch
			}
			if !dup {
				n.Pitches = append(n.Pitches, pitch)
			}
		}
		for _, pt := range points {
			pin := NotePin{
				Interval: pt.PitchBend,
				Time:     pt.Tick - start,
				Volume:   clamp(int(math.Round(float64(pt.Volume)*NoteSizeMax/100)), 0, NoteSizeMax),
			}
			if len(n.Pins) > 0 && n.Pins[len(n.Pins)-1].Time == pin.Time {
				n.Pins[len(n.Pins)-1] = pin
				continue
			}
			n.Pins = append(n.Pins, pin)
		}
		n.Normalize()
		p.Notes = append(p.Notes, n)
		prevEnd = end
	}
	return p
}

// nameIndex finds name among n names, ignoring case. Unknown names map to 0.
func nameIndex(name string, n int, nameAt func(int) string) int {
	key := cases.Fold().String(strings.TrimSpace(name))
	for i := 0; i < n; i++ {
		if cases.Fold().String(nameAt(i)) == key {
			return i
		}
	}
	return 0
}

func nearestRhythm(partsPerBeat int) int {
	best := Rhythms[1]
	for _, r := range Rhythms {
		if abs(r-partsPerBeat) < abs(best-partsPerBeat) {
			best = r
		}
	}
	return best
}

func tempoFromBPM(bpm int) int {
	if bpm <= 0 {
		return DefaultTempo
	}
	return clamp(int(math.Round(math.Log2(float64(bpm)/120)*9+4)), 0, TempoSteps-1)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToJSON encodes the song as an indented JSON document.
func (s *Song) ToJSON() ([]byte, error) {
	b, err := json.MarshalIndent(s.Document(), "", "\t")
	if err != nil {
		return nil, fmt.Errorf("could not marshal song document: %w", err)
	}
	return b, nil
}

// FromJSON replaces the song with the JSON document in data.
func (s *Song) FromJSON(data []byte) error {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		s.Reset()
		return &FormatError{Offset: -1, Msg: fmt.Sprintf("invalid JSON document: %v", err)}
	}
	s.FromDocument(&d)
	return nil
}

func (s Song) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Document())
}

func (s *Song) UnmarshalJSON(data []byte) error {
	return s.FromJSON(data)
}
