package beepbox

import (
	"errors"
	"fmt"
	"math"
	"unicode"

	"github.com/chiptrack/beepbox/bitfield"
)

// legacy beats per bar of the oldest format
var legacyBeats = []int{6, 7, 8, 9, 10}

// legacy tempo settings of formats before version 4
var legacyTempos = []int{1, 4, 7, 10}

// compactReader walks the symbols of a compact string.
type compactReader struct {
	src     string
	pos     int
	version int
}

func (r *compactReader) errorf(format string, args ...any) error {
	return &FormatError{Offset: r.pos, Msg: fmt.Sprintf(format, args...)}
}

func (r *compactReader) next() (int, error) {
	if r.pos >= len(r.src) {
		return 0, r.errorf("unexpected end of input")
	}
	v, ok := bitfield.SymbolValue(r.src[r.pos])
	if !ok {
		return 0, r.errorf("invalid symbol %q", r.src[r.pos])
	}
	r.pos++
	return v, nil
}

// nextN reads n symbols, failing on the first invalid one.
func (r *compactReader) nextN(n int) ([]int, error) {
	ret := make([]int, n)
	for i := range ret {
		v, err := r.next()
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

func (r *compactReader) next2() (int, error) {
	v, err := r.nextN(2)
	if err != nil {
		return 0, err
	}
	return v[0]<<6 + v[1], nil
}

func (r *compactReader) bits(length int) *bitfield.Reader {
	b := bitfield.NewReader(r.src, r.pos, r.pos+length)
	r.pos += length
	return b
}

// FromCompactString replaces the song with the one encoded in compressed.
// Input starting with whitespace or '{' is decoded as JSON. If the version
// is not supported the song is left at its default and a FormatError is
// returned. On other errors the song holds whatever was decoded before the
// error.
func (s *Song) FromCompactString(compressed string) error {
	if len(compressed) == 0 {
		s.Reset()
		return nil
	}
	if compressed[0] == '#' {
		compressed = compressed[1:]
	}
	if len(compressed) == 0 {
		s.Reset()
		return nil
	}
	if unicode.IsSpace(rune(compressed[0])) || compressed[0] == '{' {
		return s.FromJSON([]byte(compressed))
	}
	s.Reset()
	r := &compactReader{src: compressed}
	version, err := r.next()
	if err != nil {
		return err
	}
	if version < OldestVersion || version > LatestVersion {
		return &FormatError{Offset: 0, Msg: fmt.Sprintf("unsupported version %d", version)}
	}
	r.version = version
	if version < 3 {
		s.SetChannelCounts(3, 1)
	}
	d := decoder{song: s, r: r, channel: 0, instrument: -1}
	for r.pos < len(r.src) {
		t := r.src[r.pos]
		r.pos++
		if err := d.tag(t); err != nil {
			return err
		}
	}
	s.SetLoop(s.LoopStart, s.LoopLength)
	return nil
}

type decoder struct {
	song                *Song
	r                   *compactReader
	channel, instrument int // instrument selected by the start instrument tag
}

func (d *decoder) beforeThree() bool { return d.r.version < 3 }
func (d *decoder) beforeFour() bool  { return d.r.version < 4 }
func (d *decoder) beforeFive() bool  { return d.r.version < 5 }
func (d *decoder) beforeSix() bool   { return d.r.version < 6 }
func (d *decoder) beforeSeven() bool { return d.r.version < 7 }

func (d *decoder) tag(t byte) error {
	s, r := d.song, d.r
	switch t {
	case tagChannelCount:
		v, err := r.nextN(2)
		if err != nil {
			return err
		}
		s.SetChannelCounts(v[0], v[1])
	case tagScale:
		v, err := r.next()
		if err != nil {
			return err
		}
		if d.beforeThree() && v == 10 {
			v = 11
		}
		s.Scale = clamp(v, 0, len(Scales)-1)
	case tagKey:
		v, err := r.next()
		if err != nil {
			return err
		}
		if d.beforeThree() {
			v = len(Keys) - 1 - v
		}
		s.Key = clamp(v, 0, len(Keys)-1)
	case tagLoopStart:
		var v int
		var err error
		if d.beforeFive() {
			v, err = r.next()
		} else {
			v, err = r.next2()
		}
		if err != nil {
			return err
		}
		s.LoopStart = v
	case tagLoopEnd:
		var v int
		var err error
		if d.beforeFive() {
			v, err = r.next()
		} else {
			v, err = r.next2()
			v++
		}
		if err != nil {
			return err
		}
		s.LoopLength = v
	case tagBarCount:
		var v int
		var err error
		if d.beforeThree() {
			v, err = r.next()
		} else {
			v, err = r.next2()
		}
		if err != nil {
			return err
		}
		// the loop is clamped once all tags are read
		loopStart, loopLength := s.LoopStart, s.LoopLength
		s.SetBarCount(v + 1)
		s.LoopStart, s.LoopLength = loopStart, loopLength
	case tagTempo:
		v, err := r.next()
		if err != nil {
			return err
		}
		if d.beforeFour() {
			v = legacyTempos[clamp(v, 0, len(legacyTempos)-1)]
		}
		s.Tempo = clamp(v, 0, TempoSteps-1)
	case tagReverb:
		return d.setting(&s.Reverb, 0, ReverbRange-1, 0)
	case tagBlend:
		return d.setting(&s.Blend, 0, BlendRange-1, 0)
	case tagRiff:
		return d.setting(&s.Riff, 0, RiffRange-1, 0)
	case tagDetune:
		return d.setting(&s.Detune, -DetuneMax, DetuneMax, -DetuneMax)
	case tagMuff:
		return d.setting(&s.Muff, 0, MuffRange-1, 0)
	case tagMix:
		return d.setting(&s.Mix, 0, len(Mixes)-1, 0)
	case tagSampleRate:
		return d.setting(&s.SampleRate, 0, len(SampleRates)-1, 0)
	case tagBeatCount:
		v, err := r.next()
		if err != nil {
			return err
		}
		if d.beforeThree() {
			s.BeatsPerBar = legacyBeats[clamp(v, 0, len(legacyBeats)-1)]
		} else {
			s.BeatsPerBar = clamp(v+1, BeatsPerBarMin, BeatsPerBarMax)
		}
	case tagPatternCount:
		v, err := r.next()
		if err != nil {
			return err
		}
		s.SetPatternsPerChannel(v + 1)
	case tagInstrumentCount:
		v, err := r.next()
		if err != nil {
			return err
		}
		s.SetInstrumentsPerChannel(v + 1)
	case tagRhythm:
		v, err := r.next()
		if err != nil {
			return err
		}
		s.PartsPerBeat = Rhythms[clamp(v, 0, len(Rhythms)-1)]
	case tagChannelOctave:
		if d.beforeThree() {
			v, err := r.nextN(2)
			if err != nil {
				return err
			}
			if v[0] < len(s.Channels) {
				s.Channels[v[0]].Octave = clamp(v[1], 0, ChannelOctaveMax)
			}
			return nil
		}
		for i := range s.Channels {
			v, err := r.next()
			if err != nil {
				return err
			}
			if !s.IsDrumChannel(i) {
				s.Channels[i].Octave = clamp(v, 0, ChannelOctaveMax)
			}
		}
	case tagStartInstrument:
		v, err := r.next()
		if err != nil {
			return err
		}
		d.instrument++
		if d.instrument >= s.InstrumentsPerChannel {
			d.channel++
			d.instrument = 0
		}
		if d.channel >= len(s.Channels) {
			return r.errorf("more instruments than channels")
		}
		t := InstrumentType(clamp(v, 0, len(InstrumentTypeNames)-1))
		drum := s.IsDrumChannel(d.channel)
		if drum {
			t = NoiseInstrument
		} else if t == NoiseInstrument {
			t = ChipInstrument
		}
		s.Channels[d.channel].Instruments[d.instrument] = DefaultInstrument(t)
	case tagWave, tagFilter, tagTransition, tagEffect, tagChorus, tagVolume:
		if d.beforeSix() {
			return d.legacyInstrumentSetting(t)
		}
		return d.instrumentSetting(t)
	case tagHarmony, tagPan, tagMute, tagOctaveOffset, tagPulseWidth, tagPulseEnvelope,
		tagAlgorithm, tagFeedbackType, tagFeedbackAmplitude, tagFeedbackEnvelope,
		tagOperatorFreqs, tagOperatorAmps, tagOperatorEnvelopes:
		return d.instrumentSetting(t)
	case tagBars:
		return d.bars()
	case tagPatterns:
		return d.patterns()
	default:
		return &FormatError{Offset: r.pos - 1, Msg: fmt.Sprintf("unknown tag %q", t)}
	}
	return nil
}

// setting reads one symbol into dst, shifted by offset and clamped.
func (d *decoder) setting(dst *int, min, max, offset int) error {
	v, err := d.r.next()
	if err != nil {
		return err
	}
	*dst = clamp(v+offset, min, max)
	return nil
}

func (d *decoder) current() (*Instrument, error) {
	if d.instrument < 0 {
		return nil, d.r.errorf("instrument setting before any instrument")
	}
	return &d.song.Channels[d.channel].Instruments[d.instrument], nil
}

func (d *decoder) instrumentSetting(t byte) error {
	instr, err := d.current()
	if err != nil {
		return err
	}
	if t == tagOperatorFreqs || t == tagOperatorAmps || t == tagOperatorEnvelopes {
		v, err := d.r.nextN(OperatorCount)
		if err != nil {
			return err
		}
		for i := range instr.Operators {
			op := &instr.Operators[i]
			switch t {
			case tagOperatorFreqs:
				op.Frequency = clamp(v[i], 0, len(OperatorFrequencies)-1)
			case tagOperatorAmps:
				op.Amplitude = clamp(v[i], 0, OperatorAmplitudeMax)
			default:
				op.Envelope = clamp(v[i], 0, len(Envelopes)-1)
			}
		}
		return nil
	}
	v, err := d.r.next()
	if err != nil {
		return err
	}
	applyInstrumentSetting(instr, t, v, d.beforeSeven())
	return nil
}

func applyInstrumentSetting(instr *Instrument, t byte, v int, beforeSeven bool) {
	switch t {
	case tagWave:
		if instr.Type == NoiseInstrument {
			instr.Wave = clamp(v, 0, len(Drums)-1)
		} else {
			instr.Wave = clamp(v, 0, len(ChipWaves)-1)
		}
	case tagFilter:
		instr.Filter = clamp(v, 0, len(Filters)-1)
	case tagTransition:
		instr.Transition = Transition(clamp(v, 0, len(TransitionNames)-1))
	case tagEffect:
		instr.Effect = clamp(v, 0, len(Effects)-1)
	case tagChorus:
		if beforeSeven && v == len(Choruses) {
			// "custom harmony" chorus of the older formats
			instr.Chorus = 0
			instr.Harmony = HarmonyDuet
			return
		}
		instr.Chorus = clamp(v, 0, len(Choruses)-1)
	case tagVolume:
		instr.Volume = clamp(v, 0, InstrumentVolumes-1)
	case tagHarmony:
		instr.Harmony = Harmony(clamp(v, 0, len(HarmonyNames)-1))
	case tagPan:
		instr.Pan = clamp(v, 0, PanMax)
	case tagMute:
		instr.Mute = v != 0
	case tagOctaveOffset:
		instr.Octave = clamp(v+OctaveOffsetMin, OctaveOffsetMin, OctaveOffsetMax)
	case tagPulseWidth:
		instr.PulseWidth = clamp(v, 0, len(PulseWidths)-1)
	case tagPulseEnvelope:
		instr.PulseEnvelope = clamp(v, 0, len(Envelopes)-1)
	case tagAlgorithm:
		instr.Algorithm = clamp(v, 0, len(Algorithms)-1)
	case tagFeedbackType:
		instr.FeedbackType = clamp(v, 0, len(Feedbacks)-1)
	case tagFeedbackAmplitude:
		instr.FeedbackAmplitude = clamp(v, 0, OperatorAmplitudeMax)
	case tagFeedbackEnvelope:
		instr.FeedbackEnvelope = clamp(v, 0, len(Envelopes)-1)
	}
}

// legacyInstrumentSetting decodes the per channel instrument settings of
// versions before 6. Version 2 prefixes the value with a channel index and
// has a single instrument per channel; versions 3 to 5 store one value for
// every instrument of every channel, filter, effect and chorus only for
// pitch channels.
func (d *decoder) legacyInstrumentSetting(t byte) error {
	s, r := d.song, d.r
	if d.beforeThree() {
		v, err := r.nextN(2)
		if err != nil {
			return err
		}
		if v[0] >= len(s.Channels) {
			return r.errorf("channel %d out of range", v[0])
		}
		applyInstrumentSetting(&s.Channels[v[0]].Instruments[0], t, v[1], true)
		return nil
	}
	pitchOnly := t == tagFilter || t == tagEffect || t == tagChorus
	for ci := range s.Channels {
		if pitchOnly && s.IsDrumChannel(ci) {
			continue
		}
		for ii := range s.Channels[ci].Instruments {
			v, err := r.next()
			if err != nil {
				return err
			}
			applyInstrumentSetting(&s.Channels[ci].Instruments[ii], t, v, true)
		}
	}
	return nil
}

func (d *decoder) bars() error {
	s, r := d.song, d.r
	if d.beforeThree() {
		v, err := r.nextN(2)
		if err != nil {
			return err
		}
		channel, barCount := v[0], v[1]
		if channel >= len(s.Channels) {
			return r.errorf("channel %d out of range", channel)
		}
		bits := r.bits(int(math.Ceil(float64(barCount) * 0.5)))
		for i := 0; i < barCount; i++ {
			p := bits.Read(3) + 1
			if i < s.BarCount {
				s.Channels[channel].Bars[i] = clampBar(p, s.PatternsPerChannel)
			}
		}
		return fromBits(bits.Err())
	}
	neededBits := 0
	if d.beforeFive() {
		neededBits = bitsFor(s.PatternsPerChannel)
	} else {
		neededBits = bitsFor(s.PatternsPerChannel + 1)
	}
	length := int(math.Ceil(float64(len(s.Channels)*s.BarCount*neededBits) / 6))
	bits := r.bits(length)
	for ci := range s.Channels {
		for bar := 0; bar < s.BarCount; bar++ {
			p := bits.Read(neededBits)
			if d.beforeFive() {
				p++
			}
			s.Channels[ci].Bars[bar] = clampBar(p, s.PatternsPerChannel)
		}
	}
	return fromBits(bits.Err())
}

// fromBits converts the errors of the bit field reader into FormatErrors.
func fromBits(err error) error {
	var bf *bitfield.FormatError
	if errors.As(err, &bf) {
		return &FormatError{Offset: bf.Offset, Msg: bf.Msg}
	}
	return err
}

func clampBar(p, patterns int) int {
	if p < 0 || p > patterns {
		return 0
	}
	return p
}

func (d *decoder) patterns() error {
	s, r := d.song, d.r
	if d.beforeThree() {
		channel, err := r.next()
		if err != nil {
			return err
		}
		// obsolete channel mask
		if _, err := r.next(); err != nil {
			return err
		}
		length, err := r.next2()
		if err != nil {
			return err
		}
		if channel >= len(s.Channels) {
			return r.errorf("channel %d out of range", channel)
		}
		bits := r.bits(length)
		return fromBits(decodeChannelPatterns(bits, s, channel, 0, false))
	}
	lengthLength, err := r.next()
	if err != nil {
		return err
	}
	length := 0
	for i := 0; i < lengthLength; i++ {
		v, err := r.next()
		if err != nil {
			return err
		}
		length = length<<6 + v
	}
	bits := r.bits(length)
	instrumentBits := bitsFor(s.InstrumentsPerChannel)
	for ci := range s.Channels {
		if err := decodeChannelPatterns(bits, s, ci, instrumentBits, true); err != nil {
			return fromBits(err)
		}
	}
	return nil
}

type noteShape struct {
	pitchCount    int
	initialVolume int
	bendCount     int
	length        int
	pins          []shapePin
}

type shapePin struct {
	pitchBend bool
	time      int
	volume    int
}

func decodeChannelPatterns(bits *bitfield.Reader, s *Song, channel, instrumentBits int, presenceFlag bool) error {
	lastPitch, recentPitches := channelPitchState(s, channel)
	var recentShapes []*noteShape
	partsPerBar := s.PartsPerBar()
	c := &s.Channels[channel]
	for pi := range c.Patterns {
		p := &c.Patterns[pi]
		*p = Pattern{Instrument: bits.Read(instrumentBits)}
		if p.Instrument >= len(c.Instruments) {
			p.Instrument = 0
		}
		if presenceFlag && bits.Read(1) == 0 {
			continue
		}
		curPart := 0
		for curPart < partsPerBar {
			if err := bits.Err(); err != nil {
				return err
			}
			useOld := bits.Read(1) == 1
			newShape := false
			shapeIndex := 0
			if useOld {
				shapeIndex = bits.ReadLongTail(0, 0)
			} else {
				newShape = bits.Read(1) == 1
			}
			if !useOld && !newShape {
				curPart += bits.ReadPartDuration()
				continue
			}
			var shape *noteShape
			if useOld {
				if shapeIndex >= len(recentShapes) {
					return &FormatError{Offset: -1, Msg: fmt.Sprintf("note shape %d was never defined", shapeIndex)}
				}
				shape = recentShapes[shapeIndex]
				recentShapes = append(recentShapes[:shapeIndex], recentShapes[shapeIndex+1:]...)
			} else {
				shape = &noteShape{pitchCount: 1}
				for shape.pitchCount < MaxChordSize && bits.Read(1) == 1 {
					shape.pitchCount++
				}
				pinCount := bits.ReadPinCount()
				shape.initialVolume = bits.Read(2)
				for j := 0; j < pinCount && bits.Err() == nil; j++ {
					bend := bits.Read(1) == 1
					if bend {
						shape.bendCount++
					}
					shape.length += bits.ReadPartDuration()
					shape.pins = append(shape.pins, shapePin{pitchBend: bend, time: shape.length, volume: bits.Read(2)})
				}
			}
			recentShapes = append([]*noteShape{shape}, recentShapes...)
			if len(recentShapes) > recentShapeCapacity {
				recentShapes = recentShapes[:recentShapeCapacity]
			}

			note := Note{Start: curPart, End: curPart + shape.length}
			var pitchBends []int
			for j := 0; j < shape.pitchCount+shape.bendCount; j++ {
				var pitch int
				pitchIndex := -1
				if bits.Read(1) == 1 {
					pitchIndex = bits.Read(3)
					if pitchIndex >= len(recentPitches) {
						return &FormatError{Offset: -1, Msg: fmt.Sprintf("pitch window index %d out of range", pitchIndex)}
					}
					pitch = recentPitches[pitchIndex]
				} else {
					interval := bits.ReadPitchInterval()
					pitch = lastPitch
					for ; interval > 0; interval-- {
						pitch++
						for recentPitches.index(pitch) != -1 {
							pitch++
						}
					}
					for ; interval < 0; interval++ {
						pitch--
						for recentPitches.index(pitch) != -1 {
							pitch--
						}
					}
				}
				recentPitches.promote(pitch, pitchIndex)
				if j < shape.pitchCount {
					note.Pitches = append(note.Pitches, pitch)
				} else {
					pitchBends = append(pitchBends, pitch)
				}
				if j == shape.pitchCount-1 {
					lastPitch = note.Pitches[0]
				} else {
					lastPitch = pitch
				}
			}
			if err := bits.Err(); err != nil {
				return err
			}
			note.Pins = append(note.Pins, NotePin{Interval: 0, Time: 0, Volume: shape.initialVolume})
			bend := 0
			for _, sp := range shape.pins {
				if sp.pitchBend {
					bend++
				}
				interval := 0
				if bend > 0 {
					interval = pitchBends[bend-1] - note.Pitches[0]
				}
				note.Pins = append(note.Pins, NotePin{Interval: interval, Time: sp.time, Volume: sp.volume})
			}
			if note.End > partsPerBar {
				return &FormatError{Offset: -1, Msg: "note extends past the end of the bar"}
			}
			p.Notes = append(p.Notes, note)
			curPart = note.End
		}
	}
	return bits.Err()
}
