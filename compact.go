package beepbox

import (
	"github.com/chiptrack/beepbox/bitfield"
)

// Compact string versions. Strings of any version in the range decode; new
// strings are always written in LatestVersion.
const (
	OldestVersion = 2
	LatestVersion = 7
)

// Compact string tags. Each tag is followed by a fixed or self-delimiting
// payload.
const (
	tagBeatCount         = 'a'
	tagBars              = 'b'
	tagEffect            = 'c'
	tagTransition        = 'd'
	tagLoopEnd           = 'e'
	tagFilter            = 'f'
	tagBarCount          = 'g'
	tagChorus            = 'h'
	tagInstrumentCount   = 'i'
	tagPatternCount      = 'j'
	tagKey               = 'k'
	tagLoopStart         = 'l'
	tagReverb            = 'm'
	tagChannelCount      = 'n'
	tagChannelOctave     = 'o'
	tagPatterns          = 'p'
	tagRhythm            = 'r'
	tagScale             = 's'
	tagTempo             = 't'
	tagStartInstrument   = 'u'
	tagVolume            = 'v'
	tagWave              = 'w'
	tagAlgorithm         = 'A'
	tagFeedbackAmplitude = 'B'
	tagDetune            = 'D'
	tagOperatorEnvelopes = 'E'
	tagFeedbackType      = 'F'
	tagHarmony           = 'H'
	tagBlend             = 'L'
	tagMuff              = 'M'
	tagPan               = 'N'
	tagOctaveOffset      = 'O'
	tagOperatorAmps      = 'P'
	tagOperatorFreqs     = 'Q'
	tagRiff              = 'R'
	tagSampleRate        = 'S'
	tagPulseEnvelope     = 'T'
	tagMute              = 'U'
	tagFeedbackEnvelope  = 'V'
	tagPulseWidth        = 'W'
	tagMix               = 'X'
)

const (
	recentPitchCapacity = 8
	recentShapeCapacity = 10
)

var (
	pitchSeeds = []int{12, 19, 24, 31, 36, 7, 0}
	drumSeeds  = []int{4, 6, 7, 2, 3, 8, 0, 10}
)

// compactWriter appends tags and their payloads.
type compactWriter []byte

func (w *compactWriter) tag(t byte, values ...int) {
	*w = append(*w, t)
	for _, v := range values {
		*w = append(*w, bitfield.Symbol(v))
	}
}

// ToCompactString encodes the song in the latest compact format.
func (s *Song) ToCompactString() string {
	w := compactWriter{bitfield.Symbol(LatestVersion)}
	w.tag(tagChannelCount, s.PitchChannelCount, s.DrumChannelCount)
	w.tag(tagScale, s.Scale)
	w.tag(tagKey, s.Key)
	w.tag(tagBarCount, (s.BarCount-1)>>6, (s.BarCount-1)&0x3f)
	w.tag(tagLoopStart, s.LoopStart>>6, s.LoopStart&0x3f)
	w.tag(tagLoopEnd, (s.LoopLength-1)>>6, (s.LoopLength-1)&0x3f)
	w.tag(tagTempo, s.Tempo)
	w.tag(tagReverb, s.Reverb)
	w.tag(tagBlend, s.Blend)
	w.tag(tagRiff, s.Riff)
	w.tag(tagDetune, s.Detune+DetuneMax)
	w.tag(tagMuff, s.Muff)
	w.tag(tagMix, s.Mix)
	w.tag(tagSampleRate, s.SampleRate)
	w.tag(tagBeatCount, s.BeatsPerBar-1)
	w.tag(tagPatternCount, s.PatternsPerChannel-1)
	w.tag(tagInstrumentCount, s.InstrumentsPerChannel-1)
	w.tag(tagRhythm, rhythmIndex(s.PartsPerBeat))

	w = append(w, tagChannelOctave)
	for _, c := range s.Channels {
		w = append(w, bitfield.Symbol(c.Octave))
	}

	for ci, c := range s.Channels {
		for _, instr := range c.Instruments {
			w.instrument(&instr, s.IsDrumChannel(ci))
		}
	}

	neededBits := 0
	for 1<<neededBits < s.PatternsPerChannel+1 {
		neededBits++
	}
	var bars bitfield.Writer
	for _, c := range s.Channels {
		for bar := 0; bar < s.BarCount; bar++ {
			bars.Write(neededBits, c.Bars.Get(bar))
		}
	}
	w = append(w, tagBars)
	w = append(w, bars.EncodeBase64()...)

	var patterns bitfield.Writer
	instrumentBits := bitsFor(s.InstrumentsPerChannel)
	for ci := range s.Channels {
		encodeChannelPatterns(&patterns, s, ci, instrumentBits)
	}
	encoded := patterns.EncodeBase64()
	var digits []byte
	for n := len(encoded); n > 0; n >>= 6 {
		digits = append([]byte{bitfield.Symbol(n & 0x3f)}, digits...)
	}
	w = append(w, tagPatterns, bitfield.Symbol(len(digits)))
	w = append(w, digits...)
	w = append(w, encoded...)
	return string(w)
}

func (w *compactWriter) instrument(instr *Instrument, drum bool) {
	w.tag(tagStartInstrument, int(instr.Type))
	switch instr.Type {
	case ChipInstrument:
		w.tag(tagWave, instr.Wave)
		w.tag(tagFilter, instr.Filter)
		w.tag(tagTransition, int(instr.Transition))
		w.tag(tagEffect, instr.Effect)
		w.tag(tagChorus, instr.Chorus)
	case PWMInstrument:
		w.tag(tagPulseWidth, instr.PulseWidth)
		w.tag(tagPulseEnvelope, instr.PulseEnvelope)
		w.tag(tagFilter, instr.Filter)
		w.tag(tagTransition, int(instr.Transition))
		w.tag(tagEffect, instr.Effect)
		w.tag(tagChorus, instr.Chorus)
	case FMInstrument:
		w.tag(tagTransition, int(instr.Transition))
		w.tag(tagEffect, instr.Effect)
		w.tag(tagAlgorithm, instr.Algorithm)
		w.tag(tagFeedbackType, instr.FeedbackType)
		w.tag(tagFeedbackAmplitude, instr.FeedbackAmplitude)
		w.tag(tagFeedbackEnvelope, instr.FeedbackEnvelope)
		*w = append(*w, tagOperatorFreqs)
		for _, op := range instr.Operators {
			*w = append(*w, bitfield.Symbol(op.Frequency))
		}
		*w = append(*w, tagOperatorAmps)
		for _, op := range instr.Operators {
			*w = append(*w, bitfield.Symbol(op.Amplitude))
		}
		*w = append(*w, tagOperatorEnvelopes)
		for _, op := range instr.Operators {
			*w = append(*w, bitfield.Symbol(op.Envelope))
		}
	case NoiseInstrument:
		w.tag(tagWave, instr.Wave)
		w.tag(tagTransition, int(instr.Transition))
	}
	w.tag(tagHarmony, int(instr.Harmony))
	w.tag(tagVolume, instr.Volume)
	w.tag(tagPan, instr.Pan)
	mute := 0
	if instr.Mute {
		mute = 1
	}
	w.tag(tagMute, mute)
	if !drum {
		w.tag(tagOctaveOffset, instr.Octave-OctaveOffsetMin)
	}
}

func rhythmIndex(partsPerBeat int) int {
	for i, r := range Rhythms {
		if r == partsPerBeat {
			return i
		}
	}
	return 1
}

// bitsFor returns the number of bits needed to store values 0..n-1.
func bitsFor(n int) int {
	bits := 0
	for 1<<bits < n {
		bits++
	}
	return bits
}

// pitchWindow is the rolling most recently used pitch dictionary of the
// note coder.
type pitchWindow []int

func newPitchWindow(drum bool, offset int) pitchWindow {
	seeds := pitchSeeds
	if drum {
		seeds = drumSeeds
	}
	w := make(pitchWindow, len(seeds), recentPitchCapacity+1)
	for i, p := range seeds {
		w[i] = p + offset
	}
	return w
}

func (w pitchWindow) index(pitch int) int {
	for i, p := range w {
		if p == pitch {
			return i
		}
	}
	return -1
}

// promote moves pitch to the front, removing it from index i if present,
// and evicts the oldest entry past the capacity.
func (w *pitchWindow) promote(pitch, i int) {
	if i >= 0 {
		*w = append((*w)[:i], (*w)[i+1:]...)
	}
	*w = append(pitchWindow{pitch}, *w...)
	if len(*w) > recentPitchCapacity {
		*w = (*w)[:recentPitchCapacity]
	}
}

func channelPitchState(s *Song, channel int) (lastPitch int, window pitchWindow) {
	drum := s.IsDrumChannel(channel)
	offset := 0
	if !drum {
		offset = s.Channels[channel].Octave * 12
	}
	lastPitch = 12 + offset
	if drum {
		lastPitch = 4
	}
	return lastPitch, newPitchWindow(drum, offset)
}

func encodeChannelPatterns(bits *bitfield.Writer, s *Song, channel, instrumentBits int) {
	lastPitch, recentPitches := channelPitchState(s, channel)
	var recentShapes []string
	partsPerBar := s.PartsPerBar()
	for _, p := range s.Channels[channel].Patterns {
		bits.Write(instrumentBits, p.Instrument)
		if len(p.Notes) == 0 {
			bits.Write(1, 0)
			continue
		}
		bits.Write(1, 1)
		curPart := 0
		for _, note := range p.Notes {
			if note.Start > curPart {
				bits.Write(2, 0)
				bits.WritePartDuration(note.Start - curPart)
			}
			var shape bitfield.Writer
			for i := 1; i < len(note.Pitches); i++ {
				shape.Write(1, 1)
			}
			if len(note.Pitches) < MaxChordSize {
				shape.Write(1, 0)
			}
			shape.WritePinCount(len(note.Pins) - 1)
			shape.Write(2, note.Pins[0].Volume)
			shapePart := 0
			startPitch := note.Pitches[0]
			currentPitch := startPitch
			var pitchBends []int
			for _, pin := range note.Pins[1:] {
				nextPitch := startPitch + pin.Interval
				if currentPitch != nextPitch {
					shape.Write(1, 1)
					pitchBends = append(pitchBends, nextPitch)
					currentPitch = nextPitch
				} else {
					shape.Write(1, 0)
				}
				shape.WritePartDuration(pin.Time - shapePart)
				shapePart = pin.Time
				shape.Write(2, pin.Volume)
			}
			key := shape.String()
			shapeIndex := -1
			for i, k := range recentShapes {
				if k == key {
					shapeIndex = i
					break
				}
			}
			if shapeIndex == -1 {
				bits.Write(2, 1)
				bits.Concat(&shape)
			} else {
				bits.Write(1, 1)
				bits.WriteLongTail(0, 0, shapeIndex)
				recentShapes = append(recentShapes[:shapeIndex], recentShapes[shapeIndex+1:]...)
			}
			recentShapes = append([]string{key}, recentShapes...)
			if len(recentShapes) > recentShapeCapacity {
				recentShapes = recentShapes[:recentShapeCapacity]
			}

			allPitches := append(append([]int{}, note.Pitches...), pitchBends...)
			for i, pitch := range allPitches {
				pitchIndex := recentPitches.index(pitch)
				if pitchIndex == -1 {
					// lastPitch is always in the window, so a pitch outside
					// it differs from lastPitch and the interval is nonzero.
					interval := 0
					pitchIter := lastPitch
					if pitchIter < pitch {
						for pitchIter != pitch {
							pitchIter++
							if recentPitches.index(pitchIter) == -1 {
								interval++
							}
						}
					} else {
						for pitchIter != pitch {
							pitchIter--
							if recentPitches.index(pitchIter) == -1 {
								interval--
							}
						}
					}
					bits.Write(1, 0)
					bits.WritePitchInterval(interval)
				} else {
					bits.Write(1, 1)
					bits.Write(3, pitchIndex)
				}
				recentPitches.promote(pitch, pitchIndex)
				if i == len(note.Pitches)-1 {
					lastPitch = note.Pitches[0]
				} else {
					lastPitch = pitch
				}
			}
			curPart = note.End
		}
		if curPart < partsPerBar {
			bits.Write(2, 0)
			bits.WritePartDuration(partsPerBar - curPart)
		}
	}
}
