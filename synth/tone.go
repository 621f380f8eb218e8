package synth

import (
	"math"

	"github.com/chiptrack/beepbox"
)

// channelState is what computeChannel writes for a run of samples inside a
// tick, plus the oscillator state carried over from run to run. Deltas are
// per sample.
type channelState struct {
	active bool
	kind   voiceKind
	wave   []float32

	phases          [beepbox.OperatorCount]float64
	phaseDeltas     [beepbox.OperatorCount]float64
	phaseDeltaScale float64

	volume, volumeDelta float64
	filter, filterScale float64
	filterSample        float64

	chorusSign        float64
	harmonyMult       float64
	harmonyVolumeMult float64

	pulseWidth, pulseWidthDelta float64

	outputMults, outputDeltas   [beepbox.OperatorCount]float64
	outputs                     [beepbox.OperatorCount]float64
	feedbackMult, feedbackDelta float64

	vibratoScale, tremoloScale float64
	lfoPhase, lfoDelta         float64

	panLeft, panRight float64
}

const (
	lfoPeriod        = 0.15 // seconds
	pitchedDamping   = 48
	softDrumDamping  = 24
	hardDrumDamping  = 60
	noiseBasePitch   = 105 // drum pitch at which a table sample lasts one sample at 44.1 kHz
	fmFeedbackScale  = 0.3
	chipVolume       = 0.27 * 0.5
	noiseVolume      = 0.19
	fmVolume         = 0.2
	pwmWaveVolume    = 0.5
	riffCentsPerStep = 2
)

// noteSizeToVolume maps a note size in 0..3 to a linear gain.
func noteSizeToVolume(size float64) float64 {
	return math.Pow(max(size, 0)/beepbox.NoteSizeMax, 1.5)
}

// pitchLoudness compensates the perceived loudness of higher pitches: every
// damping semitones up, the gain is divided by k.
func pitchLoudness(pitch, damping, k float64) float64 {
	return math.Pow(k, -pitch/damping)
}

func frequency(pitch float64) float64 {
	return 440 * math.Pow(2, (pitch-69)/12)
}

// riff returns a deterministic value in [-1, 1] for a note, used to detune
// each note slightly differently.
func riff(channel, bar, start int) float64 {
	h := uint32(channel)*0x9e3779b1 ^ uint32(bar)*0x85ebca77 ^ uint32(start)*0xc2b2ae3d
	h ^= h >> 15
	h *= 0x2c1b3c6d
	h ^= h >> 12
	h *= 0x297a2d39
	h ^= h >> 15
	return float64(h)/math.MaxUint32*2 - 1
}

func kindOf(t beepbox.InstrumentType) voiceKind {
	switch t {
	case beepbox.FMInstrument:
		return fmVoice
	case beepbox.NoiseInstrument:
		return noiseVoice
	case beepbox.PWMInstrument:
		return pwmVoice
	}
	return chipVoice
}

// computeChannel prepares channel c for run samples starting offset samples
// into the current tick. A channel with nothing to play is left inactive.
func (s *Synth) computeChannel(c, offset, run int) {
	st := &s.channels[c]
	st.active = false
	song := s.song
	pattern := song.Pattern(c, s.bar)
	if pattern == nil {
		return
	}
	instr := song.Instrument(c, pattern)
	if instr == nil || instr.Mute {
		return
	}
	partTime := s.beat*song.PartsPerBeat + s.part
	span, ok := findNote(pattern, partTime, instr.Transition)
	if !ok || len(span.note.Pitches) == 0 {
		return
	}
	note := span.note
	kind := kindOf(instr.Type)
	switch kind {
	case chipVoice:
		table, err := s.waves.Chip(instr.Wave)
		if err != nil {
			return
		}
		st.wave = table
	case noiseVoice:
		table, err := s.waves.Drum(instr.Wave)
		if err != nil {
			return
		}
		st.wave = table
	}
	st.active = true
	st.kind = kind

	spt := float64(s.samplesPerTick)
	ticksIn := (partTime-note.Start)*ticksPerPart + s.tick
	u0 := float64(ticksIn) + float64(offset)/spt
	u1 := float64(ticksIn) + float64(offset+run)/spt
	interval0, size0, fade0 := span.at(u0)
	interval1, size1, fade1 := span.at(u1)
	if instr.Transition == beepbox.TransitionTrill && ticksIn%2 == 1 {
		interval0++
		interval1++
	}
	if offset == 0 && ticksIn == 0 && span.resetsPhase() {
		st.phases = [beepbox.OperatorCount]float64{}
		st.outputs = [beepbox.OperatorCount]float64{}
		st.filterSample = 0
	}

	secondsPerTick := spt / float64(s.sampleRate)
	t0 := u0 * secondsPerTick
	t1 := u1 * secondsPerTick
	beats0 := u0 / ticksPerPart / float64(song.PartsPerBeat)
	beats1 := u1 / ticksPerPart / float64(song.PartsPerBeat)
	fRun := float64(run)

	leadIndex, harmonyIndex := voicing(instr.Harmony, len(note.Pitches), partTime*ticksPerPart+s.tick)
	lead := float64(note.Pitches[min(leadIndex, len(note.Pitches)-1)])
	harmony := lead
	hasHarmony := harmonyIndex >= 0 && harmonyIndex < len(note.Pitches)
	if hasHarmony {
		harmony = float64(note.Pitches[harmonyIndex])
	}
	cents := float64(song.Detune) + float64(song.Riff*riffCentsPerStep)*riff(c, s.bar, note.Start)
	mix := song.MixSettings()
	drum := song.IsDrumChannel(c)

	// pitch of the lead voice, before the interval, and its loudness
	var basePitch, loudness float64
	if drum {
		d := beepbox.Drums[clampIndex(instr.Wave, len(beepbox.Drums))]
		if hasHarmony {
			lead = (lead + harmony) / 2
			hasHarmony = false
		}
		damping := float64(hardDrumDamping)
		if d.Soft {
			damping = softDrumDamping
		}
		basePitch = float64(d.BasePitch)
		loudness = pitchLoudness(lead*beepbox.DrumInterval, damping, mix.LoudnessBase)
	} else {
		octave := song.Channels[c].Octave + instr.Octave
		basePitch = float64(beepbox.Keys[clampIndex(song.Key, len(beepbox.Keys))].BasePitch + 12*octave)
		loudness = pitchLoudness(basePitch+lead-float64(beepbox.Keys[0].BasePitch), pitchedDamping, mix.LoudnessBase)
	}
	st.harmonyMult = 1
	st.harmonyVolumeMult = 1
	if hasHarmony {
		st.harmonyMult = math.Pow(2, (harmony-lead)/12)
		st.harmonyVolumeMult = pitchLoudness(harmony-lead, pitchedDamping, mix.LoudnessBase)
	}
	st.phaseDeltaScale = math.Pow(2, (interval1-interval0)/12/fRun)

	settings := beepbox.VolumeMult(instr.Volume)
	filter := beepbox.Filters[clampIndex(instr.Filter, len(beepbox.Filters))]
	chorus := beepbox.Choruses[clampIndex(instr.Chorus, len(beepbox.Choruses))]
	var volume0, volume1 float64
	switch kind {
	case chipVoice, pwmVoice:
		waveVolume := pwmWaveVolume
		if kind == chipVoice {
			waveVolume = beepbox.ChipWaves[instr.Wave].Volume
		}
		settings *= chipVolume * waveVolume * filter.Volume * chorus.Volume
		pitch := basePitch + lead + interval0 + cents/100
		st.phaseDeltas[0] = frequency(pitch+chorus.Offset+chorus.Interval) / float64(s.sampleRate)
		st.phaseDeltas[1] = frequency(pitch+chorus.Offset-chorus.Interval) * st.harmonyMult / float64(s.sampleRate)
		st.chorusSign = chorus.Sign
		volume0 = noteSizeToVolume(size0) * fade0
		volume1 = noteSizeToVolume(size1) * fade1
		cutoff := math.Pow(2, -(filter.Base + float64(song.Muff)*0.5))
		st.filter = min(1, cutoff*math.Pow(2, -filter.Decay*t0))
		st.filterScale = math.Pow(2, -filter.Decay/float64(s.sampleRate))
		if kind == pwmVoice {
			width := beepbox.PulseWidths[clampIndex(instr.PulseWidth, len(beepbox.PulseWidths))].Width
			w0 := width * envelope(instr.PulseEnvelope, noteSizeToVolume(size0), instr.PulseWidth, t0, beats0)
			w1 := width * envelope(instr.PulseEnvelope, noteSizeToVolume(size1), instr.PulseWidth, t1, beats1)
			st.pulseWidth = w0
			st.pulseWidthDelta = (w1 - w0) / fRun
		}
	case noiseVoice:
		settings *= noiseVolume * beepbox.Drums[instr.Wave].Volume
		pitch := basePitch + (lead+interval0)*beepbox.DrumInterval + cents/100
		st.phaseDeltas[0] = math.Pow(2, (pitch-noiseBasePitch)/12) * 44100 / float64(s.sampleRate)
		st.phaseDeltaScale = math.Pow(2, (interval1-interval0)*beepbox.DrumInterval/12/fRun)
		volume0 = noteSizeToVolume(size0) * fade0
		volume1 = noteSizeToVolume(size1) * fade1
	case fmVoice:
		settings *= fmVolume
		algorithm := &beepbox.Algorithms[clampIndex(instr.Algorithm, len(beepbox.Algorithms))]
		for i, op := range instr.Operators {
			carrier := algorithm.AssociatedCarrier[i]
			pitch := basePitch + lead + interval0 + cents/100
			if carrier > 0 && hasHarmony && algorithm.CarrierCount > 1 {
				pitch += harmony - lead
			}
			pitch += beepbox.OperatorCarrierIntervals[carrier]
			f := beepbox.OperatorFrequencies[clampIndex(op.Frequency, len(beepbox.OperatorFrequencies))]
			st.phaseDeltas[i] = (frequency(pitch)*f.Mult + f.HzOffset) / float64(s.sampleRate)
			amplitude := beepbox.OperatorAmplitudeCurve(op.Amplitude)
			if i < algorithm.CarrierCount {
				amplitude *= f.AmplitudeSign
			}
			m0 := amplitude * envelope(op.Envelope, noteSizeToVolume(size0), op.Amplitude, t0, beats0)
			m1 := amplitude * envelope(op.Envelope, noteSizeToVolume(size1), op.Amplitude, t1, beats1)
			st.outputMults[i] = m0
			st.outputDeltas[i] = (m1 - m0) / fRun
		}
		feedback := beepbox.OperatorAmplitudeCurve(instr.FeedbackAmplitude) * fmFeedbackScale
		f0 := feedback * envelope(instr.FeedbackEnvelope, noteSizeToVolume(size0), instr.FeedbackAmplitude, t0, beats0)
		f1 := feedback * envelope(instr.FeedbackEnvelope, noteSizeToVolume(size1), instr.FeedbackAmplitude, t1, beats1)
		st.feedbackMult = f0
		st.feedbackDelta = (f1 - f0) / fRun
		// the note size reaches FM voices only through custom envelopes
		volume0, volume1 = fade0, fade1
	}
	volume0 *= settings * loudness
	volume1 *= settings * loudness
	st.volume = volume0
	st.volumeDelta = (volume1 - volume0) / fRun

	effect := beepbox.Effects[clampIndex(instr.Effect, len(beepbox.Effects))]
	st.vibratoScale = 0
	if u0 >= float64(effect.VibratoDelay*ticksPerPart) {
		st.vibratoScale = math.Pow(2, effect.Vibrato/12) - 1
	}
	st.tremoloScale = effect.Tremolo
	st.lfoPhase = t0 / lfoPeriod
	st.lfoDelta = 1 / (lfoPeriod * float64(s.sampleRate))

	p := float64(instr.Pan-beepbox.PanCenter) / beepbox.PanCenter * (1 - float64(song.Blend)/beepbox.BlendRange)
	p = max(-1, min(1, p))
	if mix.EqualPower {
		angle := (p + 1) * math.Pi / 4
		st.panLeft = math.Cos(angle) * math.Sqrt2
		st.panRight = math.Sin(angle) * math.Sqrt2
	} else {
		st.panLeft = min(1, 1-p)
		st.panRight = min(1, 1+p)
	}
}
