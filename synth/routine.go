package synth

import (
	"math"
	"strconv"
	"strings"

	"github.com/chiptrack/beepbox"
	"github.com/chiptrack/beepbox/waves"
)

type (
	voiceKind int

	// voice is the fixed part of how one channel is rendered during a bar:
	// its synthesis model and, for FM, the modulation graph resolved into
	// operator indices.
	voice struct {
		kind         voiceKind
		carriers     int
		modulatedBy  [beepbox.OperatorCount][]int
		feedbackFrom [beepbox.OperatorCount][]int
	}

	// routine mixes every channel of a bar. Routines depend only on the
	// fingerprint of the bar, so bars with the same instrument types share
	// one routine.
	routine struct {
		fingerprint string
		voices      []voice
	}
)

const (
	chipVoice voiceKind = iota
	pwmVoice
	noiseVoice
	fmVoice
)

// fingerprint summarizes the synthesis models playing in a bar, one entry
// per channel: "c" chip, "p" pulse width, "n" noise, and "f<alg>.<fb>" for
// FM with its algorithm and feedback type.
func fingerprint(song *beepbox.Song, bar int) string {
	var b strings.Builder
	for c := range min(song.ChannelCount(), maxChannels) {
		if c > 0 {
			b.WriteByte('|')
		}
		instr := song.Instrument(c, song.Pattern(c, bar))
		if instr == nil {
			b.WriteByte('c')
			continue
		}
		switch kindOf(instr.Type) {
		case chipVoice:
			b.WriteByte('c')
		case pwmVoice:
			b.WriteByte('p')
		case noiseVoice:
			b.WriteByte('n')
		case fmVoice:
			b.WriteByte('f')
			b.WriteString(strconv.Itoa(clampIndex(instr.Algorithm, len(beepbox.Algorithms))))
			b.WriteByte('.')
			b.WriteString(strconv.Itoa(clampIndex(instr.FeedbackType, len(beepbox.Feedbacks))))
		}
	}
	return b.String()
}

// compileRoutine builds the routine for a fingerprint.
func compileRoutine(fp string) *routine {
	r := &routine{fingerprint: fp}
	if fp == "" {
		return r
	}
	for _, field := range strings.Split(fp, "|") {
		var v voice
		switch field[0] {
		case 'p':
			v.kind = pwmVoice
		case 'n':
			v.kind = noiseVoice
		case 'f':
			v.kind = fmVoice
			alg, fb, _ := strings.Cut(field[1:], ".")
			a, _ := strconv.Atoi(alg)
			f, _ := strconv.Atoi(fb)
			algorithm := &beepbox.Algorithms[clampIndex(a, len(beepbox.Algorithms))]
			v.carriers = algorithm.CarrierCount
			v.modulatedBy = algorithm.ModulatedBy
			v.feedbackFrom = beepbox.Feedbacks[clampIndex(f, len(beepbox.Feedbacks))].Indices
		default:
			v.kind = chipVoice
		}
		r.voices = append(r.voices, v)
	}
	return r
}

func (s *Synth) routineFor(bar int) *routine {
	fp := fingerprint(s.song, bar)
	if r, ok := s.routines[fp]; ok {
		return r
	}
	r := compileRoutine(fp)
	s.routines[fp] = r
	return r
}

// run renders len(left) samples: every active channel, then the reverb and
// the limiter. The master volume is applied by the caller.
func (r *routine) run(s *Synth, left, right []float32) {
	voices := r.voices[:min(len(r.voices), s.song.ChannelCount())]
	channels := s.channels[:len(voices)]
	amount := reverbAmount(s.song.Reverb)
	for i := range left {
		var sampleL, sampleR, mono float64
		for c := range voices {
			st := &channels[c]
			v := &voices[c]
			if !st.active || st.kind != v.kind {
				continue
			}
			lfo := sineAt(st.lfoPhase)
			vibrato := 1 + st.vibratoScale*lfo
			tremolo := 1 + st.tremoloScale*(lfo-1)*0.5
			var sample float64
			switch v.kind {
			case chipVoice:
				a := st.wave[int(st.phases[0]*beepbox.ChipWaveLength)&(beepbox.ChipWaveLength-1)]
				b := st.wave[int(st.phases[1]*beepbox.ChipWaveLength)&(beepbox.ChipWaveLength-1)]
				raw := float64(a) + st.chorusSign*float64(b)*st.harmonyVolumeMult
				st.filterSample += (raw - st.filterSample) * st.filter
				st.filter *= st.filterScale
				sample = st.filterSample
			case pwmVoice:
				a := pulse(st.phases[0], st.pulseWidth)
				b := pulse(st.phases[1], st.pulseWidth)
				raw := a + st.chorusSign*b*st.harmonyVolumeMult
				st.filterSample += (raw - st.filterSample) * st.filter
				st.filter *= st.filterScale
				st.pulseWidth += st.pulseWidthDelta
				sample = st.filterSample
			case noiseVoice:
				sample = float64(st.wave[int(st.phases[0])&(beepbox.DrumWaveLength-1)])
			case fmVoice:
				for op := beepbox.OperatorCount - 1; op >= 0; op-- {
					phase := st.phases[op]
					for _, m := range v.modulatedBy[op] {
						phase += st.outputs[m]
					}
					for _, f := range v.feedbackFrom[op] {
						phase += st.outputs[f] * st.feedbackMult
					}
					st.outputs[op] = sineAt(phase) * st.outputMults[op]
					st.outputMults[op] += st.outputDeltas[op]
				}
				for op := range v.carriers {
					sample += st.outputs[op]
				}
				st.feedbackMult += st.feedbackDelta
			}
			sample *= st.volume * tremolo
			st.volume += st.volumeDelta
			for k := range st.phaseDeltas {
				st.phases[k] += st.phaseDeltas[k] * vibrato
				st.phaseDeltas[k] *= st.phaseDeltaScale
			}
			st.lfoPhase += st.lfoDelta
			sampleL += sample * st.panLeft
			sampleR += sample * st.panRight
			mono += sample
		}
		wetL, wetR := s.reverb.process(mono, amount)
		outL, outR := s.limiter.process(sampleL+wetL, sampleR+wetR)
		left[i] = float32(outL)
		right[i] = float32(outR)
	}
	for c := range channels {
		st := &channels[c]
		period := wrapLength(st.kind)
		for k := range st.phases {
			st.phases[k] -= math.Floor(st.phases[k]/period) * period
		}
	}
}

// wrapLength is the period of the phase of a voice: one cycle, or the drum
// table length for noise whose phase counts table samples.
func wrapLength(k voiceKind) float64 {
	if k == noiseVoice {
		return beepbox.DrumWaveLength
	}
	return 1
}

// pulse is a DC free pulse wave of the given duty cycle.
func pulse(phase, width float64) float64 {
	phase -= math.Floor(phase)
	v := -1.0
	if phase < width {
		v = 1
	}
	return v - (2*width - 1)
}

// sineAt interpolates the sine table at a phase given in cycles.
func sineAt(phase float64) float64 {
	p := (phase - math.Floor(phase)) * beepbox.SineWaveLength
	i := int(p)
	f := p - float64(i)
	i &= beepbox.SineWaveLength - 1
	a, b := float64(waves.SineTable[i]), float64(waves.SineTable[i+1])
	return a + (b-a)*f
}

func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}
