package synth

import (
	"math"

	"github.com/chiptrack/beepbox"
)

// envelope evaluates an envelope t seconds and beats beats after the note
// started. custom is the value custom envelopes follow (the note volume)
// and amplitude parameterizes the custom flare and custom tremolo shapes.
func envelope(index int, custom float64, amplitude int, t, beats float64) float64 {
	if index < 0 || index >= len(beepbox.Envelopes) {
		return 1
	}
	e := beepbox.Envelopes[index]
	switch e.Type {
	case beepbox.EnvelopeCustom:
		return custom
	case beepbox.EnvelopeSteady:
		return 1
	case beepbox.EnvelopePunch:
		return math.Max(1, 2-10*t)
	case beepbox.EnvelopeFlare:
		return flare(e.Speed, t)
	case beepbox.EnvelopePluck:
		return 1 / (1 + t*e.Speed)
	case beepbox.EnvelopeSwell:
		return 1 - 1/(1+t*e.Speed)
	case beepbox.EnvelopeTremolo:
		return 0.5 - 0.5*math.Cos(2*math.Pi*beats*e.Speed)
	case beepbox.EnvelopeTremolo2:
		return 0.75 - 0.25*math.Cos(2*math.Pi*beats*e.Speed)
	case beepbox.EnvelopeDecay:
		return math.Pow(2, -e.Speed*t)
	case beepbox.EnvelopeFlute:
		return (1 - 1/(1+e.Speed*t)) * (0.9 - 0.1*math.Cos(2*math.Pi*beats*4))
	case beepbox.EnvelopeCustomFlare:
		return flare(1+float64(amplitude)*2, t)
	case beepbox.EnvelopeCustomTremolo:
		speed := float64(amplitude)/4 + 0.25
		return 0.5 - 0.5*math.Cos(2*math.Pi*beats*speed)
	}
	return 1
}

// flare rises linearly for an attack that gets shorter as speed grows and
// then decays like a pluck.
func flare(speed, t float64) float64 {
	attack := 0.25 / math.Sqrt(speed)
	if t < attack {
		return t / attack
	}
	return 1 / (1 + (t-attack)*speed)
}
